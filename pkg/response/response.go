// Package response 统一 HTTP 响应结构
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/lsmpricing/pkg/logger"
)

// Body 响应体
type Body struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Success 200 成功响应
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{
		Code:      0,
		Message:   "success",
		Data:      data,
		RequestID: logger.RequestID(c.Request.Context()),
	})
}

// ErrorWithStatus 以指定 HTTP 状态返回错误
func ErrorWithStatus(c *gin.Context, status int, message, details string) {
	c.AbortWithStatusJSON(status, Body{
		Code:      status,
		Message:   message,
		Details:   details,
		RequestID: logger.RequestID(c.Request.Context()),
	})
}
