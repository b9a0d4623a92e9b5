// Package http 定价服务的 HTTP 接口
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/lsmpricing/internal/pricing/application"
	"github.com/wyfcoding/lsmpricing/internal/pricing/domain"
	"github.com/wyfcoding/lsmpricing/pkg/logger"
	"github.com/wyfcoding/lsmpricing/pkg/response"
)

// PricingHandler HTTP 处理器
type PricingHandler struct {
	app *application.PricingService
}

// NewPricingHandler 创建 HTTP 处理器实例
func NewPricingHandler(app *application.PricingService) *PricingHandler {
	return &PricingHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *PricingHandler) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api/v1/pricing")
	{
		api.POST("/american/price", h.PriceAmericanOption)
		api.POST("/american/batch", h.BatchPriceOptions)
		api.POST("/convergence", h.RunConvergenceAnalysis)
		api.GET("/convergence/:id", h.GetConvergenceReport)
		api.GET("/results/:symbol/latest", h.GetLatestResult)
		api.GET("/results/:symbol/history", h.GetResultHistory)
		api.POST("/quotes", h.RecordQuote)
		api.GET("/quotes/:symbol/latest", h.GetLatestQuote)
	}
}

// PriceAmericanOption 美式期权定价
func (h *PricingHandler) PriceAmericanOption(c *gin.Context) {
	var cmd application.PriceAmericanOptionCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if cmd.RequestID == "" {
		cmd.RequestID = logger.RequestID(c.Request.Context())
	}

	result, err := h.app.PriceAmericanOption(c.Request.Context(), cmd)
	if err != nil {
		h.fail(c, "Failed to price american option", err)
		return
	}
	response.Success(c, result)
}

// BatchPriceOptions 批量定价，单个合约失败不影响其他合约
func (h *PricingHandler) BatchPriceOptions(c *gin.Context) {
	var cmd application.BatchPriceOptionsCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.app.BatchPriceOptions(c.Request.Context(), cmd)
	if err != nil {
		h.fail(c, "Failed to price batch", err)
		return
	}
	response.Success(c, result)
}

// RunConvergenceAnalysis 执行收敛分析
func (h *PricingHandler) RunConvergenceAnalysis(c *gin.Context) {
	var cmd application.RunConvergenceCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	report, err := h.app.RunConvergenceAnalysis(c.Request.Context(), cmd)
	if err != nil {
		h.fail(c, "Failed to run convergence analysis", err)
		return
	}
	response.Success(c, report)
}

func (h *PricingHandler) GetConvergenceReport(c *gin.Context) {
	report, err := h.app.GetConvergenceReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to get convergence report", err)
		return
	}
	response.Success(c, report)
}

func (h *PricingHandler) GetLatestResult(c *gin.Context) {
	result, err := h.app.GetLatestResult(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		h.fail(c, "Failed to get latest pricing result", err)
		return
	}
	response.Success(c, result)
}

// GetResultHistory limit 缺省或非法时由应用层取默认值
func (h *PricingHandler) GetResultHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	results, err := h.app.GetResultHistory(c.Request.Context(), c.Param("symbol"), limit)
	if err != nil {
		h.fail(c, "Failed to get pricing history", err)
		return
	}
	response.Success(c, gin.H{"results": results, "count": len(results)})
}

// RecordQuote 写入标的报价
func (h *PricingHandler) RecordQuote(c *gin.Context) {
	var cmd application.RecordQuoteCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	quote, err := h.app.RecordQuote(c.Request.Context(), cmd)
	if err != nil {
		h.fail(c, "Failed to record quote", err)
		return
	}
	response.Success(c, quote)
}

func (h *PricingHandler) GetLatestQuote(c *gin.Context) {
	quote, err := h.app.GetLatestQuote(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		h.fail(c, "Failed to get latest quote", err)
		return
	}
	response.Success(c, quote)
}

// fail 非法请求 400，记录不存在 404，其余 500
func (h *PricingHandler) fail(c *gin.Context, msg string, err error) {
	ctx := c.Request.Context()
	switch {
	case application.IsValidationError(err):
		response.ErrorWithStatus(c, http.StatusBadRequest, application.ErrorCode(err), err.Error())
	case errors.Is(err, domain.ErrNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, application.ErrorCode(err), err.Error())
	default:
		logger.Error(ctx, msg, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, application.ErrorCode(err), msg)
	}
}
