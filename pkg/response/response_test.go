package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/lsmpricing/pkg/logger"
)

func TestEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ok", func(c *gin.Context) {
		c.Request = c.Request.WithContext(logger.ContextWithIDs(c.Request.Context(), "t", "s", "req-1"))
		Success(c, gin.H{"price": 4.47})
	})
	r.GET("/bad", func(c *gin.Context) { ErrorWithStatus(c, http.StatusBadRequest, "invalid spot", "spot must be positive") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	var body Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 0, body.Code)
	assert.Equal(t, "req-1", body.RequestID)
	assert.Equal(t, map[string]any{"price": 4.47}, body.Data)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bad", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid spot", body.Message)
}
