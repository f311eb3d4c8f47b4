package handlers

import (
	"net/http"

	"github.com/Ayash-Bera/placefinder/backend/internal/health"
	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	checker *health.HealthChecker
}

func NewHealthHandler(checker *health.HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// HandleHealth reports every dependency. Only an unhealthy status maps to 503.
func (h *HealthHandler) HandleHealth(c *gin.Context) {
	result := h.checker.CheckAll(c.Request.Context())

	code := http.StatusOK
	if result.Status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, result)
}
