// Package handler holds the endpoints the gateway serves locally, without a
// broker round trip.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/linkedout/api-gateway/internal/pkg/response"
)

// HealthHandler answers liveness probes.
type HealthHandler struct{}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Check handles GET /api/health.
func (h *HealthHandler) Check(c *gin.Context) {
	response.WriteSuccess(c, http.StatusOK, gin.H{"status": "UP"})
}
