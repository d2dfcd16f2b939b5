package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/syncwell/mailsync-backend/internal/services"
)

// HealthHandler handles health check HTTP requests
type HealthHandler struct {
	emails *services.EmailService
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(emails *services.EmailService) *HealthHandler {
	return &HealthHandler{emails: emails}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string                `json:"status"`
	Services services.HealthStatus `json:"services"`
}

// Health handles GET /health. Liveness only; it never touches the shards.
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready. Readiness pings every shard and reports breaker
// states so a deploy can hold traffic while the backend recovers.
func (h *HealthHandler) Ready(c echo.Context) error {
	status := h.emails.Health(c.Request().Context())

	statusCode := http.StatusOK
	label := "ready"
	if !status.Healthy {
		statusCode = http.StatusServiceUnavailable
		label = "not ready"
	}
	return c.JSON(statusCode, HealthResponse{
		Status:   label,
		Services: status,
	})
}
