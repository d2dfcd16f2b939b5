package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/syncwell/mailsync-backend/internal/api/response"
	"github.com/syncwell/mailsync-backend/internal/services"
)

// SyncHandler handles sync trigger HTTP requests
type SyncHandler struct {
	sync *services.SyncService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(sync *services.SyncService) *SyncHandler {
	return &SyncHandler{sync: sync}
}

// Trigger handles POST /sync. It pulls one provider page synchronously and
// returns the tallies plus the token to resume from.
func (h *SyncHandler) Trigger(c echo.Context) error {
	var req services.SyncRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	result, err := h.sync.SyncAccount(c.Request().Context(), req)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, result)
}

// Providers handles GET /sync/providers
func (h *SyncHandler) Providers(c echo.Context) error {
	return response.Success(c, map[string][]string{
		"providers": h.sync.Providers(),
	})
}
