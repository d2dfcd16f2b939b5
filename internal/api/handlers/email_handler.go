// Package handlers contains the HTTP handlers for the sync API.
package handlers

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/syncwell/mailsync-backend/internal/api/response"
	apperrors "github.com/syncwell/mailsync-backend/internal/errors"
	"github.com/syncwell/mailsync-backend/internal/models"
	"github.com/syncwell/mailsync-backend/internal/services"
	"github.com/syncwell/mailsync-backend/internal/storage"
)

// AccountIDHeader scopes every email route to one account
const AccountIDHeader = "X-Account-ID"

// EmailHandler handles email HTTP requests
type EmailHandler struct {
	emails   *services.EmailService
	resolver *storage.URLResolver
}

// NewEmailHandler creates a new EmailHandler
func NewEmailHandler(emails *services.EmailService, resolver *storage.URLResolver) *EmailHandler {
	return &EmailHandler{emails: emails, resolver: resolver}
}

// accountID extracts the required account header
func accountID(c echo.Context) (string, error) {
	id := c.Request().Header.Get(AccountIDHeader)
	if id == "" {
		return "", fmt.Errorf("%w: %s header is required", apperrors.ErrValidation, AccountIDHeader)
	}
	return id, nil
}

// UpdateLabelsRequest is the body of PUT /emails/:messageId/labels
type UpdateLabelsRequest struct {
	Labels []string `json:"labels"`
}

// MoveFolderRequest is the body of PUT /emails/:messageId/folder
type MoveFolderRequest struct {
	Folder string `json:"folder"`
}

// Create handles POST /emails, ingesting one already normalized email
func (h *EmailHandler) Create(c echo.Context) error {
	acct, err := accountID(c)
	if err != nil {
		return response.Error(c, err)
	}

	var email models.Email
	if err := c.Bind(&email); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	email.AccountID = acct

	created, err := h.emails.ProcessEmail(c.Request().Context(), &email)
	if err != nil {
		return response.Error(c, err)
	}
	if !created {
		return response.SuccessWithMessage(c, &email, "email already stored")
	}
	return response.Created(c, &email)
}

// Get handles GET /emails/:messageId
func (h *EmailHandler) Get(c echo.Context) error {
	acct, err := accountID(c)
	if err != nil {
		return response.Error(c, err)
	}

	email, err := h.emails.GetEmail(c.Request().Context(), acct, c.Param("messageId"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, email)
}

// List handles GET /emails
func (h *EmailHandler) List(c echo.Context) error {
	acct, err := accountID(c)
	if err != nil {
		return response.Error(c, err)
	}

	// Unparsable pageSize values silently fall back to the service default
	pageSize := 0
	if raw := c.QueryParam("pageSize"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			pageSize = v
		}
	}

	page, err := h.emails.ListEmails(c.Request().Context(), acct,
		c.QueryParam("folder"), pageSize, c.QueryParam("pageToken"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Paginated(c, page.Emails, page.TotalCount, len(page.Emails), page.NextPageToken)
}

// GetAttachment handles GET /emails/:messageId/attachments/:attachmentId,
// returning the attachment with its provider reference resolved to a
// downloadable URL
func (h *EmailHandler) GetAttachment(c echo.Context) error {
	acct, err := accountID(c)
	if err != nil {
		return response.Error(c, err)
	}

	email, err := h.emails.GetEmail(c.Request().Context(), acct, c.Param("messageId"))
	if err != nil {
		return response.Error(c, err)
	}

	attID := c.Param("attachmentId")
	for i := range email.Attachments {
		if email.Attachments[i].AttachmentID != attID {
			continue
		}
		att := email.Attachments[i]
		resolved, err := h.resolver.Resolve(att.URL)
		if err != nil {
			return response.Error(c, err)
		}
		att.URL = resolved
		return response.Success(c, att)
	}
	return response.Error(c, fmt.Errorf("%w: attachment %s not found", apperrors.ErrNotFound, attID))
}

// GetThread handles GET /threads/:threadId
func (h *EmailHandler) GetThread(c echo.Context) error {
	acct, err := accountID(c)
	if err != nil {
		return response.Error(c, err)
	}

	emails, err := h.emails.GetThread(c.Request().Context(), acct, c.Param("threadId"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, emails)
}

// UpdateLabels handles PUT /emails/:messageId/labels
func (h *EmailHandler) UpdateLabels(c echo.Context) error {
	acct, err := accountID(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req UpdateLabelsRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if err := h.emails.UpdateLabels(c.Request().Context(), acct, c.Param("messageId"), req.Labels); err != nil {
		return response.Error(c, err)
	}
	return response.SuccessWithMessage(c, nil, "labels updated")
}

// MoveFolder handles PUT /emails/:messageId/folder
func (h *EmailHandler) MoveFolder(c echo.Context) error {
	acct, err := accountID(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req MoveFolderRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if err := h.emails.MoveToFolder(c.Request().Context(), acct, c.Param("messageId"), req.Folder); err != nil {
		return response.Error(c, err)
	}
	return response.SuccessWithMessage(c, nil, "email moved")
}

// Delete handles DELETE /emails/:messageId
func (h *EmailHandler) Delete(c echo.Context) error {
	acct, err := accountID(c)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.emails.DeleteEmail(c.Request().Context(), acct, c.Param("messageId")); err != nil {
		return response.Error(c, err)
	}
	return response.NoContent(c)
}
