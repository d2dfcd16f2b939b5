// Package provider defines the single capability surface every mail
// provider integration implements, plus the error classification shared by
// all of them. Handlers and the sync service depend only on this package;
// provider-specific wire formats never leak past it.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net"

	apperrors "github.com/syncwell/mailsync-backend/internal/errors"
	"github.com/syncwell/mailsync-backend/internal/models"
	"golang.org/x/oauth2"
)

// Page is one page of provider messages, already normalized
type Page struct {
	Emails        []*models.Email
	NextPageToken string
	TotalEstimate int64
}

// Client is the provider capability surface. Page tokens are opaque and
// provider-owned; callers pass them back unmodified.
type Client interface {
	Name() string
	FetchMessage(ctx context.Context, accountID, messageID string) (*models.Email, error)
	ListMessages(ctx context.Context, accountID, folder string, pageSize int, pageToken string) (*Page, error)
}

// TokenProvider supplies a refreshing oauth2 token source per account.
// Token storage and the consent flow live with the identity subsystem.
type TokenProvider interface {
	TokenSource(ctx context.Context, accountID string) (oauth2.TokenSource, error)
}

// StaticTokenProvider serves one fixed token for every account. Useful for
// development and tests.
type StaticTokenProvider struct {
	Token *oauth2.Token
}

// TokenSource implements TokenProvider
func (p *StaticTokenProvider) TokenSource(_ context.Context, _ string) (oauth2.TokenSource, error) {
	return oauth2.StaticTokenSource(p.Token), nil
}

// ClassifyStatus maps a provider HTTP status onto the error taxonomy.
// Rate limiting and server errors are transient; auth failures are fatal
// because retrying with the same credentials cannot succeed.
func ClassifyStatus(status int, operation string) error {
	switch {
	case status == 429 || status >= 500:
		return apperrors.Transient(fmt.Errorf("%s: provider returned status %d", operation, status))
	case status == 401 || status == 403:
		return apperrors.Fatal(fmt.Errorf("%s: provider rejected credentials with status %d", operation, status))
	case status == 404:
		return fmt.Errorf("%w: %s", apperrors.ErrNotFound, operation)
	case status == 400:
		return fmt.Errorf("%w: %s: provider rejected request", apperrors.ErrValidation, operation)
	default:
		return apperrors.Fatal(fmt.Errorf("%s: provider returned unexpected status %d", operation, status))
	}
}

// ClassifyTransportError maps token refresh and transport failures.
// An invalid_grant refresh response means the grant is revoked or expired;
// network failures are worth retrying.
func ClassifyTransportError(err error, operation string) error {
	if err == nil {
		return nil
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.ErrorCode == "invalid_grant" {
			return apperrors.Fatal(fmt.Errorf("%s: oauth grant revoked or expired", operation))
		}
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= 500 {
			return apperrors.Transient(fmt.Errorf("%s: token endpoint unavailable", operation))
		}
		return apperrors.Fatal(fmt.Errorf("%s: token refresh rejected: %v", operation, err))
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return apperrors.Transient(fmt.Errorf("%s: %v", operation, err))
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Cancelled(err)
	}

	// Unknown transport failures are treated as transient; the breaker
	// decides when to stop trusting the downstream
	return apperrors.Transient(fmt.Errorf("%s: %v", operation, err))
}
