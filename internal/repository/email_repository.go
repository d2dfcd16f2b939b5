package repository

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	apperrors "github.com/syncwell/mailsync-backend/internal/errors"
	"github.com/syncwell/mailsync-backend/internal/models"
	"github.com/syncwell/mailsync-backend/internal/shard"
	"gorm.io/gorm"
)

// Transaction retry configuration. Serializable transactions are expected
// to abort under contention; retrying with a short backoff is the normal
// recovery path.
const (
	maxTxRetries      = 3
	defaultRetryDelay = 100 * time.Millisecond
)

// EmailPage is one page of a folder listing
type EmailPage struct {
	Emails        []*models.Email
	NextPageToken string
	TotalCount    int64
}

// EmailRepository defines the interface for email data access. Every
// operation routes to the shard owning the account and runs inside a
// serializable transaction.
type EmailRepository interface {
	Create(ctx context.Context, email *models.Email) error
	GetByID(ctx context.Context, accountID, messageID string) (*models.Email, error)
	GetThread(ctx context.Context, accountID, threadID string) ([]*models.Email, error)
	List(ctx context.Context, accountID, folder string, pageSize int, pageToken string) (*EmailPage, error)
	UpdateLabels(ctx context.Context, accountID, messageID string, labels []string) error
	UpdateFolder(ctx context.Context, accountID, messageID, folder string) error
	UpdateStatus(ctx context.Context, accountID, messageID string, status models.Status) error
	Delete(ctx context.Context, accountID, messageID string) error
}

// emailRepository implements EmailRepository over a shard cluster using GORM
type emailRepository struct {
	cluster    *shard.Cluster
	retryDelay time.Duration
}

// NewEmailRepository creates a new EmailRepository instance
func NewEmailRepository(cluster *shard.Cluster) EmailRepository {
	return &emailRepository{cluster: cluster, retryDelay: defaultRetryDelay}
}

var serializableTx = &sql.TxOptions{Isolation: sql.LevelSerializable}

// Create persists an email and its attachments atomically on the account's
// shard. Re-ingesting the same (account, message) pair returns ErrConflict
// and leaves the stored row untouched. The thread position is assigned
// inside the transaction so interleaved creates in the same thread still
// produce a dense 1..N sequence.
func (r *emailRepository) Create(ctx context.Context, email *models.Email) error {
	if email.ID == "" {
		email.ID = uuid.NewString()
	}
	email.EnsureTimestamps()
	if email.Status == "" {
		email.Status = models.StatusUnread
	}
	if email.Priority == "" {
		email.Priority = models.PriorityNormal
	}

	db := r.cluster.ForAccount(email.AccountID)
	return r.withRetry(ctx, func() error {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&models.Email{}).
				Where("account_id = ? AND message_id = ?", email.AccountID, email.MessageID).
				Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check for existing email: %w", err)
			}
			if count > 0 {
				return fmt.Errorf("%w: message %s already exists for account %s",
					apperrors.ErrConflict, email.MessageID, email.AccountID)
			}

			var threadSize int64
			if err := tx.Model(&models.Email{}).
				Where("account_id = ? AND thread_id = ?", email.AccountID, email.ThreadID).
				Count(&threadSize).Error; err != nil {
				return fmt.Errorf("failed to count thread: %w", err)
			}
			email.ThreadPosition = int(threadSize) + 1

			for i := range email.Attachments {
				if email.Attachments[i].ID == "" {
					email.Attachments[i].ID = uuid.NewString()
				}
				email.Attachments[i].EmailID = email.ID
			}

			if err := tx.Create(email).Error; err != nil {
				if isDuplicateKeyError(err) {
					return fmt.Errorf("%w: message %s already exists for account %s",
						apperrors.ErrConflict, email.MessageID, email.AccountID)
				}
				return fmt.Errorf("failed to create email: %w", err)
			}
			return nil
		}, serializableTx)
	})
}

// GetByID retrieves an email by provider message id with preloaded attachments
func (r *emailRepository) GetByID(ctx context.Context, accountID, messageID string) (*models.Email, error) {
	db := r.cluster.ForAccount(accountID)

	var email models.Email
	err := r.withRetry(ctx, func() error {
		result := db.WithContext(ctx).
			Preload("Attachments").
			Where("account_id = ? AND message_id = ?", accountID, messageID).
			First(&email)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: message %s", apperrors.ErrNotFound, messageID)
			}
			return fmt.Errorf("failed to get email: %w", result.Error)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &email, nil
}

// GetThread retrieves every email in a thread ordered by thread position.
// An unknown thread id yields an empty slice, not an error.
func (r *emailRepository) GetThread(ctx context.Context, accountID, threadID string) ([]*models.Email, error) {
	db := r.cluster.ForAccount(accountID)

	var emails []*models.Email
	err := r.withRetry(ctx, func() error {
		result := db.WithContext(ctx).
			Preload("Attachments").
			Where("account_id = ? AND thread_id = ?", accountID, threadID).
			Order("thread_position ASC").
			Find(&emails)
		if result.Error != nil {
			return fmt.Errorf("failed to get thread: %w", result.Error)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if emails == nil {
		emails = []*models.Email{}
	}
	return emails, nil
}

// List retrieves one page of an account's emails, newest first, optionally
// filtered by folder. Soft-deleted emails are excluded.
func (r *emailRepository) List(ctx context.Context, accountID, folder string, pageSize int, pageToken string) (*EmailPage, error) {
	offset, err := decodePageToken(pageToken)
	if err != nil {
		return nil, err
	}

	db := r.cluster.ForAccount(accountID)
	page := &EmailPage{}

	scoped := func() *gorm.DB {
		query := db.WithContext(ctx).Model(&models.Email{}).
			Where("account_id = ? AND status <> ?", accountID, models.StatusDeleted)
		if folder != "" {
			query = query.Where("folder_path = ?", folder)
		}
		return query
	}

	err = r.withRetry(ctx, func() error {
		if err := scoped().Count(&page.TotalCount).Error; err != nil {
			return fmt.Errorf("failed to count emails: %w", err)
		}

		var emails []*models.Email
		if err := scoped().
			Preload("Attachments").
			Order("received_at DESC").
			Limit(pageSize).
			Offset(offset).
			Find(&emails).Error; err != nil {
			return fmt.Errorf("failed to list emails: %w", err)
		}
		page.Emails = emails
		return nil
	})
	if err != nil {
		return nil, err
	}

	if page.Emails == nil {
		page.Emails = []*models.Email{}
	}
	if int64(offset+len(page.Emails)) < page.TotalCount {
		page.NextPageToken = encodePageToken(offset + len(page.Emails))
	}
	return page, nil
}

// UpdateLabels replaces the label set of an email
func (r *emailRepository) UpdateLabels(ctx context.Context, accountID, messageID string, labels []string) error {
	return r.updateColumns(ctx, accountID, messageID, map[string]interface{}{
		"labels": models.StringSlice(labels),
	})
}

// UpdateFolder moves an email to another folder
func (r *emailRepository) UpdateFolder(ctx context.Context, accountID, messageID, folder string) error {
	return r.updateColumns(ctx, accountID, messageID, map[string]interface{}{
		"folder_path": folder,
	})
}

// UpdateStatus transitions an email's lifecycle status
func (r *emailRepository) UpdateStatus(ctx context.Context, accountID, messageID string, status models.Status) error {
	return r.updateColumns(ctx, accountID, messageID, map[string]interface{}{
		"status": status,
	})
}

// Delete soft-deletes an email by marking its status
func (r *emailRepository) Delete(ctx context.Context, accountID, messageID string) error {
	return r.UpdateStatus(ctx, accountID, messageID, models.StatusDeleted)
}

func (r *emailRepository) updateColumns(ctx context.Context, accountID, messageID string, updates map[string]interface{}) error {
	db := r.cluster.ForAccount(accountID)
	return r.withRetry(ctx, func() error {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			result := tx.Model(&models.Email{}).
				Where("account_id = ? AND message_id = ?", accountID, messageID).
				Updates(updates)
			if result.Error != nil {
				return fmt.Errorf("failed to update email: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("%w: message %s", apperrors.ErrNotFound, messageID)
			}
			return nil
		}, serializableTx)
	})
}

// withRetry runs op, retrying serialization aborts, deadlocks, and lock
// timeouts with exponential backoff. Cancellation during a wait surfaces as
// ErrCancelled; exhausted retries surface as ErrTransient.
func (r *emailRepository) withRetry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.retryDelay
	bo.MaxInterval = 2 * time.Second

	err := backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if isRetryableError(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(bo, maxTxRetries), ctx))

	if err == nil {
		return nil
	}
	if cancelled := apperrors.Cancelled(err); apperrors.IsCancelled(cancelled) {
		return cancelled
	}
	if isRetryableError(err) {
		return apperrors.Transient(err)
	}
	return err
}

// encodePageToken encodes a listing offset as an opaque cursor
func encodePageToken(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

// decodePageToken decodes an opaque cursor back into an offset
func decodePageToken(token string) (int, error) {
	if token == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed page token", apperrors.ErrValidation)
	}
	offset, err := strconv.Atoi(string(raw))
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("%w: malformed page token", apperrors.ErrValidation)
	}
	return offset, nil
}
