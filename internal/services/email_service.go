// Package services contains the business logic between the HTTP handlers and
// the repository, cache, and provider layers.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/syncwell/mailsync-backend/internal/cache"
	apperrors "github.com/syncwell/mailsync-backend/internal/errors"
	"github.com/syncwell/mailsync-backend/internal/metrics"
	"github.com/syncwell/mailsync-backend/internal/models"
	"github.com/syncwell/mailsync-backend/internal/repository"
	"github.com/syncwell/mailsync-backend/internal/resilience"
	"github.com/syncwell/mailsync-backend/internal/shard"
	"github.com/syncwell/mailsync-backend/internal/validator"
)

// Logical operation names. Each gets its own circuit breaker so a struggling
// write path cannot trip reads.
const (
	opProcessEmail = "process_email"
	opGetEmail     = "get_email"
	opGetThread    = "get_thread"
	opListEmails   = "list_emails"
	opUpdateLabels = "update_labels"
	opMoveFolder   = "move_folder"
	opDeleteEmail  = "delete_email"
)

// HealthStatus is the service health snapshot served by the readiness probe
type HealthStatus struct {
	Healthy      bool              `json:"healthy"`
	Shards       int               `json:"shards"`
	CachedEmails int               `json:"cached_emails"`
	Breakers     map[string]string `json:"breakers"`
	Error        string            `json:"error,omitempty"`
}

// EmailService coordinates persistence, caching, and resilience for the
// canonical email operations.
type EmailService struct {
	repo     repository.EmailRepository
	cache    *cache.EmailCache
	cluster  *shard.Cluster
	sink     *metrics.Metrics
	logger   *slog.Logger
	wrappers map[string]*resilience.Wrapper
}

// NewEmailService creates an EmailService. Every logical operation gets its
// own resilience wrapper built from cfg.
func NewEmailService(
	repo repository.EmailRepository,
	emailCache *cache.EmailCache,
	cluster *shard.Cluster,
	sink *metrics.Metrics,
	logger *slog.Logger,
	cfg resilience.Config,
) *EmailService {
	s := &EmailService{
		repo:     repo,
		cache:    emailCache,
		cluster:  cluster,
		sink:     sink,
		logger:   logger,
		wrappers: make(map[string]*resilience.Wrapper),
	}
	for _, name := range []string{
		opProcessEmail, opGetEmail, opGetThread, opListEmails,
		opUpdateLabels, opMoveFolder, opDeleteEmail,
	} {
		s.wrappers[name] = resilience.New(name, cfg, sink, logger)
	}
	return s
}

// ProcessEmail validates and persists one normalized email, writing through
// to the cache. Re-processing an already stored (account, message) pair is
// not an error; it reports created=false so sync tallies stay accurate.
func (s *EmailService) ProcessEmail(ctx context.Context, email *models.Email) (created bool, err error) {
	if email == nil {
		return false, fmt.Errorf("%w: email is required", apperrors.ErrValidation)
	}
	if err := email.Validate(); err != nil {
		return false, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	err = s.wrappers[opProcessEmail].Execute(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, email)
	})
	if err != nil {
		if apperrors.IsConflict(err) {
			s.sink.DuplicateEmails.Inc()
			s.logger.Debug("duplicate email skipped",
				slog.String("account_id", email.AccountID),
				slog.String("message_id", email.MessageID),
			)
			return false, nil
		}
		return false, err
	}

	s.cache.Set(email)
	return true, nil
}

// GetEmail returns one email, served from cache when possible
func (s *EmailService) GetEmail(ctx context.Context, accountID, messageID string) (*models.Email, error) {
	if accountID == "" || messageID == "" {
		return nil, fmt.Errorf("%w: account id and message id are required", apperrors.ErrValidation)
	}

	if email, ok := s.cache.Get(accountID, messageID); ok {
		s.sink.CacheHits.Inc()
		return email, nil
	}
	s.sink.CacheMisses.Inc()

	var email *models.Email
	err := s.wrappers[opGetEmail].Execute(ctx, func(ctx context.Context) error {
		var gerr error
		email, gerr = s.repo.GetByID(ctx, accountID, messageID)
		return gerr
	})
	if err != nil {
		return nil, err
	}

	s.cache.Set(email)
	return email, nil
}

// GetThread returns every email in a thread in thread position order
func (s *EmailService) GetThread(ctx context.Context, accountID, threadID string) ([]*models.Email, error) {
	if accountID == "" || threadID == "" {
		return nil, fmt.Errorf("%w: account id and thread id are required", apperrors.ErrValidation)
	}

	var emails []*models.Email
	err := s.wrappers[opGetThread].Execute(ctx, func(ctx context.Context) error {
		var gerr error
		emails, gerr = s.repo.GetThread(ctx, accountID, threadID)
		return gerr
	})
	if err != nil {
		return nil, err
	}
	return emails, nil
}

// ListEmails returns one page of an account's emails, newest first
func (s *EmailService) ListEmails(ctx context.Context, accountID, folder string, pageSize int, pageToken string) (*repository.EmailPage, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: account id is required", apperrors.ErrValidation)
	}
	pageSize = validator.ValidatePageSize(pageSize)

	var page *repository.EmailPage
	err := s.wrappers[opListEmails].Execute(ctx, func(ctx context.Context) error {
		var lerr error
		page, lerr = s.repo.List(ctx, accountID, folder, pageSize, pageToken)
		return lerr
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// UpdateLabels replaces the label set of an email and invalidates its cache
// entry
func (s *EmailService) UpdateLabels(ctx context.Context, accountID, messageID string, labels []string) error {
	if accountID == "" || messageID == "" {
		return fmt.Errorf("%w: account id and message id are required", apperrors.ErrValidation)
	}

	err := s.wrappers[opUpdateLabels].Execute(ctx, func(ctx context.Context) error {
		return s.repo.UpdateLabels(ctx, accountID, messageID, labels)
	})
	if err != nil {
		return err
	}
	s.cache.Delete(accountID, messageID)
	return nil
}

// MoveToFolder moves an email to another folder and invalidates its cache
// entry
func (s *EmailService) MoveToFolder(ctx context.Context, accountID, messageID, folder string) error {
	if accountID == "" || messageID == "" {
		return fmt.Errorf("%w: account id and message id are required", apperrors.ErrValidation)
	}
	if folder == "" {
		return fmt.Errorf("%w: folder is required", apperrors.ErrValidation)
	}

	err := s.wrappers[opMoveFolder].Execute(ctx, func(ctx context.Context) error {
		return s.repo.UpdateFolder(ctx, accountID, messageID, folder)
	})
	if err != nil {
		return err
	}
	s.cache.Delete(accountID, messageID)
	return nil
}

// DeleteEmail soft-deletes an email and invalidates its cache entry
func (s *EmailService) DeleteEmail(ctx context.Context, accountID, messageID string) error {
	if accountID == "" || messageID == "" {
		return fmt.Errorf("%w: account id and message id are required", apperrors.ErrValidation)
	}

	err := s.wrappers[opDeleteEmail].Execute(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, accountID, messageID)
	})
	if err != nil {
		return err
	}
	s.cache.Delete(accountID, messageID)
	return nil
}

// Health reports shard reachability, cache occupancy, and breaker states
func (s *EmailService) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy:      true,
		CachedEmails: s.cache.ItemCount(),
		Breakers:     make(map[string]string, len(s.wrappers)),
	}
	for name, w := range s.wrappers {
		status.Breakers[name] = w.State()
	}

	if s.cluster != nil {
		status.Shards = s.cluster.ShardCount()
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.cluster.Ping(ctx); err != nil {
			status.Healthy = false
			status.Error = err.Error()
		}
	}
	return status
}
