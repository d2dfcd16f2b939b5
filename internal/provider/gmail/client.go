// Package gmail integrates the Gmail REST API as a mail provider.
package gmail

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/syncwell/mailsync-backend/internal/models"
	"github.com/syncwell/mailsync-backend/internal/provider"
	"golang.org/x/time/rate"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	// Gmail caps maxResults at 500 per list call
	maxPageSize     = 500
	defaultPageSize = 50

	// Requests per second against the Gmail API, shared by all accounts
	requestsPerSecond = 25
	requestBurst      = 50
)

// Client fetches and lists Gmail messages, normalizing them into the
// canonical model.
type Client struct {
	tokens  provider.TokenProvider
	limiter *rate.Limiter
	logger  *slog.Logger

	mu       sync.RWMutex
	services map[string]*gmailapi.Service
}

// New creates a Gmail provider client
func New(tokens provider.TokenProvider, logger *slog.Logger) *Client {
	return &Client{
		tokens:   tokens,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		logger:   logger,
		services: make(map[string]*gmailapi.Service),
	}
}

// Name implements provider.Client
func (c *Client) Name() string {
	return "gmail"
}

// FetchMessage retrieves one message in full and normalizes it
func (c *Client) FetchMessage(ctx context.Context, accountID, messageID string) (*models.Email, error) {
	svc, err := c.service(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	msg, err := svc.Users.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, classifyError(err, "gmail.FetchMessage")
	}

	email, err := convertMessage(msg, accountID)
	if err != nil {
		return nil, err
	}
	return email, nil
}

// ListMessages retrieves one page of message ids and fetches each message in
// full with bounded concurrency. The returned page token comes straight from
// the Gmail API and is passed back unmodified on the next call.
func (c *Client) ListMessages(ctx context.Context, accountID, folder string, pageSize int, pageToken string) (*provider.Page, error) {
	svc, err := c.service(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	call := svc.Users.Messages.List("me").
		MaxResults(int64(clampPageSize(pageSize))).
		Context(ctx)
	if folder != "" {
		call = call.LabelIds(folderToLabelID(folder))
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, classifyError(err, "gmail.ListMessages")
	}

	page := &provider.Page{
		NextPageToken: resp.NextPageToken,
		TotalEstimate: resp.ResultSizeEstimate,
		Emails:        make([]*models.Email, 0, len(resp.Messages)),
	}

	// Fetch full messages with a bounded worker count; one bad message
	// fails the page so the sync cursor never skips silently.
	type result struct {
		index int
		email *models.Email
		err   error
	}

	sem := make(chan struct{}, 5)
	results := make(chan result, len(resp.Messages))
	var wg sync.WaitGroup

	for i, ref := range resp.Messages {
		wg.Add(1)
		go func(index int, id string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results <- result{index: index, err: ctx.Err()}
				return
			}
			email, err := c.FetchMessage(ctx, accountID, id)
			results <- result{index: index, email: email, err: err}
		}(i, ref.Id)
	}
	wg.Wait()
	close(results)

	ordered := make([]*models.Email, len(resp.Messages))
	for res := range results {
		if res.err != nil {
			return nil, res.err
		}
		ordered[res.index] = res.email
	}
	page.Emails = append(page.Emails, ordered...)

	return page, nil
}

// service returns a cached per-account Gmail service, creating one on first use
func (c *Client) service(ctx context.Context, accountID string) (*gmailapi.Service, error) {
	c.mu.RLock()
	svc, ok := c.services[accountID]
	c.mu.RUnlock()
	if ok {
		return svc, nil
	}

	ts, err := c.tokens.TokenSource(ctx, accountID)
	if err != nil {
		return nil, provider.ClassifyTransportError(err, "gmail.TokenSource")
	}

	svc, err = gmailapi.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, provider.ClassifyTransportError(err, "gmail.NewService")
	}

	c.mu.Lock()
	c.services[accountID] = svc
	c.mu.Unlock()

	c.logger.Debug("gmail service created", slog.String("account_id", accountID))
	return svc, nil
}

func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return provider.ClassifyTransportError(err, "gmail.RateLimit")
	}
	return nil
}

func clampPageSize(pageSize int) int {
	if pageSize <= 0 {
		return defaultPageSize
	}
	if pageSize > maxPageSize {
		return maxPageSize
	}
	return pageSize
}

// classifyError maps googleapi errors onto the taxonomy
func classifyError(err error, operation string) error {
	if err == nil {
		return nil
	}
	if apiErr, ok := err.(*googleapi.Error); ok {
		return provider.ClassifyStatus(apiErr.Code, fmt.Sprintf("%s: %s", operation, apiErr.Message))
	}
	return provider.ClassifyTransportError(err, operation)
}
