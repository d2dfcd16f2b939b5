// Package outlook integrates the Microsoft Graph mail API as a provider.
package outlook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	apperrors "github.com/syncwell/mailsync-backend/internal/errors"
	"github.com/syncwell/mailsync-backend/internal/models"
	"github.com/syncwell/mailsync-backend/internal/provider"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Microsoft Graph v1.0 endpoint
	DefaultBaseURL = "https://graph.microsoft.com/v1.0"

	// Graph caps $top at 100 for message listings
	maxPageSize     = 100
	defaultPageSize = 50

	requestsPerSecond = 10
	requestBurst      = 10

	requestTimeout = 30 * time.Second

	// Graph only returns the fields named in $select. internetMessageHeaders
	// is restricted to single-message requests, so the list selection omits it.
	listSelectFields    = "id,internetMessageId,conversationId,subject,bodyPreview,importance,isRead,categories,sentDateTime,receivedDateTime,body,from,toRecipients,ccRecipients,bccRecipients,parentFolderId"
	messageSelectFields = listSelectFields + ",internetMessageHeaders"
)

// Client fetches and lists Outlook messages through Microsoft Graph,
// normalizing them into the canonical model.
type Client struct {
	tokens  provider.TokenProvider
	limiter *rate.Limiter
	logger  *slog.Logger
	baseURL string

	mu      sync.RWMutex
	clients map[string]*http.Client
}

// Option configures the client
type Option func(*Client)

// WithBaseURL overrides the Graph endpoint. Used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// New creates an Outlook provider client
func New(tokens provider.TokenProvider, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		tokens:  tokens,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		logger:  logger,
		baseURL: DefaultBaseURL,
		clients: make(map[string]*http.Client),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements provider.Client
func (c *Client) Name() string {
	return "outlook"
}

// FetchMessage retrieves one message with its attachments expanded
func (c *Client) FetchMessage(ctx context.Context, accountID, messageID string) (*models.Email, error) {
	endpoint := fmt.Sprintf("%s/me/messages/%s?%s", c.baseURL, url.PathEscape(messageID),
		url.Values{"$expand": {"attachments"}, "$select": {messageSelectFields}}.Encode())

	var msg graphMessage
	if err := c.get(ctx, accountID, endpoint, &msg, "outlook.FetchMessage"); err != nil {
		return nil, err
	}

	return convertMessage(&msg, accountID)
}

// ListMessages retrieves one page of messages. The page token is either empty
// or a full @odata.nextLink from the previous page, passed back unmodified.
func (c *Client) ListMessages(ctx context.Context, accountID, folder string, pageSize int, pageToken string) (*provider.Page, error) {
	endpoint := pageToken
	if endpoint == "" {
		endpoint = c.listURL(folder, clampPageSize(pageSize))
	}

	var listing graphListing
	if err := c.get(ctx, accountID, endpoint, &listing, "outlook.ListMessages"); err != nil {
		return nil, err
	}

	page := &provider.Page{
		NextPageToken: listing.NextLink,
		Emails:        make([]*models.Email, 0, len(listing.Value)),
	}
	for i := range listing.Value {
		email, err := convertMessage(&listing.Value[i], accountID)
		if err != nil {
			return nil, err
		}
		page.Emails = append(page.Emails, email)
	}
	return page, nil
}

func (c *Client) listURL(folder string, pageSize int) string {
	params := url.Values{
		"$top":     {fmt.Sprintf("%d", pageSize)},
		"$expand":  {"attachments"},
		"$select":  {listSelectFields},
		"$orderby": {"receivedDateTime desc"},
	}
	if folder == "" {
		return fmt.Sprintf("%s/me/messages?%s", c.baseURL, params.Encode())
	}
	return fmt.Sprintf("%s/me/mailFolders/%s/messages?%s", c.baseURL, url.PathEscape(folderID(folder)), params.Encode())
}

// get performs one authenticated Graph request and decodes the response
func (c *Client) get(ctx context.Context, accountID, endpoint string, out interface{}, operation string) error {
	httpClient, err := c.client(ctx, accountID)
	if err != nil {
		return err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return provider.ClassifyTransportError(err, operation)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrValidation, operation, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return provider.ClassifyTransportError(err, operation)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little of the body for the log, then classify by status
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Debug("graph request failed",
			slog.String("operation", operation),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)
		return provider.ClassifyStatus(resp.StatusCode, operation)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Fatal(fmt.Errorf("%s: decoding graph response: %v", operation, err))
	}
	return nil
}

// client returns a cached per-account oauth2 http client
func (c *Client) client(ctx context.Context, accountID string) (*http.Client, error) {
	c.mu.RLock()
	hc, ok := c.clients[accountID]
	c.mu.RUnlock()
	if ok {
		return hc, nil
	}

	ts, err := c.tokens.TokenSource(ctx, accountID)
	if err != nil {
		return nil, provider.ClassifyTransportError(err, "outlook.TokenSource")
	}

	hc = oauth2.NewClient(context.Background(), ts)
	hc.Timeout = requestTimeout

	c.mu.Lock()
	c.clients[accountID] = hc
	c.mu.Unlock()

	c.logger.Debug("graph client created", slog.String("account_id", accountID))
	return hc, nil
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

// folderID maps canonical folder names onto Graph well-known folder ids
func folderID(folder string) string {
	switch strings.ToLower(folder) {
	case "inbox":
		return "inbox"
	case "sent":
		return "sentitems"
	case "drafts":
		return "drafts"
	case "spam":
		return "junkemail"
	case "trash":
		return "deleteditems"
	case "archive":
		return "archive"
	default:
		return folder
	}
}
