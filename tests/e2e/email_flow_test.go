//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"
	"github.com/syncwell/mailsync-backend/internal/api"
	"github.com/syncwell/mailsync-backend/internal/cache"
	"github.com/syncwell/mailsync-backend/internal/metrics"
	"github.com/syncwell/mailsync-backend/internal/models"
	"github.com/syncwell/mailsync-backend/internal/provider"
	"github.com/syncwell/mailsync-backend/internal/repository"
	"github.com/syncwell/mailsync-backend/internal/resilience"
	"github.com/syncwell/mailsync-backend/internal/services"
	"github.com/syncwell/mailsync-backend/internal/shard"
	"github.com/syncwell/mailsync-backend/tests/fixtures"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// pagedProvider serves fixture emails in fixed-size pages
type pagedProvider struct {
	name     string
	emails   []*models.Email
	pageSize int
}

func (p *pagedProvider) Name() string { return p.name }

func (p *pagedProvider) FetchMessage(_ context.Context, _, _ string) (*models.Email, error) {
	return nil, errors.New("not used")
}

func (p *pagedProvider) ListMessages(_ context.Context, _, _ string, _ int, pageToken string) (*provider.Page, error) {
	offset := 0
	if pageToken != "" {
		if _, err := fmt.Sscanf(pageToken, "offset-%d", &offset); err != nil {
			return nil, fmt.Errorf("bad page token %q", pageToken)
		}
	}
	end := offset + p.pageSize
	if end > len(p.emails) {
		end = len(p.emails)
	}
	page := &provider.Page{Emails: p.emails[offset:end]}
	if end < len(p.emails) {
		page.NextPageToken = fmt.Sprintf("offset-%d", end)
	}
	return page, nil
}

// EmailFlowSuite drives the whole stack from the HTTP surface down to the
// sharded store: sync, read, mutate, delete.
type EmailFlowSuite struct {
	suite.Suite
	router   *echo.Echo
	provider *pagedProvider
}

func (s *EmailFlowSuite) SetupTest() {
	dbs := make([]*gorm.DB, 2)
	for i := range dbs {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		s.Require().NoError(err)
		s.Require().NoError(db.AutoMigrate(&models.Email{}, &models.Attachment{}))
		dbs[i] = db
	}
	cluster, err := shard.NewCluster(dbs)
	s.Require().NoError(err)

	sink := metrics.New()
	discard := slog.New(slog.DiscardHandler)
	emails := services.NewEmailService(
		repository.NewEmailRepository(cluster),
		cache.New(time.Minute),
		cluster,
		sink,
		discard,
		resilience.Config{
			MaxRetries: -1,
			BaseDelay:  time.Millisecond,
			MaxDelay:   5 * time.Millisecond,
		},
	)

	s.provider = &pagedProvider{
		name:     "gmail",
		emails:   fixtures.CreateEmails("acct-1", 5),
		pageSize: 2,
	}
	s.router = api.NewRouter(&api.RouterConfig{
		Emails:    emails,
		Sync:      services.NewSyncService([]provider.Client{s.provider}, emails, sink, discard, 2),
		Metrics:   sink,
		Logger:    discard,
		RateLimit: 1000,
		RateBurst: 1000,
	})
}

func (s *EmailFlowSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("X-Account-ID", "acct-1")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *EmailFlowSuite) syncAll() {
	token := ""
	for {
		body := fmt.Sprintf(`{"provider":"gmail","account_id":"acct-1","page_token":%q}`, token)
		rec := s.do(http.MethodPost, "/api/v1/sync", body)
		s.Require().Equal(http.StatusOK, rec.Code)

		var resp struct {
			Data services.SyncResult `json:"data"`
		}
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Equal(0, resp.Data.Failed)

		if resp.Data.NextPageToken == "" {
			return
		}
		token = resp.Data.NextPageToken
	}
}

func (s *EmailFlowSuite) TestFullFlow_SyncReadMutateDelete() {
	// Sync every provider page
	s.syncAll()

	// The full mailbox is listable
	rec := s.do(http.MethodGet, "/api/v1/emails", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var listing struct {
		Data []models.Email `json:"data"`
		Meta struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &listing))
	s.Equal(int64(5), listing.Meta.Total)

	// Single message reads resolve by provider message id
	rec = s.do(http.MethodGet, "/api/v1/emails/msg-3", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "Message 3")

	// Threads come back in position order
	rec = s.do(http.MethodGet, "/api/v1/threads/thread-1", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var thread struct {
		Data []models.Email `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &thread))
	s.Require().Len(thread.Data, 2)
	s.Equal(1, thread.Data[0].ThreadPosition)
	s.Equal(2, thread.Data[1].ThreadPosition)

	// Mutations round-trip
	rec = s.do(http.MethodPut, "/api/v1/emails/msg-1/labels", `{"labels":["travel"]}`)
	s.Require().Equal(http.StatusOK, rec.Code)
	rec = s.do(http.MethodPut, "/api/v1/emails/msg-1/folder", `{"folder":"Archive"}`)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/emails/msg-1", "")
	s.Contains(rec.Body.String(), "travel")
	s.Contains(rec.Body.String(), "Archive")

	// Deleting hides the message from listings but keeps account totals sane
	rec = s.do(http.MethodDelete, "/api/v1/emails/msg-2", "")
	s.Require().Equal(http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/emails", "")
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &listing))
	s.Equal(int64(4), listing.Meta.Total)
}

func (s *EmailFlowSuite) TestFullFlow_ResyncIsIdempotent() {
	s.syncAll()
	s.syncAll()

	rec := s.do(http.MethodGet, "/api/v1/emails", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var listing struct {
		Meta struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &listing))
	s.Equal(int64(5), listing.Meta.Total)
}

func TestEmailFlowSuite(t *testing.T) {
	suite.Run(t, new(EmailFlowSuite))
}
