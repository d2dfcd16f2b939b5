package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/syncwell/mailsync-backend/internal/errors"
)

func newContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestSuccess(t *testing.T) {
	c, rec := newContext(t)

	err := Success(c, map[string]string{"id": "msg-1"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
}

func TestPaginated_CarriesCursor(t *testing.T) {
	c, rec := newContext(t)

	err := Paginated(c, []string{"a", "b"}, 10, 2, "cursor-next")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body PaginatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(10), body.Meta.Total)
	assert.Equal(t, 2, body.Meta.PageSize)
	assert.Equal(t, "cursor-next", body.Meta.NextPageToken)
}

func TestError_StatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", apperrors.Wrap(apperrors.ErrNotFound, "missing"), http.StatusNotFound, apperrors.CodeNotFound},
		{"conflict", apperrors.Wrap(apperrors.ErrConflict, "already stored"), http.StatusConflict, apperrors.CodeConflict},
		{"validation", apperrors.Wrap(apperrors.ErrValidation, "bad input"), http.StatusBadRequest, apperrors.CodeValidation},
		{"transient", apperrors.Transient(errors.New("downstream flaky")), http.StatusServiceUnavailable, apperrors.CodeTransient},
		{"breaker open", apperrors.Wrap(apperrors.ErrBreakerOpen, "get_email"), http.StatusServiceUnavailable, apperrors.CodeBreakerOpen},
		{"fatal", apperrors.Fatal(errors.New("grant revoked")), http.StatusBadGateway, apperrors.CodeFatal},
		{"cancelled", apperrors.Wrap(apperrors.ErrCancelled, "client gone"), http.StatusRequestTimeout, apperrors.CodeCancelled},
		{"unauthorized", apperrors.Wrap(apperrors.ErrUnauthorized, "bad key"), http.StatusUnauthorized, apperrors.CodeUnauthorized},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, apperrors.CodeInternalError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newContext(t)

			require.NoError(t, Error(c, tc.err))

			assert.Equal(t, tc.wantStatus, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tc.wantCode, body.Code)
		})
	}
}

func TestBadRequest(t *testing.T) {
	c, rec := newContext(t)

	require.NoError(t, BadRequest(c, "account id header is required"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apperrors.CodeValidation, body.Code)
}
