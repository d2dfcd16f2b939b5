package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/syncwell/mailsync-backend/internal/errors"
	"github.com/syncwell/mailsync-backend/internal/shard"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Postgres-specific failure codes cannot be produced by the sqlite-backed
// suite, so the retry paths are exercised against a mocked connection.

func newMockRepo(t *testing.T) (*emailRepository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	cluster, err := shard.NewCluster([]*gorm.DB{gdb})
	require.NoError(t, err)

	return &emailRepository{cluster: cluster, retryDelay: time.Millisecond}, mock
}

func TestGetByID_RetriesSerializationFailure(t *testing.T) {
	// Arrange
	repo, mock := newMockRepo(t)
	serErr := errors.New("ERROR: could not serialize access due to concurrent update (SQLSTATE 40001)")

	mock.ExpectQuery(`SELECT .* FROM "emails"`).WillReturnError(serErr)
	mock.ExpectQuery(`SELECT .* FROM "emails"`).WillReturnRows(
		sqlmock.NewRows([]string{"id", "message_id", "account_id", "thread_id", "thread_position"}).
			AddRow("id-1", "msg-1", "acct-1", "thread-1", 1))
	mock.ExpectQuery(`SELECT .* FROM "attachments"`).WillReturnRows(
		sqlmock.NewRows([]string{"id", "email_id"}))

	// Act
	email, err := repo.GetByID(context.Background(), "acct-1", "msg-1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "msg-1", email.MessageID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_RetriesDeadlock(t *testing.T) {
	// Arrange
	repo, mock := newMockRepo(t)
	deadlockErr := errors.New("ERROR: deadlock detected (SQLSTATE 40P01)")

	mock.ExpectQuery(`SELECT .* FROM "emails"`).WillReturnError(deadlockErr)
	mock.ExpectQuery(`SELECT .* FROM "emails"`).WillReturnRows(
		sqlmock.NewRows([]string{"id", "message_id", "account_id", "thread_id", "thread_position"}).
			AddRow("id-1", "msg-1", "acct-1", "thread-1", 1))
	mock.ExpectQuery(`SELECT .* FROM "attachments"`).WillReturnRows(
		sqlmock.NewRows([]string{"id", "email_id"}))

	// Act
	_, err := repo.GetByID(context.Background(), "acct-1", "msg-1")

	// Assert
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_ExhaustedRetriesSurfaceAsTransient(t *testing.T) {
	// Arrange: initial attempt plus three retries, all failing
	repo, mock := newMockRepo(t)
	lockErr := errors.New("ERROR: canceling statement due to lock timeout (SQLSTATE 55P03)")
	for i := 0; i < maxTxRetries+1; i++ {
		mock.ExpectQuery(`SELECT .* FROM "emails"`).WillReturnError(lockErr)
	}

	// Act
	_, err := repo.GetByID(context.Background(), "acct-1", "msg-1")

	// Assert
	require.Error(t, err)
	assert.True(t, apperrors.IsTransient(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NonRetryableErrorFailsImmediately(t *testing.T) {
	// Arrange: a permanent failure must not be retried
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT .* FROM "emails"`).
		WillReturnError(errors.New(`ERROR: relation "emails" does not exist (SQLSTATE 42P01)`))

	// Act
	_, err := repo.GetByID(context.Background(), "acct-1", "msg-1")

	// Assert
	require.Error(t, err)
	assert.False(t, apperrors.IsTransient(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsRetryableError_Classification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"serialization failure", errors.New("SQLSTATE 40001"), true},
		{"deadlock", errors.New("deadlock detected"), true},
		{"lock timeout", errors.New("SQLSTATE 55P03"), true},
		{"sqlite busy", errors.New("database is locked"), true},
		{"unique violation", errors.New("SQLSTATE 23505"), false},
		{"syntax error", errors.New("syntax error at or near"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.err))
		})
	}
}

func TestDecodePageToken(t *testing.T) {
	t.Run("empty token is offset zero", func(t *testing.T) {
		offset, err := decodePageToken("")
		require.NoError(t, err)
		assert.Equal(t, 0, offset)
	})

	t.Run("round trip", func(t *testing.T) {
		offset, err := decodePageToken(encodePageToken(150))
		require.NoError(t, err)
		assert.Equal(t, 150, offset)
	})

	t.Run("garbage is a validation error", func(t *testing.T) {
		_, err := decodePageToken("%%%")
		assert.True(t, apperrors.IsValidation(err))
	})
}
