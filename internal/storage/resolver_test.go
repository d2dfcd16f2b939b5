package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/syncwell/mailsync-backend/internal/errors"
)

func TestResolve_GmailReference(t *testing.T) {
	r := NewURLResolver("https://cdn.example.com/attachments/")

	got, err := r.Resolve("gmail://message/msg-1/attachment/att-9")

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/attachments/gmail/msg-1/att-9", got)
}

func TestResolve_GraphReference(t *testing.T) {
	r := NewURLResolver("https://cdn.example.com/attachments")

	got, err := r.Resolve("graph://message/graph-msg-1/attachment/att-2")

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/attachments/graph/graph-msg-1/att-2", got)
}

func TestResolve_AbsoluteURLPassesThrough(t *testing.T) {
	r := NewURLResolver("https://cdn.example.com/attachments")

	got, err := r.Resolve("https://elsewhere.example.com/file.pdf")

	require.NoError(t, err)
	assert.Equal(t, "https://elsewhere.example.com/file.pdf", got)
}

func TestResolve_NoGatewayReturnsReferenceUnchanged(t *testing.T) {
	r := NewURLResolver("")

	got, err := r.Resolve("gmail://message/msg-1/attachment/att-9")

	require.NoError(t, err)
	assert.Equal(t, "gmail://message/msg-1/attachment/att-9", got)
}

func TestResolve_IDsAreEscaped(t *testing.T) {
	r := NewURLResolver("https://cdn.example.com")

	got, err := r.Resolve("gmail://message/msg 1/attachment/att-9")

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/gmail/msg%201/att-9", got)
}

func TestResolve_Invalid(t *testing.T) {
	r := NewURLResolver("https://cdn.example.com")

	cases := []string{
		"",
		"ftp://message/msg-1/attachment/att-9",
		"gmail://message/msg-1",
		"gmail://thread/msg-1/attachment/att-9",
	}
	for _, reference := range cases {
		_, err := r.Resolve(reference)
		require.Error(t, err, "reference %q", reference)
		assert.True(t, apperrors.IsValidation(err), "reference %q", reference)
	}
}
