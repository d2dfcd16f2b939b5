// Package storage resolves opaque provider attachment references into URLs a
// client can fetch. Attachment bytes never pass through this service; the
// reference either points back at the provider or at a download gateway in
// front of it.
package storage

import (
	"fmt"
	"net/url"
	"strings"

	apperrors "github.com/syncwell/mailsync-backend/internal/errors"
)

// Provider reference schemes written by the provider clients
const (
	SchemeGmail = "gmail"
	SchemeGraph = "graph"
)

// URLResolver turns provider attachment references into downloadable URLs
type URLResolver struct {
	// gatewayBase is the external download gateway prefix, for example
	// "https://cdn.example.com/attachments". Empty means references are
	// returned unresolved.
	gatewayBase string
}

// NewURLResolver creates a resolver backed by the given gateway base URL
func NewURLResolver(gatewayBase string) *URLResolver {
	return &URLResolver{gatewayBase: strings.TrimRight(gatewayBase, "/")}
}

// Resolve maps a provider reference like
// gmail://message/<messageID>/attachment/<attachmentID> onto a gateway URL.
// Already-absolute http(s) URLs pass through unchanged.
func (r *URLResolver) Resolve(reference string) (string, error) {
	if reference == "" {
		return "", fmt.Errorf("%w: empty attachment reference", apperrors.ErrValidation)
	}

	parsed, err := url.Parse(reference)
	if err != nil {
		return "", fmt.Errorf("%w: malformed attachment reference %q", apperrors.ErrValidation, reference)
	}

	switch parsed.Scheme {
	case "http", "https":
		return reference, nil
	case SchemeGmail, SchemeGraph:
		if r.gatewayBase == "" {
			return reference, nil
		}
		messageID, attachmentID, err := splitReferencePath(parsed)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s/%s/%s/%s", r.gatewayBase, parsed.Scheme,
			url.PathEscape(messageID), url.PathEscape(attachmentID)), nil
	default:
		return "", fmt.Errorf("%w: unknown attachment scheme %q", apperrors.ErrValidation, parsed.Scheme)
	}
}

// splitReferencePath extracts ids from a message/<id>/attachment/<id> path
func splitReferencePath(parsed *url.URL) (messageID, attachmentID string, err error) {
	// Host carries the leading "message" segment
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if parsed.Host != "message" || len(parts) != 3 || parts[1] != "attachment" {
		return "", "", fmt.Errorf("%w: malformed attachment reference path %q", apperrors.ErrValidation, parsed.String())
	}
	return parts[0], parts[2], nil
}
