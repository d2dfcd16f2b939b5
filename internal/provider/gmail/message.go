package gmail

import (
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"
	"time"

	apperrors "github.com/syncwell/mailsync-backend/internal/errors"
	"github.com/syncwell/mailsync-backend/internal/models"
	"github.com/syncwell/mailsync-backend/internal/validator"
	gmailapi "google.golang.org/api/gmail/v1"
)

// convertMessage normalizes a full-format Gmail message into the canonical
// model. Malformed recipient entries are dropped; a malformed From is a
// validation error because the model requires a sender.
func convertMessage(msg *gmailapi.Message, accountID string) (*models.Email, error) {
	if msg.Payload == nil {
		return nil, fmt.Errorf("%w: gmail message %s has no payload", apperrors.ErrValidation, msg.Id)
	}

	email := &models.Email{
		MessageID:      msg.Id,
		ThreadID:       msg.ThreadId,
		ConversationID: msg.ThreadId,
		AccountID:      accountID,
		Headers:        models.StringMap{},
		Metadata:       models.StringMap{},
		ReceivedAt:     time.UnixMilli(msg.InternalDate).UTC(),
	}

	for _, h := range msg.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "subject":
			email.Subject = validator.SanitizeString(h.Value, 998)
		case "from":
			if addr, err := mail.ParseAddress(h.Value); err == nil {
				email.From = addr.Address
			}
		case "to":
			email.To = parseAddressList(h.Value)
		case "cc":
			email.CC = parseAddressList(h.Value)
		case "bcc":
			email.BCC = parseAddressList(h.Value)
		case "date":
			// Mapped into SentAt and also kept in Headers
			email.Headers[h.Name] = h.Value
			if sent, err := mail.ParseDate(h.Value); err == nil {
				email.SentAt = sent.UTC()
			}
		default:
			email.Headers[h.Name] = h.Value
		}
	}

	if email.From == "" {
		return nil, fmt.Errorf("%w: gmail message %s has no parsable From header", apperrors.ErrValidation, msg.Id)
	}

	email.Labels = models.StringSlice(msg.LabelIds)
	email.FolderPath = folderFromLabels(msg.LabelIds)
	email.Status = statusFromLabels(msg.LabelIds)
	email.Priority = priorityFromHeaders(email.Headers)
	email.Body, email.BodyHTML = extractBodies(msg.Payload)
	email.Attachments = extractAttachments(msg.Id, msg.Payload)
	email.EnsureTimestamps()

	if msg.Snippet != "" {
		email.Metadata["snippet"] = msg.Snippet
	}

	return email, nil
}

// parseAddressList parses an RFC 5322 address list, dropping entries that
// fail to parse rather than rejecting the whole message
func parseAddressList(raw string) models.StringSlice {
	addrs, err := mail.ParseAddressList(raw)
	if err != nil {
		// Fall back to parsing entries individually so one bad entry
		// does not lose the rest
		var out models.StringSlice
		for _, part := range strings.Split(raw, ",") {
			if addr, err := mail.ParseAddress(strings.TrimSpace(part)); err == nil {
				out = append(out, addr.Address)
			}
		}
		return out
	}
	out := make(models.StringSlice, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, addr.Address)
	}
	return out
}

func folderFromLabels(labels []string) string {
	for _, label := range labels {
		switch label {
		case "INBOX":
			return "INBOX"
		case "SENT":
			return "Sent"
		case "DRAFT":
			return "Drafts"
		case "SPAM":
			return "Spam"
		case "TRASH":
			return "Trash"
		}
	}
	return "Archive"
}

func statusFromLabels(labels []string) models.Status {
	for _, label := range labels {
		if label == "UNREAD" {
			return models.StatusUnread
		}
	}
	return models.StatusRead
}

func priorityFromHeaders(headers models.StringMap) models.Priority {
	switch headers["X-Priority"] {
	case "1", "2":
		return models.PriorityHigh
	case "4", "5":
		return models.PriorityLow
	}
	if strings.EqualFold(headers["Importance"], "high") {
		return models.PriorityHigh
	}
	return models.PriorityNormal
}

// folderToLabelID maps a canonical folder name back to a Gmail label id
func folderToLabelID(folder string) string {
	switch strings.ToLower(folder) {
	case "inbox":
		return "INBOX"
	case "sent":
		return "SENT"
	case "drafts":
		return "DRAFT"
	case "spam":
		return "SPAM"
	case "trash":
		return "TRASH"
	default:
		return folder
	}
}

// extractBodies walks the MIME tree collecting the first text/plain and
// text/html bodies
func extractBodies(payload *gmailapi.MessagePart) (text, html string) {
	var walk func(part *gmailapi.MessagePart)
	walk = func(part *gmailapi.MessagePart) {
		if part == nil {
			return
		}
		if part.Filename == "" && part.Body != nil && part.Body.Data != "" {
			decoded := decodeBody(part.Body.Data)
			switch {
			case part.MimeType == "text/plain" && text == "":
				text = decoded
			case part.MimeType == "text/html" && html == "":
				html = decoded
			}
		}
		for _, child := range part.Parts {
			walk(child)
		}
	}
	walk(payload)
	return text, html
}

// decodeBody decodes Gmail's base64url body data, tolerating both padded
// and unpadded forms
func decodeBody(data string) string {
	if decoded, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(decoded)
	}
	if decoded, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(decoded)
	}
	return ""
}

// extractAttachments collects attachment metadata. Content is referenced by
// an opaque provider URL; the bytes stay with Gmail.
func extractAttachments(messageID string, payload *gmailapi.MessagePart) []models.Attachment {
	var attachments []models.Attachment

	var walk func(part *gmailapi.MessagePart)
	walk = func(part *gmailapi.MessagePart) {
		if part == nil {
			return
		}
		if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
			att := models.Attachment{
				AttachmentID: part.Body.AttachmentId,
				Filename:     validator.SanitizeFilename(part.Filename),
				ContentType:  part.MimeType,
				SizeBytes:    part.Body.Size,
				URL:          fmt.Sprintf("gmail://message/%s/attachment/%s", messageID, part.Body.AttachmentId),
			}
			for _, h := range part.Headers {
				if strings.EqualFold(h.Name, "Content-ID") {
					att.ContentID = strings.Trim(h.Value, "<>")
					att.IsInline = true
				}
			}
			attachments = append(attachments, att)
		}
		for _, child := range part.Parts {
			walk(child)
		}
	}
	walk(payload)

	return attachments
}
