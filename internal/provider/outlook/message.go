package outlook

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/syncwell/mailsync-backend/internal/errors"
	"github.com/syncwell/mailsync-backend/internal/models"
	"github.com/syncwell/mailsync-backend/internal/validator"
)

// Graph wire format, only the fields this service reads

type graphListing struct {
	Value    []graphMessage `json:"value"`
	NextLink string         `json:"@odata.nextLink"`
}

type graphMessage struct {
	ID               string            `json:"id"`
	InternetMsgID    string            `json:"internetMessageId"`
	ConversationID   string            `json:"conversationId"`
	Subject          string            `json:"subject"`
	BodyPreview      string            `json:"bodyPreview"`
	Importance       string            `json:"importance"`
	IsRead           bool              `json:"isRead"`
	Categories       []string          `json:"categories"`
	SentDateTime     time.Time         `json:"sentDateTime"`
	ReceivedDateTime time.Time         `json:"receivedDateTime"`
	Body             graphBody         `json:"body"`
	From             graphRecipient    `json:"from"`
	ToRecipients     []graphRecipient  `json:"toRecipients"`
	CcRecipients     []graphRecipient  `json:"ccRecipients"`
	BccRecipients    []graphRecipient  `json:"bccRecipients"`
	ParentFolderID   string            `json:"parentFolderId"`
	MessageHeaders   []graphHeader     `json:"internetMessageHeaders"`
	Attachments      []graphAttachment `json:"attachments"`
}

type graphHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type graphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type graphRecipient struct {
	EmailAddress graphAddress `json:"emailAddress"`
}

type graphAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type graphAttachment struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	IsInline    bool   `json:"isInline"`
	ContentID   string `json:"contentId"`
}

// convertMessage normalizes a Graph message into the canonical model
func convertMessage(msg *graphMessage, accountID string) (*models.Email, error) {
	if msg.From.EmailAddress.Address == "" {
		return nil, fmt.Errorf("%w: graph message %s has no sender", apperrors.ErrValidation, msg.ID)
	}

	email := &models.Email{
		MessageID:      msg.ID,
		ThreadID:       msg.ConversationID,
		ConversationID: msg.ConversationID,
		AccountID:      accountID,
		Subject:        validator.SanitizeString(msg.Subject, 998),
		From:           msg.From.EmailAddress.Address,
		To:             recipientAddresses(msg.ToRecipients),
		CC:             recipientAddresses(msg.CcRecipients),
		BCC:            recipientAddresses(msg.BccRecipients),
		Labels:         models.StringSlice(msg.Categories),
		Priority:       priorityFromImportance(msg.Importance),
		Status:         statusFromRead(msg.IsRead),
		SentAt:         msg.SentDateTime.UTC(),
		ReceivedAt:     msg.ReceivedDateTime.UTC(),
		Headers:        models.StringMap{},
		Metadata:       models.StringMap{},
	}

	// Conversations without an id collapse to a single-message thread
	if email.ThreadID == "" {
		email.ThreadID = msg.ID
	}

	if strings.EqualFold(msg.Body.ContentType, "html") {
		email.BodyHTML = msg.Body.Content
		if email.Body == "" {
			email.Body = msg.BodyPreview
		}
	} else {
		email.Body = msg.Body.Content
	}

	// Routing headers come from internetMessageHeaders on single-message
	// fetches; list responses fall back to the top-level Graph fields
	for _, h := range msg.MessageHeaders {
		email.Headers[h.Name] = h.Value
	}
	if _, ok := email.Headers["Message-ID"]; !ok && msg.InternetMsgID != "" {
		email.Headers["Message-ID"] = msg.InternetMsgID
	}
	if _, ok := email.Headers["Date"]; !ok && !msg.SentDateTime.IsZero() {
		email.Headers["Date"] = msg.SentDateTime.UTC().Format(time.RFC1123Z)
	}
	if msg.ParentFolderID != "" {
		email.Metadata["parent_folder_id"] = msg.ParentFolderID
	}
	if msg.BodyPreview != "" {
		email.Metadata["snippet"] = msg.BodyPreview
	}

	for _, att := range msg.Attachments {
		email.Attachments = append(email.Attachments, models.Attachment{
			AttachmentID: att.ID,
			Filename:     validator.SanitizeFilename(att.Name),
			ContentType:  att.ContentType,
			SizeBytes:    att.Size,
			IsInline:     att.IsInline,
			ContentID:    att.ContentID,
			URL:          fmt.Sprintf("graph://message/%s/attachment/%s", msg.ID, att.ID),
		})
	}

	email.EnsureTimestamps()
	return email, nil
}

func recipientAddresses(recipients []graphRecipient) models.StringSlice {
	if len(recipients) == 0 {
		return nil
	}
	out := make(models.StringSlice, 0, len(recipients))
	for _, r := range recipients {
		if r.EmailAddress.Address != "" {
			out = append(out, r.EmailAddress.Address)
		}
	}
	return out
}

func priorityFromImportance(importance string) models.Priority {
	switch strings.ToLower(importance) {
	case "high":
		return models.PriorityHigh
	case "low":
		return models.PriorityLow
	default:
		return models.PriorityNormal
	}
}

func statusFromRead(isRead bool) models.Status {
	if isRead {
		return models.StatusRead
	}
	return models.StatusUnread
}
