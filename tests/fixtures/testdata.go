// Package fixtures provides builders for test data.
package fixtures

import (
	"fmt"
	"time"

	"github.com/syncwell/mailsync-backend/internal/models"
)

// EmailBuilder creates test Email instances with fluent API
type EmailBuilder struct {
	email models.Email
}

// NewEmailBuilder creates a new EmailBuilder with sensible defaults
func NewEmailBuilder() *EmailBuilder {
	now := time.Now().UTC()
	return &EmailBuilder{
		email: models.Email{
			MessageID:  "msg-1",
			ThreadID:   "thread-1",
			AccountID:  "acct-1",
			Subject:    "Weekly report",
			Body:       "Numbers are attached.",
			From:       "sender@example.com",
			To:         models.StringSlice{"recipient@example.com"},
			FolderPath: "INBOX",
			Priority:   models.PriorityNormal,
			Status:     models.StatusUnread,
			SentAt:     now,
			ReceivedAt: now,
		},
	}
}

// WithMessageID sets the provider message id
func (b *EmailBuilder) WithMessageID(id string) *EmailBuilder {
	b.email.MessageID = id
	return b
}

// WithThreadID sets the thread id
func (b *EmailBuilder) WithThreadID(id string) *EmailBuilder {
	b.email.ThreadID = id
	return b
}

// WithAccountID sets the owning account
func (b *EmailBuilder) WithAccountID(id string) *EmailBuilder {
	b.email.AccountID = id
	return b
}

// WithSubject sets the subject
func (b *EmailBuilder) WithSubject(subject string) *EmailBuilder {
	b.email.Subject = subject
	return b
}

// WithFrom sets the sender address
func (b *EmailBuilder) WithFrom(from string) *EmailBuilder {
	b.email.From = from
	return b
}

// WithTo sets the recipient list
func (b *EmailBuilder) WithTo(to ...string) *EmailBuilder {
	b.email.To = models.StringSlice(to)
	return b
}

// WithLabels sets the label set
func (b *EmailBuilder) WithLabels(labels ...string) *EmailBuilder {
	b.email.Labels = models.StringSlice(labels)
	return b
}

// WithFolder sets the folder path
func (b *EmailBuilder) WithFolder(folder string) *EmailBuilder {
	b.email.FolderPath = folder
	return b
}

// WithStatus sets the lifecycle status
func (b *EmailBuilder) WithStatus(status models.Status) *EmailBuilder {
	b.email.Status = status
	return b
}

// WithPriority sets the priority
func (b *EmailBuilder) WithPriority(priority models.Priority) *EmailBuilder {
	b.email.Priority = priority
	return b
}

// WithReceivedAt sets the received timestamp
func (b *EmailBuilder) WithReceivedAt(t time.Time) *EmailBuilder {
	b.email.ReceivedAt = t
	return b
}

// WithAttachments sets the attachment list
func (b *EmailBuilder) WithAttachments(attachments ...models.Attachment) *EmailBuilder {
	b.email.Attachments = attachments
	return b
}

// Build returns the constructed Email
func (b *EmailBuilder) Build() *models.Email {
	email := b.email
	return &email
}

// AttachmentBuilder creates test Attachment instances with fluent API
type AttachmentBuilder struct {
	attachment models.Attachment
}

// NewAttachmentBuilder creates a new AttachmentBuilder with sensible defaults
func NewAttachmentBuilder() *AttachmentBuilder {
	return &AttachmentBuilder{
		attachment: models.Attachment{
			AttachmentID: "att-1",
			Filename:     "report.pdf",
			ContentType:  "application/pdf",
			SizeBytes:    2048,
			URL:          "gmail://message/msg-1/attachment/att-1",
		},
	}
}

// WithAttachmentID sets the provider attachment id
func (b *AttachmentBuilder) WithAttachmentID(id string) *AttachmentBuilder {
	b.attachment.AttachmentID = id
	return b
}

// WithFilename sets the filename
func (b *AttachmentBuilder) WithFilename(name string) *AttachmentBuilder {
	b.attachment.Filename = name
	return b
}

// WithContentType sets the MIME type
func (b *AttachmentBuilder) WithContentType(contentType string) *AttachmentBuilder {
	b.attachment.ContentType = contentType
	return b
}

// WithSize sets the size in bytes
func (b *AttachmentBuilder) WithSize(size int64) *AttachmentBuilder {
	b.attachment.SizeBytes = size
	return b
}

// WithURL sets the provider reference URL
func (b *AttachmentBuilder) WithURL(url string) *AttachmentBuilder {
	b.attachment.URL = url
	return b
}

// Inline marks the attachment as inline with the given content id
func (b *AttachmentBuilder) Inline(contentID string) *AttachmentBuilder {
	b.attachment.IsInline = true
	b.attachment.ContentID = contentID
	return b
}

// Build returns the constructed Attachment
func (b *AttachmentBuilder) Build() models.Attachment {
	return b.attachment
}

// CreateEmails builds count emails for one account, spread over threads of
// two messages each
func CreateEmails(accountID string, count int) []*models.Email {
	emails := make([]*models.Email, 0, count)
	for i := 0; i < count; i++ {
		emails = append(emails, NewEmailBuilder().
			WithAccountID(accountID).
			WithMessageID(fmt.Sprintf("msg-%d", i+1)).
			WithThreadID(fmt.Sprintf("thread-%d", i/2+1)).
			WithSubject(fmt.Sprintf("Message %d", i+1)).
			WithReceivedAt(time.Now().UTC().Add(time.Duration(i)*time.Minute)).
			Build())
	}
	return emails
}
