// Package models defines the canonical email data model shared by the
// provider clients, the repository, and the HTTP API.
package models

import (
	"fmt"
	"time"

	"github.com/syncwell/mailsync-backend/internal/validator"
)

// MaxAttachmentSize is the largest attachment metadata this service accepts (25 MiB).
// Attachment bytes themselves are never stored here, only referenced.
const MaxAttachmentSize = 25 * 1024 * 1024

// Priority indicates the importance of an email
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Status tracks the lifecycle state of an email
type Status string

const (
	StatusUnread   Status = "unread"
	StatusRead     Status = "read"
	StatusArchived Status = "archived"
	StatusDeleted  Status = "deleted"
)

// Email is the provider-agnostic representation of a message. Provider
// clients normalize their wire formats into this shape; everything past the
// provider boundary only ever sees Email.
type Email struct {
	ID             string      `gorm:"primaryKey;size:36" json:"id"`
	MessageID      string      `gorm:"size:255;not null;uniqueIndex:idx_account_message" json:"message_id"`
	ThreadID       string      `gorm:"size:255;not null;index:idx_account_thread" json:"thread_id"`
	ConversationID string      `gorm:"size:255" json:"conversation_id,omitempty"`
	ThreadPosition int         `gorm:"not null;default:0" json:"thread_position"`
	AccountID      string      `gorm:"size:255;not null;uniqueIndex:idx_account_message;index:idx_account_thread" json:"account_id"`
	Subject        string      `gorm:"size:998" json:"subject"`
	Body           string      `gorm:"type:text" json:"body"`
	BodyHTML       string      `gorm:"type:text" json:"body_html,omitempty"`
	From           string      `gorm:"size:320;not null" json:"from"`
	To             StringSlice `gorm:"type:text" json:"to"`
	CC             StringSlice `gorm:"type:text" json:"cc,omitempty"`
	BCC            StringSlice `gorm:"type:text" json:"bcc,omitempty"`
	Labels         StringSlice `gorm:"type:text" json:"labels,omitempty"`
	FolderPath     string      `gorm:"size:500;index" json:"folder_path"`
	Priority       Priority    `gorm:"size:16;default:normal" json:"priority"`
	Status         Status      `gorm:"size:16;default:unread;index" json:"status"`
	SentAt         time.Time   `json:"sent_at"`
	ReceivedAt     time.Time   `gorm:"index" json:"received_at"`
	Headers        StringMap   `gorm:"type:text" json:"headers,omitempty"`
	Metadata       StringMap   `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`

	// Relationships
	Attachments []Attachment `gorm:"foreignKey:EmailID;constraint:OnDelete:CASCADE" json:"attachments,omitempty"`
}

// TableName returns the table name for Email
func (Email) TableName() string {
	return "emails"
}

// Validate checks the invariants every email must satisfy before it is
// handed to the repository.
func (e *Email) Validate() error {
	if e.MessageID == "" {
		return fmt.Errorf("message_id is required")
	}
	if e.AccountID == "" {
		return fmt.Errorf("account_id is required")
	}
	if e.ThreadID == "" {
		return fmt.Errorf("thread_id is required")
	}
	if err := validator.ValidateEmail(e.From); err != nil {
		return fmt.Errorf("invalid from address %q: %w", e.From, err)
	}
	if len(e.To) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	for _, addr := range e.To {
		if err := validator.ValidateEmail(addr); err != nil {
			return fmt.Errorf("invalid recipient %q: %w", addr, err)
		}
	}
	for _, att := range e.Attachments {
		if err := att.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// EnsureTimestamps fills SentAt from ReceivedAt (and vice versa) so both are
// always non-zero once an email is persisted.
func (e *Email) EnsureTimestamps() {
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now().UTC()
	}
	if e.SentAt.IsZero() {
		e.SentAt = e.ReceivedAt
	}
}
