package models

import "fmt"

// Attachment represents a file attached to an email. Only metadata and an
// opaque provider reference are stored; content lives with the provider and
// is resolved to a fetchable URL at read time.
type Attachment struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	EmailID      string `gorm:"size:36;not null;index" json:"email_id"`
	AttachmentID string `gorm:"size:255" json:"attachment_id"`
	Filename     string `gorm:"size:255" json:"filename"`
	ContentType  string `gorm:"size:100" json:"content_type"`
	SizeBytes    int64  `json:"size_bytes"`
	URL          string `gorm:"size:1000" json:"url"`
	Checksum     string `gorm:"size:128" json:"checksum,omitempty"`
	IsInline     bool   `json:"is_inline"`
	ContentID    string `gorm:"size:255" json:"content_id,omitempty"`

	// Relationships
	Email Email `gorm:"foreignKey:EmailID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for Attachment
func (Attachment) TableName() string {
	return "attachments"
}

// Validate checks attachment metadata limits
func (a *Attachment) Validate() error {
	if a.SizeBytes < 0 {
		return fmt.Errorf("attachment %q has negative size", a.Filename)
	}
	if a.SizeBytes > MaxAttachmentSize {
		return fmt.Errorf("attachment %q exceeds maximum size of %d bytes", a.Filename, MaxAttachmentSize)
	}
	return nil
}
