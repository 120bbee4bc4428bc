package job

import (
	"encoding/json"
	"errors"
	"time"
)

type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// IsTerminal reports whether no further stage transitions occur.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusError
}

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationError   NotificationStatus = "error"
	NotificationSkipped NotificationStatus = "skipped"
)

type SourceType string

const (
	SourceWebhook SourceType = "webhook"
	SourceFile    SourceType = "file"
)

var (
	ErrDuplicateID = errors.New("job id already exists")
	ErrNotFound    = errors.New("job not found")
)

// Job is one unit of pipeline work tracked from creation to terminal state.
// The pipeline runner is the only writer after creation.
type Job struct {
	ID            string          `json:"id"`
	SourceType    SourceType      `json:"source_type"`
	TargetRef     string          `json:"target_ref"`
	ContentHash   string          `json:"-"`
	Status        Status          `json:"status"`
	ResultSummary string          `json:"result_summary,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Error         string          `json:"error,omitempty"`

	// Notification outcome is tracked independently of Status; a failed
	// briefing email never regresses a done job.
	NotificationStatus NotificationStatus `json:"notification_status"`
	NotificationError  string             `json:"notification_error,omitempty"`
	NotificationSentAt *time.Time         `json:"notification_sent_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Update carries a partial mutation. Nil fields are left untouched.
type Update struct {
	Status             *Status
	ResultSummary      *string
	Payload            json.RawMessage
	Error              *string
	NotificationStatus *NotificationStatus
	NotificationError  *string
	NotificationSentAt *time.Time
}

// IsZero reports whether the update carries no fields.
func (u Update) IsZero() bool {
	return u.Status == nil &&
		u.ResultSummary == nil &&
		u.Payload == nil &&
		u.Error == nil &&
		u.NotificationStatus == nil &&
		u.NotificationError == nil &&
		u.NotificationSentAt == nil
}
