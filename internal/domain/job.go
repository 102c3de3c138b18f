package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/evotools/evo-dispatch/pkg/logger"
)

type JobKind string

const (
	KindText  JobKind = "text"
	KindMedia JobKind = "media"
)

type JobStatus string

const (
	StatusPending JobStatus = "pending"
	StatusSent    JobStatus = "sent"
	StatusFailed  JobStatus = "failed"
)

// TextMessage mirrors the Evolution API /message/sendText request body.
type TextMessage struct {
	Number      string `json:"number"`
	Text        string `json:"text"`
	Delay       int    `json:"delay,omitempty"`
	LinkPreview bool   `json:"linkPreview,omitempty"`
}

// MediaMessage mirrors the Evolution API /message/sendMedia request body.
// Media is a URL; MediaType is one of image, video or document.
type MediaMessage struct {
	Number    string `json:"number"`
	MediaType string `json:"mediatype"`
	MimeType  string `json:"mimetype"`
	Caption   string `json:"caption,omitempty"`
	Media     string `json:"media"`
	FileName  string `json:"fileName"`
	Delay     int    `json:"delay,omitempty"`
}

// JobPayload is the fully-formed send request stored with a job. Exactly one
// of Text or Media is set, matching the job kind. The owning instance name and
// the schedule instant (ISO-8601 with offset) are embedded so the payload
// alone carries everything needed to dispatch.
type JobPayload struct {
	Instance    string        `json:"instance"`
	ScheduledAt string        `json:"scheduledAt,omitempty"`
	Text        *TextMessage  `json:"text,omitempty"`
	Media       *MediaMessage `json:"media,omitempty"`
}

// Value serializes the payload as JSON for storage.
func (p JobPayload) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan deserializes the payload from its stored JSON form. A row whose
// payload no longer parses scans as an empty payload instead of failing the
// whole query; the dispatcher then fails that single job with a payload
// mismatch.
func (p *JobPayload) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported payload column type %T", src)
	}

	if err := json.Unmarshal(data, p); err != nil {
		logger.Warnf("Discarding unreadable job payload: %v", err)
		*p = JobPayload{}
	}
	return nil
}

// Destination returns the target number or group id of the payload.
func (p *JobPayload) Destination() string {
	if p.Text != nil {
		return p.Text.Number
	}
	if p.Media != nil {
		return p.Media.Number
	}
	return ""
}

// ScheduledJob is a persisted future send. Payload and ScheduledAt are
// immutable after creation; only Status and Error are ever updated, and only
// forward (pending -> sent or pending -> failed).
type ScheduledJob struct {
	ID          string     `db:"id" json:"id"`
	Kind        JobKind    `db:"kind" json:"kind"`
	Payload     JobPayload `db:"payload" json:"payload"`
	ScheduledAt time.Time  `db:"scheduled_at" json:"scheduledAt"`
	Status      JobStatus  `db:"status" json:"status"`
	Error       *string    `db:"error" json:"error,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// Due reports whether the job should be dispatched at the given instant.
func (j *ScheduledJob) Due(now time.Time) bool {
	return j.Status == StatusPending && !j.ScheduledAt.After(now)
}

// SendResult is the outcome of dispatching a single job.
type SendResult struct {
	JobID    string
	RemoteID string
	Success  bool
	Error    error
	SentAt   time.Time
}

// SentJobCache is the cache entry kept for a successfully sent job.
type SentJobCache struct {
	RemoteID string    `json:"remoteId"`
	SentAt   time.Time `json:"sentAt"`
}

// Contact is one row of an imported CSV contact list: the destination number
// plus arbitrary named fields from the header row, used for template
// substitution.
type Contact map[string]string

// Number returns the destination identifier; empty when the CSV row had none.
func (c Contact) Number() string {
	return c["number"]
}

// MessageKey identifies a message on the gateway side.
type MessageKey struct {
	RemoteJID string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
	ID        string `json:"id"`
}

// SendReceipt is the gateway's response to a successful send.
type SendReceipt struct {
	Key              MessageKey `json:"key"`
	Status           string     `json:"status"`
	MessageType      string     `json:"messageType"`
	MessageTimestamp int64      `json:"messageTimestamp"`
}

// ContactInfo is the gateway's contact lookup result.
type ContactInfo struct {
	PushName string `json:"pushname"`
	Number   string `json:"number"`
	Name     string `json:"name,omitempty"`
	IsGroup  bool   `json:"isGroup,omitempty"`
}

// Instance is a named WhatsApp session managed by the gateway.
type Instance struct {
	Name             string `json:"name"`
	ConnectionStatus string `json:"connectionStatus"`
	ProfileName      string `json:"profileName,omitempty"`
	Number           string `json:"number,omitempty"`
}
