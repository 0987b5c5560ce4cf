package audit

import (
	"time"
)

// Actions recorded in the audit trail.
const (
	ActionSign           = "sign"
	ActionKeyUpload      = "key_upload"
	ActionKeyRotate      = "key_rotate"
	ActionKeyDelete      = "key_delete"
	ActionRateLimitReset = "rate_limit_reset"
)

// KnownAction reports whether an action string belongs to the audit taxonomy.
// The table itself is append-only and accepts any string; this is used to
// validate reader filters.
func KnownAction(action string) bool {
	switch action {
	case ActionSign, ActionKeyUpload, ActionKeyRotate, ActionKeyDelete, ActionRateLimitReset:
		return true
	}
	return false
}

// Record is one append-only audit row. Rows are never updated or deleted.
type Record struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"requestId"`
	Action    string    `json:"action"`
	Issuer    string    `json:"issuer"`
	Subject   string    `json:"subject"`
	KeyID     string    `json:"keyId"`
	Success   bool      `json:"success"`
	ErrorCode *string   `json:"errorCode,omitempty"`
	Metadata  *string   `json:"metadata,omitempty"`
}

// Entry is the caller-supplied portion of a record; id and timestamp are
// generated at write time.
type Entry struct {
	RequestID string
	Action    string
	Issuer    string
	Subject   string
	KeyID     string
	Success   bool
	ErrorCode string
	Metadata  string
}
