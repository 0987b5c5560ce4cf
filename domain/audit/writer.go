package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/kjanat/gpg-signing-service/third_party/search"
)

const insertRecordQuery = `
	INSERT INTO audit_logs (id, timestamp, request_id, action, issuer, subject, key_id, success, error_code, metadata)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// searchDocument is the flattened shape pushed to the full-text index.
type searchDocument struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	RequestID string `json:"requestId"`
	Action    string `json:"action"`
	Issuer    string `json:"issuer"`
	Subject   string `json:"subject"`
	KeyID     string `json:"keyId"`
	Success   bool   `json:"success"`
	ErrorCode string `json:"errorCode,omitempty"`
}

// Writer appends audit records. Failures are logged and swallowed; a caller
// never observes an audit error. The optional search index is fed with the
// same best-effort policy.
type Writer struct {
	db    *sqlx.DB
	index *search.MeiliSearchClient
}

func NewWriter(db *sqlx.DB, index *search.MeiliSearchClient) *Writer {
	return &Writer{db: db, index: index}
}

// Write generates the id and timestamp server-side and inserts one row.
func (w *Writer) Write(ctx context.Context, entry Entry) {
	id := uuid.NewString()
	now := time.Now().UTC()

	var errorCode, metadata *string
	if entry.ErrorCode != "" {
		errorCode = &entry.ErrorCode
	}
	if entry.Metadata != "" {
		metadata = &entry.Metadata
	}

	success := 0
	if entry.Success {
		success = 1
	}

	_, err := w.db.ExecContext(ctx, insertRecordQuery,
		id, now, entry.RequestID, entry.Action, entry.Issuer, entry.Subject,
		entry.KeyID, success, errorCode, metadata)
	if err != nil {
		logx.WithContext(ctx).Errorf("Failed to write audit record (request %s, action %s): %v",
			entry.RequestID, entry.Action, err)
		return
	}

	if w.index != nil {
		doc := searchDocument{
			ID:        id,
			Timestamp: now.UnixMilli(),
			RequestID: entry.RequestID,
			Action:    entry.Action,
			Issuer:    entry.Issuer,
			Subject:   entry.Subject,
			KeyID:     entry.KeyID,
			Success:   entry.Success,
			ErrorCode: entry.ErrorCode,
		}
		if err := w.index.AddDocuments(search.AuditIndex, []searchDocument{doc}); err != nil {
			logx.WithContext(ctx).Errorf("Failed to index audit record %s: %v", id, err)
		}
	}
}
