package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Query filters a read of the audit trail.
type Query struct {
	Limit     int
	Offset    int
	Action    string
	Subject   string
	StartDate *time.Time
	EndDate   *time.Time
}

// Normalize applies defaults and validates bounds and the action filter.
func (q *Query) Normalize() error {
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
	if q.Limit < 1 || q.Limit > maxLimit {
		return fmt.Errorf("limit must be between 1 and %d", maxLimit)
	}
	if q.Offset < 0 {
		return fmt.Errorf("offset must not be negative")
	}
	if q.Action != "" && !KnownAction(q.Action) {
		return fmt.Errorf("unknown action %q", q.Action)
	}
	return nil
}

// row is the database shape; success is stored as 0/1.
type row struct {
	ID        string    `db:"id"`
	Timestamp time.Time `db:"timestamp"`
	RequestID string    `db:"request_id"`
	Action    string    `db:"action"`
	Issuer    string    `db:"issuer"`
	Subject   string    `db:"subject"`
	KeyID     string    `db:"key_id"`
	Success   int       `db:"success"`
	ErrorCode *string   `db:"error_code"`
	Metadata  *string   `db:"metadata"`
}

func (r row) record() Record {
	return Record{
		ID:        r.ID,
		Timestamp: r.Timestamp,
		RequestID: r.RequestID,
		Action:    r.Action,
		Issuer:    r.Issuer,
		Subject:   r.Subject,
		KeyID:     r.KeyID,
		Success:   r.Success != 0,
		ErrorCode: r.ErrorCode,
		Metadata:  r.Metadata,
	}
}

// Reader serves filtered queries over the audit trail.
type Reader struct {
	db *sqlx.DB
}

func NewReader(db *sqlx.DB) *Reader {
	return &Reader{db: db}
}

// Read returns matching records, newest first.
func (r *Reader) Read(ctx context.Context, q Query) ([]Record, error) {
	if err := q.Normalize(); err != nil {
		return nil, err
	}

	builder := NewBuilder("audit_logs",
		"id", "timestamp", "request_id", "action", "issuer", "subject",
		"key_id", "success", "error_code", "metadata")

	if q.Action != "" {
		builder.Where("action", q.Action)
	}
	if q.Subject != "" {
		builder.WhereLike("subject", q.Subject)
	}
	switch {
	case q.StartDate != nil && q.EndDate != nil:
		builder.WhereBetween("timestamp", *q.StartDate, *q.EndDate)
	case q.StartDate != nil:
		builder.WhereGte("timestamp", *q.StartDate)
	case q.EndDate != nil:
		builder.WhereLte("timestamp", *q.EndDate)
	}

	builder.OrderBy("timestamp", "DESC").Limit(q.Limit, q.Offset)

	rows := []row{}
	if err := builder.Execute(ctx, r.db, &rows); err != nil {
		return nil, fmt.Errorf("reading audit records: %w", err)
	}

	records := make([]Record, len(rows))
	for i, rw := range rows {
		records[i] = rw.record()
	}
	return records, nil
}
