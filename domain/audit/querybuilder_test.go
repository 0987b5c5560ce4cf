package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_PlainSelect(t *testing.T) {
	query, params := NewBuilder("audit_logs", "id", "action").Build()

	assert.Equal(t, "SELECT id, action FROM audit_logs", query)
	assert.Empty(t, params)
}

func TestBuilder_WhereChain(t *testing.T) {
	query, params := NewBuilder("audit_logs", "id").
		Where("action", "sign").
		Where("success", 1).
		Build()

	assert.Equal(t, "SELECT id FROM audit_logs WHERE action = $1 AND success = $2", query)
	assert.Equal(t, []interface{}{"sign", 1}, params)
}

func TestBuilder_WhereLike_EscapesWildcards(t *testing.T) {
	query, params := NewBuilder("audit_logs", "id").
		WhereLike("subject", `repo:100%_done\now`).
		Build()

	assert.Equal(t, `SELECT id FROM audit_logs WHERE subject LIKE $1 ESCAPE '\'`, query)
	require.Len(t, params, 1)
	assert.Equal(t, `%repo:100\%\_done\\now%`, params[0])
}

func TestBuilder_WhereBetween(t *testing.T) {
	lo := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	hi := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	query, params := NewBuilder("audit_logs", "id").
		WhereBetween("timestamp", lo, hi).
		Build()

	assert.Equal(t, "SELECT id FROM audit_logs WHERE timestamp >= $1 AND timestamp <= $2", query)
	assert.Equal(t, []interface{}{lo, hi}, params)
}

func TestBuilder_OrderAndLimit(t *testing.T) {
	query, params := NewBuilder("audit_logs", "id").
		Where("action", "sign").
		OrderBy("timestamp", "DESC").
		Limit(100, 20).
		Build()

	assert.Equal(t,
		"SELECT id FROM audit_logs WHERE action = $1 ORDER BY timestamp DESC LIMIT $2 OFFSET $3",
		query)
	assert.Equal(t, []interface{}{"sign", 100, 20}, params)
}

func TestBuilder_OrderByDirectionSanitized(t *testing.T) {
	query, _ := NewBuilder("audit_logs", "id").
		OrderBy("timestamp", "desc; DROP TABLE audit_logs").
		Build()

	assert.Equal(t, "SELECT id FROM audit_logs ORDER BY timestamp ASC", query)
}
