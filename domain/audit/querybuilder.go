package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Builder assembles a strictly parameterized SELECT. Values never appear in
// the query text; postgres-style $n placeholders are numbered as conditions
// are added.
type Builder struct {
	table   string
	columns []string
	wheres  []string
	params  []interface{}
	orderBy string
	limit   int
	offset  int
	limited bool
}

func NewBuilder(table string, columns ...string) *Builder {
	return &Builder{table: table, columns: columns}
}

func (b *Builder) Where(column string, value interface{}) *Builder {
	b.params = append(b.params, value)
	b.wheres = append(b.wheres, fmt.Sprintf("%s = $%d", column, len(b.params)))
	return b
}

// WhereLike adds a substring match with %, _, and \ escaped in the value.
func (b *Builder) WhereLike(column, value string) *Builder {
	b.params = append(b.params, "%"+escapeLike(value)+"%")
	b.wheres = append(b.wheres, fmt.Sprintf(`%s LIKE $%d ESCAPE '\'`, column, len(b.params)))
	return b
}

func (b *Builder) WhereGte(column string, value interface{}) *Builder {
	b.params = append(b.params, value)
	b.wheres = append(b.wheres, fmt.Sprintf("%s >= $%d", column, len(b.params)))
	return b
}

func (b *Builder) WhereLte(column string, value interface{}) *Builder {
	b.params = append(b.params, value)
	b.wheres = append(b.wheres, fmt.Sprintf("%s <= $%d", column, len(b.params)))
	return b
}

func (b *Builder) WhereBetween(column string, lo, hi interface{}) *Builder {
	return b.WhereGte(column, lo).WhereLte(column, hi)
}

func (b *Builder) OrderBy(column, direction string) *Builder {
	dir := strings.ToUpper(direction)
	if dir != "ASC" && dir != "DESC" {
		dir = "ASC"
	}
	b.orderBy = column + " " + dir
	return b
}

func (b *Builder) Limit(limit, offset int) *Builder {
	b.limit = limit
	b.offset = offset
	b.limited = true
	return b
}

// Build renders the query text and its parameter list.
func (b *Builder) Build() (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(b.columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(b.table)

	if len(b.wheres) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.wheres, " AND "))
	}
	if b.orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(b.orderBy)
	}

	params := b.params
	if b.limited {
		params = append(params, b.limit, b.offset)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(params)-1, len(params)))
	}

	return sb.String(), params
}

// Execute runs the built query, scanning rows into dest.
func (b *Builder) Execute(ctx context.Context, db *sqlx.DB, dest interface{}) error {
	query, params := b.Build()
	if err := db.SelectContext(ctx, dest, query, params...); err != nil {
		return fmt.Errorf("executing query: %w", err)
	}
	return nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
