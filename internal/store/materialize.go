package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/roach88/rowkit/internal/record"
)

// column is the per-column metadata reported by the result set.
type column struct {
	name     string
	declType string
	kind     record.Kind
}

// columnsOf reads column names and declared types once per result set.
func columnsOf(rows *sql.Rows) ([]column, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("read column types: %w", err)
	}
	cols := make([]column, len(types))
	for i, ct := range types {
		decl := ct.DatabaseTypeName()
		cols[i] = column{
			name:     ct.Name(),
			declType: decl,
			kind:     record.KindOf(decl),
		}
	}
	return cols, nil
}

// materialize converts the current row into a Record. A column whose raw
// value cannot be converted to its declared kind takes that kind's default;
// the column is never dropped.
func materialize(rows *sql.Rows, cols []column, logger *slog.Logger) (*record.Record, error) {
	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	fields := make([]record.Field, len(cols))
	for i, col := range cols {
		v, err := record.Coerce(raw[i], col.kind)
		if err != nil {
			logger.Debug("column value replaced by default",
				"column", col.name,
				"declared_type", col.declType,
				"error", err,
			)
			v = record.Default(col.kind)
		}
		fields[i] = record.F(col.name, v)
	}
	return record.New(fields...), nil
}
