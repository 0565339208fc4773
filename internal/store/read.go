package store

import (
	"context"
	"database/sql"
	"errors"
	"iter"
	"log/slog"

	"github.com/roach88/rowkit/internal/bind"
	"github.com/roach88/rowkit/internal/record"
)

// Single executes query and materializes at most its first row.
// Returns nil, nil when the result set is empty.
func (s *Session) Single(ctx context.Context, query string, params ...bind.Parameter) (*record.Record, error) {
	const op = "single"
	rows, err := s.query(ctx, op, query, params)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := columnsOf(rows)
	if err != nil {
		return nil, &ExecutionError{Op: op, Query: query, Err: err}
	}

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, &ExecutionError{Op: op, Query: query, Err: err}
		}
		return nil, nil
	}

	rec, err := materialize(rows, cols, s.logger)
	if err != nil {
		return nil, &ExecutionError{Op: op, Query: query, Err: err}
	}
	return rec, nil
}

// Many executes query and returns a Cursor over its rows. The cursor does
// not own the session's connection; Close the cursor before running the next
// statement on this session.
func (s *Session) Many(ctx context.Context, query string, params ...bind.Parameter) (*Cursor, error) {
	const op = "many"
	rows, err := s.query(ctx, op, query, params)
	if err != nil {
		return nil, err
	}

	cols, err := columnsOf(rows)
	if err != nil {
		rows.Close()
		return nil, &ExecutionError{Op: op, Query: query, Err: err}
	}

	return &Cursor{
		rows:   rows,
		cols:   cols,
		query:  query,
		logger: s.logger,
	}, nil
}

// Scalar executes query and returns the first column of its first row,
// converted by the column's declared type. Returns record.Null{} when the
// result set is empty.
func (s *Session) Scalar(ctx context.Context, query string, params ...bind.Parameter) (record.Value, error) {
	return s.scalar(ctx, "scalar", query, params)
}

func (s *Session) scalar(ctx context.Context, op, query string, params []bind.Parameter) (record.Value, error) {
	rows, err := s.query(ctx, op, query, params)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := columnsOf(rows)
	if err != nil {
		return nil, &ExecutionError{Op: op, Query: query, Err: err}
	}
	if len(cols) == 0 || !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, &ExecutionError{Op: op, Query: query, Err: err}
		}
		return record.Null{}, nil
	}

	rec, err := materialize(rows, cols, s.logger)
	if err != nil {
		return nil, &ExecutionError{Op: op, Query: query, Err: err}
	}
	return rec.Value(cols[0].name), nil
}

// Cursor is a forward-only, non-restartable sequence of records.
//
// A cursor holds its statement (and, when returned by Store.Many, its
// connection) until it is exhausted or closed. Exhaustion closes it
// automatically; callers that stop early must call Close.
type Cursor struct {
	rows    *sql.Rows
	cols    []column
	query   string
	current *record.Record
	err     error
	closed  bool
	release func() error
	logger  *slog.Logger
}

// Next advances to the next record. It returns false when the rows are
// exhausted, an error occurred, or the cursor was closed.
func (c *Cursor) Next() bool {
	if c.closed {
		return false
	}
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			c.err = &ExecutionError{Op: "many", Query: c.query, Err: err}
		}
		c.Close()
		return false
	}
	rec, err := materialize(c.rows, c.cols, c.logger)
	if err != nil {
		c.err = &ExecutionError{Op: "many", Query: c.query, Err: err}
		c.Close()
		return false
	}
	c.current = rec
	return true
}

// Record returns the record Next advanced to.
func (c *Cursor) Record() *record.Record {
	return c.current
}

// Columns returns the column names of the result set.
func (c *Cursor) Columns() []string {
	names := make([]string, len(c.cols))
	for i, col := range c.cols {
		names[i] = col.name
	}
	return names
}

// Err returns the first error encountered while iterating.
func (c *Cursor) Err() error {
	return c.err
}

// Close releases the statement and any owned connection. Closing twice is a
// no-op.
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.current = nil

	err := c.rows.Close()
	if c.release != nil {
		if relErr := c.release(); relErr != nil {
			err = errors.Join(err, relErr)
		}
	}
	if err != nil && c.err == nil {
		c.err = err
	}
	return err
}

// All iterates over the remaining records. Breaking out of the loop closes
// the cursor. A non-nil error is yielded once, last.
func (c *Cursor) All() iter.Seq2[*record.Record, error] {
	return func(yield func(*record.Record, error) bool) {
		defer c.Close()
		for c.Next() {
			if !yield(c.current, nil) {
				return
			}
		}
		if err := c.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Collect drains the cursor into a slice and closes it. An empty result set
// yields an empty, non-nil slice.
func (c *Cursor) Collect() ([]*record.Record, error) {
	defer c.Close()
	out := []*record.Record{}
	for c.Next() {
		out = append(out, c.current)
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
