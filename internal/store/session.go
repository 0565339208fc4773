package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/roach88/rowkit/internal/bind"
)

// Session runs statements on one pinned connection. Statements run one at a
// time; a Cursor returned by Many must be drained or closed before the next
// statement.
//
// Sessions are not safe for concurrent use.
type Session struct {
	conn           Conn
	binder         *bind.Binder
	logger         *slog.Logger
	returnIdentity bool
	closed         bool
}

func newSession(conn Conn, binder *bind.Binder, logger *slog.Logger, returnIdentity bool) *Session {
	return &Session{
		conn:           conn,
		binder:         binder,
		logger:         logger,
		returnIdentity: returnIdentity,
	}
}

// Close releases the connection. Closing twice is a no-op.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

var errSessionClosed = errors.New("session is closed")

// prepare binds params into query.
func (s *Session) prepare(op, query string, params []bind.Parameter) (string, []any, error) {
	if s.closed {
		return "", nil, &ExecutionError{Op: op, Query: query, Err: errSessionClosed}
	}
	bound, args, err := s.binder.Bind(query, params)
	if err != nil {
		return "", nil, &ExecutionError{Op: op, Query: query, Err: err}
	}
	s.logger.Debug("executing statement", "op", op, "query", query, "args", len(args))
	return bound, args, nil
}

func (s *Session) query(ctx context.Context, op, query string, params []bind.Parameter) (*sql.Rows, error) {
	bound, args, err := s.prepare(op, query, params)
	if err != nil {
		return nil, err
	}
	rows, err := s.conn.QueryContext(ctx, bound, args...)
	if err != nil {
		return nil, &ExecutionError{Op: op, Query: query, Err: err}
	}
	return rows, nil
}

func (s *Session) exec(ctx context.Context, op, query string, params []bind.Parameter) (sql.Result, error) {
	bound, args, err := s.prepare(op, query, params)
	if err != nil {
		return nil, err
	}
	res, err := s.conn.ExecContext(ctx, bound, args...)
	if err != nil {
		return nil, &ExecutionError{Op: op, Query: query, Err: err}
	}
	return res, nil
}
