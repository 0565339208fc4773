package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/rowkit/internal/bind"
	"github.com/roach88/rowkit/internal/record"
)

const (
	// DefaultMaxAttempts is the number of connection attempts before Acquire
	// gives up.
	DefaultMaxAttempts = 5

	// DefaultBackoff is the backoff unit; failed attempt n sleeps n × unit.
	DefaultBackoff = time.Second
)

// Store executes statements against one database file.
// A Store holds configuration only; connections are opened per operation.
//
// Thread-safety: a Store is safe for concurrent use. Sessions and Cursors
// are not.
type Store struct {
	target         Target
	gate           *Gate
	binder         *bind.Binder
	compactor      Compactor
	logger         *slog.Logger
	returnIdentity bool
}

// Option configures a Store.
type Option func(*config)

type config struct {
	maxAttempts int
	backoff     time.Duration
	opener      Opener
	sleeper     Sleeper
	compactor   Compactor
	logger      *slog.Logger
}

// WithMaxAttempts overrides the connection attempt limit.
func WithMaxAttempts(n int) Option {
	return func(c *config) { c.maxAttempts = n }
}

// WithBackoff overrides the backoff unit between connection attempts.
func WithBackoff(unit time.Duration) Option {
	return func(c *config) { c.backoff = unit }
}

// WithOpener replaces the go-sqlite3 opener.
func WithOpener(o Opener) Option {
	return func(c *config) { c.opener = o }
}

// WithSleeper replaces the wall-clock sleeper used between attempts.
func WithSleeper(s Sleeper) Option {
	return func(c *config) { c.sleeper = s }
}

// WithCompactor replaces the VACUUM-based compactor.
func WithCompactor(cp Compactor) Option {
	return func(c *config) { c.compactor = cp }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// Open creates a Store for target. No connection is made until the first
// operation.
func Open(target Target, opts ...Option) (*Store, error) {
	if target.Path == "" {
		return nil, errors.New("open store: database path is required")
	}

	cfg := config{
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
		opener:      SQLiteOpener{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.compactor == nil {
		cfg.compactor = VacuumCompactor{Opener: cfg.opener}
	}

	return &Store{
		target:    target,
		gate:      NewGate(cfg.opener, cfg.maxAttempts, cfg.backoff, cfg.sleeper, cfg.logger),
		binder:    bind.NewBinder(),
		compactor: cfg.compactor,
		logger:    cfg.logger,
	}, nil
}

// OpenPath is Open for a database without a password.
func OpenPath(path string, opts ...Option) (*Store, error) {
	return Open(Target{Path: path}, opts...)
}

// Target returns the database the store points at.
func (s *Store) Target() Target {
	return s.target
}

// WithReturnIdentity returns a copy of the store whose non-queries also
// report the identity generated by the statement.
func (s *Store) WithReturnIdentity() *Store {
	cp := *s
	cp.returnIdentity = true
	return &cp
}

// Session acquires a connection and returns a Session pinned to it.
// The caller must Close the session.
func (s *Store) Session(ctx context.Context) (*Session, error) {
	conn, err := s.gate.Acquire(ctx, s.target)
	if err != nil {
		return nil, err
	}
	return newSession(conn, s.binder, s.logger, s.returnIdentity), nil
}

// withSession runs fn on a fresh session and releases it afterwards.
func (s *Store) withSession(ctx context.Context, fn func(*Session) error) error {
	sess, err := s.Session(ctx)
	if err != nil {
		return err
	}
	defer s.release(sess)
	return fn(sess)
}

func (s *Store) release(sess *Session) {
	if err := sess.Close(); err != nil {
		s.logger.Error("error closing connection", "target", s.target.Path, "error", err)
	}
}

// Single executes query and returns its first row, or nil when the result
// set is empty.
func (s *Store) Single(ctx context.Context, query string, params ...bind.Parameter) (*record.Record, error) {
	var rec *record.Record
	err := s.withSession(ctx, func(sess *Session) error {
		var err error
		rec, err = sess.Single(ctx, query, params...)
		return err
	})
	return rec, err
}

// Many executes query and returns a Cursor over its rows. The cursor owns
// its connection and releases it when drained or closed.
func (s *Store) Many(ctx context.Context, query string, params ...bind.Parameter) (*Cursor, error) {
	sess, err := s.Session(ctx)
	if err != nil {
		return nil, err
	}
	cur, err := sess.Many(ctx, query, params...)
	if err != nil {
		s.release(sess)
		return nil, err
	}
	cur.release = sess.Close
	return cur, nil
}

// NonQuery executes a statement that returns no rows.
func (s *Store) NonQuery(ctx context.Context, query string, params ...bind.Parameter) (NonQueryOutcome, error) {
	var out NonQueryOutcome
	err := s.withSession(ctx, func(sess *Session) error {
		var err error
		out, err = sess.NonQuery(ctx, query, params...)
		return err
	})
	return out, err
}

// Scalar executes query and returns the first column of its first row.
func (s *Store) Scalar(ctx context.Context, query string, params ...bind.Parameter) (record.Value, error) {
	var v record.Value
	err := s.withSession(ctx, func(sess *Session) error {
		var err error
		v, err = sess.Scalar(ctx, query, params...)
		return err
	})
	return v, err
}

// Batch validates items and runs them in order over one connection.
// Validation failures are reported before any connection is opened.
func (s *Store) Batch(ctx context.Context, items []BatchItem) (map[int]BatchResult, error) {
	if err := ValidateBatch(items); err != nil {
		return nil, err
	}

	var results map[int]BatchResult
	err := s.withSession(ctx, func(sess *Session) error {
		var err error
		results, err = sess.runBatch(ctx, items)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}
	return results, nil
}
