package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Conn is an open connection to the data source. It is not reentrant: a
// Conn runs one statement at a time and an open *sql.Rows must be drained or
// closed before the next statement.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	Close() error
}

// Opener opens one connection to a target.
type Opener interface {
	Open(ctx context.Context, target Target) (Conn, error)
}

// Sleeper waits between connection attempts.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SQLiteOpener opens connections with the go-sqlite3 driver.
// Each connection gets its own single-connection *sql.DB, so nothing is
// pooled across operations.
type SQLiteOpener struct{}

// Open opens and pings a connection to the target's database file.
func (SQLiteOpener) Open(ctx context.Context, target Target) (Conn, error) {
	db, err := sql.Open("sqlite3", target.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &sqliteConn{Conn: conn, db: db}, nil
}

// sqliteConn ties a pinned *sql.Conn to the *sql.DB that owns it.
type sqliteConn struct {
	*sql.Conn
	db *sql.DB
}

func (c *sqliteConn) Close() error {
	err := c.Conn.Close()
	if dbErr := c.db.Close(); err == nil {
		err = dbErr
	}
	return err
}

// timerSleeper sleeps on the wall clock and wakes early when ctx ends.
type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Gate acquires connections, retrying failed opens with linear backoff:
// after failed attempt n it sleeps n × backoff, and it does not sleep after
// the final attempt. This is the only place connection errors are retried.
type Gate struct {
	opener      Opener
	maxAttempts int
	backoff     time.Duration
	sleeper     Sleeper
	logger      *slog.Logger
}

// NewGate creates a gate. maxAttempts below 1 is treated as 1.
func NewGate(opener Opener, maxAttempts int, backoff time.Duration, sleeper Sleeper, logger *slog.Logger) *Gate {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if sleeper == nil {
		sleeper = timerSleeper{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		opener:      opener,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		sleeper:     sleeper,
		logger:      logger,
	}
}

// MaxAttempts returns the configured attempt limit.
func (g *Gate) MaxAttempts() int {
	return g.maxAttempts
}

// Acquire opens a connection to target.
// Returns *ConnectionError once every attempt has failed.
func (g *Gate) Acquire(ctx context.Context, target Target) (Conn, error) {
	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		conn, err := g.opener.Open(ctx, target)
		if err == nil {
			if attempt > 1 {
				g.logger.Info("connection established after retry", "target", target.Path, "attempt", attempt)
			}
			return conn, nil
		}
		lastErr = err

		if attempt == g.maxAttempts {
			break
		}

		delay := time.Duration(attempt) * g.backoff
		g.logger.Warn("connection attempt failed",
			"target", target.Path,
			"attempt", attempt,
			"max_attempts", g.maxAttempts,
			"retry_in", delay,
			"error", err,
		)
		if sleepErr := g.sleeper.Sleep(ctx, delay); sleepErr != nil {
			return nil, &ConnectionError{
				Target:   target.Path,
				Attempts: attempt,
				Err:      errors.Join(lastErr, sleepErr),
			}
		}
	}

	return nil, &ConnectionError{
		Target:   target.Path,
		Attempts: g.maxAttempts,
		Err:      lastErr,
	}
}
