package store

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/rowkit/internal/testutil"
)

// createTestStore opens a store over a fresh Products database seeded with
// products. Retries never sleep on the wall clock.
func createTestStore(t *testing.T, products ...testutil.Product) (*Store, string) {
	t.Helper()
	path := testutil.ProductsDB(t, products...)
	s, err := OpenPath(path, WithSleeper(testutil.NewRecordingSleeper()))
	require.NoError(t, err)
	return s, path
}

// sampleProducts is a small fixed catalogue.
func sampleProducts() []testutil.Product {
	return []testutil.Product{
		{CategoryID: 1, Name: "Widget", Price: "2.50"},
		{CategoryID: 1, SubCategory: true, Name: "Sprocket", Price: "4.75"},
		{CategoryID: 2, Name: "Gadget", Price: "10.00"},
	}
}

var errUnavailable = errors.New("database unavailable")

// flakyOpener fails the first `failures` opens, then delegates to next.
// With a nil next it hands out stubConns.
type flakyOpener struct {
	mu       sync.Mutex
	failures int
	calls    int
	next     Opener
}

func (o *flakyOpener) Open(ctx context.Context, target Target) (Conn, error) {
	o.mu.Lock()
	o.calls++
	fail := o.calls <= o.failures
	o.mu.Unlock()

	if fail {
		return nil, errUnavailable
	}
	if o.next == nil {
		return &stubConn{}, nil
	}
	return o.next.Open(ctx, target)
}

func (o *flakyOpener) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

// stubConn is a Conn that refuses every statement.
type stubConn struct {
	closed bool
}

var errStub = errors.New("stub connection")

func (c *stubConn) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errStub
}

func (c *stubConn) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errStub
}

func (c *stubConn) Close() error {
	c.closed = true
	return nil
}

// countingOpener counts open connections so tests can assert every
// connection was released.
type countingOpener struct {
	mu   sync.Mutex
	open int
	next Opener
}

func (o *countingOpener) Open(ctx context.Context, target Target) (Conn, error) {
	conn, err := o.next.Open(ctx, target)
	if err != nil {
		return nil, err
	}
	o.mu.Lock()
	o.open++
	o.mu.Unlock()
	return &countedConn{Conn: conn, owner: o}, nil
}

func (o *countingOpener) OpenCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.open
}

type countedConn struct {
	Conn
	owner *countingOpener
	once  sync.Once
}

func (c *countedConn) Close() error {
	c.once.Do(func() {
		c.owner.mu.Lock()
		c.owner.open--
		c.owner.mu.Unlock()
	})
	return c.Conn.Close()
}
