package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/rowkit/internal/bind"
	"github.com/roach88/rowkit/internal/record"
)

// identityQuery reads the rowid generated by the last INSERT on this
// connection. It must run on the same connection as the INSERT.
const identityQuery = "SELECT last_insert_rowid()"

// NonQueryOutcome is the result of a statement that returns no rows.
// Identity is set only when the store was configured to return identities.
type NonQueryOutcome struct {
	RowsAffected int64  `json:"rows_affected"`
	Identity     *int64 `json:"identity,omitempty"`
}

// NonQuery executes a statement that returns no rows and reports the
// number of rows it affected.
//
// When the session returns identities, the generated identity is read on the
// same connection immediately afterwards. A statement that generated no
// identity reports the connection's previous one, matching the driver.
func (s *Session) NonQuery(ctx context.Context, query string, params ...bind.Parameter) (NonQueryOutcome, error) {
	const op = "nonquery"
	res, err := s.exec(ctx, op, query, params)
	if err != nil {
		return NonQueryOutcome{}, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return NonQueryOutcome{}, &ExecutionError{Op: op, Query: query, Err: fmt.Errorf("rows affected: %w", err)}
	}
	out := NonQueryOutcome{RowsAffected: affected}

	if !s.returnIdentity {
		return out, nil
	}

	id, err := s.identity(ctx)
	if err != nil {
		return NonQueryOutcome{}, &ExecutionError{Op: op, Query: query, Err: err}
	}
	out.Identity = &id
	return out, nil
}

var errNoIdentity = errors.New("no identity returned")

func (s *Session) identity(ctx context.Context) (int64, error) {
	v, err := s.scalar(ctx, "identity", identityQuery, nil)
	if err != nil {
		return 0, fmt.Errorf("read identity: %w", err)
	}
	iv, err := record.Coerce(v, record.KindInt)
	if err != nil {
		return 0, fmt.Errorf("read identity: %w", err)
	}
	n, ok := iv.(record.Int)
	if !ok {
		return 0, errNoIdentity
	}
	return int64(n), nil
}
