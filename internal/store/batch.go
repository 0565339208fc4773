package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/rowkit/internal/bind"
	"github.com/roach88/rowkit/internal/record"
)

// QueryKind selects how a batch item is executed. The zero value is unset
// and fails validation.
type QueryKind int

const (
	QueryUnset QueryKind = iota
	QuerySingle
	QueryMany
	QueryNonQuery
	QueryScalar
)

var queryKindNames = [...]string{
	QueryUnset:    "",
	QuerySingle:   "single",
	QueryMany:     "many",
	QueryNonQuery: "nonquery",
	QueryScalar:   "scalar",
}

func (k QueryKind) String() string {
	if k.valid() || k == QueryUnset {
		return queryKindNames[k]
	}
	return fmt.Sprintf("QueryKind(%d)", int(k))
}

func (k QueryKind) valid() bool {
	return k >= QuerySingle && k <= QueryScalar
}

// ParseQueryKind parses a kind name. "non-query" and "non_query" are accepted
// for nonquery.
func ParseQueryKind(s string) (QueryKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single":
		return QuerySingle, nil
	case "many":
		return QueryMany, nil
	case "nonquery", "non-query", "non_query":
		return QueryNonQuery, nil
	case "scalar":
		return QueryScalar, nil
	default:
		return QueryUnset, fmt.Errorf("unknown query kind %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k QueryKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *QueryKind) UnmarshalText(b []byte) error {
	parsed, err := ParseQueryKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// BatchItem is one statement of a batch.
type BatchItem struct {
	ID     int
	Query  string
	Params []bind.Parameter
	Kind   QueryKind
}

// BatchResult holds the outcome of one batch item. Exactly one payload
// field is meaningful, selected by Kind.
type BatchResult struct {
	Kind    QueryKind
	Record  *record.Record   // QuerySingle; nil when no row matched
	Records []*record.Record // QueryMany; never nil
	Outcome NonQueryOutcome  // QueryNonQuery
	Value   record.Value     // QueryScalar
}

// MarshalJSON encodes the result as {"kind": ..., "result": ...}.
func (r BatchResult) MarshalJSON() ([]byte, error) {
	var payload any
	switch r.Kind {
	case QuerySingle:
		payload = r.Record
	case QueryMany:
		payload = r.Records
	case QueryNonQuery:
		payload = r.Outcome
	case QueryScalar:
		raw, err := record.MarshalValue(r.Value)
		if err != nil {
			return nil, err
		}
		payload = json.RawMessage(raw)
	}
	return json.Marshal(struct {
		Kind   QueryKind `json:"kind"`
		Result any       `json:"result"`
	}{r.Kind, payload})
}

// ValidateBatch checks every item, in order, and returns the first
// violation. Checks per item: non-empty query, non-zero id, parameters
// present when the query has placeholders, a known kind, and an id not used
// by an earlier item.
func ValidateBatch(items []BatchItem) error {
	seen := make(map[int]struct{}, len(items))
	for i, item := range items {
		missing := func(field BatchField, msg string) error {
			return &MissingFieldError{Index: i, ID: item.ID, Field: field, Message: msg}
		}

		if item.Query == "" {
			return missing(FieldQuery, "query must not be empty")
		}
		if item.ID == 0 {
			return missing(FieldID, "id must be non-zero")
		}
		if strings.Contains(item.Query, "@") {
			if len(item.Params) == 0 {
				return missing(FieldParams, "query has placeholders but no parameters were supplied")
			}
			for _, p := range item.Params {
				if p.IsZero() {
					return missing(FieldParams, "parameter list contains an empty entry")
				}
			}
		}
		if !item.Kind.valid() {
			return missing(FieldKind, "kind must be one of single, many, nonquery, scalar")
		}
		if _, dup := seen[item.ID]; dup {
			return &DuplicateKeyError{Index: i, ID: item.ID}
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}

// Batch validates items and runs them in order on this session's
// connection.
func (s *Session) Batch(ctx context.Context, items []BatchItem) (map[int]BatchResult, error) {
	if err := ValidateBatch(items); err != nil {
		return nil, err
	}
	return s.runBatch(ctx, items)
}

func (s *Session) runBatch(ctx context.Context, items []BatchItem) (map[int]BatchResult, error) {
	results := make(map[int]BatchResult, len(items))
	for _, item := range items {
		res, err := s.runItem(ctx, item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", item.ID, err)
		}
		results[item.ID] = res
	}
	s.logger.Debug("batch complete", "items", len(items))
	return results, nil
}

func (s *Session) runItem(ctx context.Context, item BatchItem) (BatchResult, error) {
	res := BatchResult{Kind: item.Kind}
	switch item.Kind {
	case QuerySingle:
		rec, err := s.Single(ctx, item.Query, item.Params...)
		if err != nil {
			return res, err
		}
		res.Record = rec
	case QueryMany:
		cur, err := s.Many(ctx, item.Query, item.Params...)
		if err != nil {
			return res, err
		}
		recs, err := cur.Collect()
		if err != nil {
			return res, err
		}
		res.Records = recs
	case QueryNonQuery:
		out, err := s.NonQuery(ctx, item.Query, item.Params...)
		if err != nil {
			return res, err
		}
		res.Outcome = out
	case QueryScalar:
		v, err := s.Scalar(ctx, item.Query, item.Params...)
		if err != nil {
			return res, err
		}
		res.Value = v
	}
	return res, nil
}
