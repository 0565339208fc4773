// Package store executes parameterized SQL against a file-backed SQLite
// database and returns rows as ordered record.Record values.
//
// Every logical operation acquires its own connection through the Gate and
// releases it before returning, except Many, whose Cursor owns the
// connection until it is drained or closed. A Session pins one connection
// for several statements; Batch runs on a Session.
//
// # Execution primitives
//
//   - Single: first row or nil when the result set is empty
//   - Many: forward-only Cursor, empty result set is an empty cursor
//   - NonQuery: rows affected, plus the generated identity when the store
//     was derived with WithReturnIdentity (read on the SAME connection)
//   - Scalar: first column of the first row, record.Null{} when empty
//
// # Failure policy
//
//   - Connection failures are retried by the Gate with linear backoff
//     (attempt × unit, no jitter) and end in *ConnectionError
//   - Statement failures are never retried and surface as *ExecutionError
//   - Column coercion failures are absorbed: the column takes the
//     default value of its declared kind
//   - Batch validation happens before anything executes and fails the
//     whole batch with *MissingFieldError or *DuplicateKeyError
//
// # Database configuration
//
// Connections are opened with busy_timeout=5000 and foreign_keys=ON and in
// read-write mode: the database file must already exist.
package store
