// Package harness runs scenario files against a scratch database.
//
// A scenario creates a fresh database file, applies its schema and setup
// statements, executes a flow of steps through the store, and then checks
// the resulting trace and final table state.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: update_prices
//	description: "Category 1 price update is visible to later reads"
//	schema:
//	  - CREATE TABLE Products (ID INTEGER PRIMARY KEY AUTOINCREMENT, CategoryID INTEGER, Price CURRENCY)
//	setup:
//	  - query: INSERT INTO Products (CategoryID, Price) VALUES (@Cat, @Price)
//	    params:
//	      - { name: "@Cat", type: integer, value: 1 }
//	      - { name: "@Price", type: currency, value: "2.50" }
//	flow:
//	  - id: 1
//	    kind: nonquery
//	    query: UPDATE Products SET Price = @Price WHERE CategoryID = @Cat
//	    params:
//	      - { name: "@Price", type: currency, value: "2.99" }
//	      - { name: "@Cat", type: integer, value: 1 }
//	    expect:
//	      rows_affected: 1
//	assertions:
//	  - type: final_state
//	    table: Products
//	    where: { ID: 1 }
//	    expect: { Price: 2.99 }
//
// Flow steps share one session, so a step sees connection state left by the
// steps before it (last_insert_rowid, temp tables).
//
// # Assertion Types
//
//   - trace_contains: the step ran, optionally with the given kind
//   - trace_order: the steps ran in the given order
//   - row_count: a table (optionally filtered) holds exactly N rows
//   - final_state: exactly one row matches and its fields have the given values
//
// # Deterministic Output
//
// Traces carry a fixed trace id (scenario.trace_id or a constant default) and
// a sequence number per step, so the trace serializes identically across runs
// and can be compared against golden files.
package harness
