// Package mapping copies record values into typed Go structs.
//
// A destination type registers its settable fields once in a Fields table;
// an ObjectMapping renames or excludes source columns. Field names match
// case-insensitively under Unicode case folding. Columns with no matching
// field are dropped without error.
package mapping
