// Package record provides the portable row representation returned by the
// store: an ordered name→Value mapping whose values are a sealed set of
// tagged variants.
//
// This package contains value types and coercion rules only. It imports
// nothing internal, so every other package can depend on it.
//
// Key design constraints:
//   - Values are immutable once constructed
//   - Record keys keep the column order reported by the query
//   - Coercion failures are reported as *ConversionError; callers that
//     materialize rows substitute Default(kind) instead of failing
package record
