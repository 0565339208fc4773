// Package bind attaches declared parameters to the placeholders of a query.
//
// Placeholders are named tokens (typically "@Name") inside the query text.
// The binder rewrites each occurrence of a declared name into a positional
// "?" and returns the converted values in the order the occurrences appear
// in the text, NOT the order the parameters were declared. A name only
// matches as a whole token, so "@Category" never binds inside "@CategoryID".
//
// Parameters whose name does not occur in the text are skipped silently.
package bind
