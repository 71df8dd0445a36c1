// Package types defines the shared domain types for pagegrid: record
// identity, lookup references, the declarative search wire format, the
// schema export format, and the error taxonomy used across all layers.
package types
