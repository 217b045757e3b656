// Package logging builds the slog loggers used across Scribe.
//
// It provides a console handler with aligned key=value output, a JSON
// handler for machine consumption, shared attribute helpers with
// standardized field names, and a bounded in-memory StreamHub that fans
// recent records out to API and CLI followers.
package logging
