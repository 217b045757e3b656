// Package api defines wire-format types and converters for the HTTP API
// layer. It translates internal job and process models into transport-friendly
// DTOs so dashboard and CLI consumers never couple to internal types.
//
// DTOs use camelCase JSON tags. Internal enums (jobs.Status, procman.State)
// are exposed as lowercase strings. Timestamps use RFC3339 with milliseconds.
package api
