// Package jobs persists transcription jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, heartbeat
// tracking, stale-job queries, and guarded status transitions. Completed,
// failed, and cancelled jobs are terminal; writes against a terminal row are
// ignored so a late worker can never resurrect a finished job.
//
// The database is treated as transient storage for in-flight jobs rather than
// a long-term archive. Schema changes bump the version in schema.go; users
// delete the database to adopt the new schema.
package jobs
