// Package output writes the final deliverables for a completed job: a plain
// text transcript, a structured JSON document with timing and metadata, and a
// SubRip subtitle file.
package output
