// Package worker implements the harness run inside each spawned transcription
// process. The orchestrator feeds segment tasks as JSON lines on stdin; the
// harness fans them out across a small thread pool sharing one engine client
// and writes JSON result lines to stdout. Every engine call is wrapped so a
// single bad segment produces a failed result instead of crashing the process.
package worker
