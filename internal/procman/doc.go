// Package procman supervises the worker processes a transcription job
// spawns. It keeps a record per process, drives a heartbeat loop that probes
// liveness and refreshes the job store, terminates process groups with a
// SIGTERM-then-SIGKILL escalation, sweeps the store for orphaned jobs whose
// owner stopped heartbeating, and serves bounded tails of per-process log
// files.
package procman
