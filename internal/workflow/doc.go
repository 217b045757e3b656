// Package workflow runs the daemon's background processing loop. The manager
// polls the job store for pending work, claims one job at a time, and hands it
// to the dispatch orchestrator. The orphan sweeper runs alongside on its own
// ticker so jobs abandoned by a crashed daemon are reaped even while new work
// flows. Stop requests cancel the per-job context; daemon shutdown marks the
// in-flight job failed so a restart does not silently resume half-done work.
package workflow
