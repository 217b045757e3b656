// Package dispatch owns the transcription pipeline for one job: it probes
// the source, plans and cuts overlapping segments, spawns a fixed set of
// worker processes, streams tasks to whichever worker has a free thread,
// retries a failed segment once on another attempt, merges the results, and
// writes the output files. Worker processes are registered with the process
// lifecycle manager so heartbeats and termination are handled uniformly.
package dispatch
