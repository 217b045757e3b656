// Command scribe is the CLI for the scribe transcription daemon. It queues
// and runs transcription jobs, renders daemon status, tails worker logs, and
// hosts the hidden worker mode the dispatcher re-executes the binary with.
package main
