// Package daemon wires the long-running scribed process together: it enforces
// single-instance execution with a lock file, runs the workflow manager and
// orphan sweeper, and serves the read-mostly HTTP API used by the CLI and
// dashboards. The only mutating endpoint is the per-job stop request.
package daemon
