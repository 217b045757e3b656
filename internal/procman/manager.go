package procman

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"scribe/internal/jobs"
	"scribe/internal/logging"
)

var kill = unix.Kill

// processAlive probes a pid with signal 0. EPERM means the process exists
// but belongs to someone else, which still counts as alive.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := kill(pid, 0)
	if err == nil {
		return true
	}
	return errors.Is(err, unix.EPERM)
}

// Options configures a Manager.
type Options struct {
	HeartbeatInterval time.Duration
	StopGracePeriod   time.Duration
}

// Manager supervises the worker processes spawned for transcription jobs. It
// owns one heartbeat goroutine per registered process; the heartbeat probes
// process liveness and refreshes the job's heartbeat column so the orphan
// sweep can tell live jobs from abandoned ones.
type Manager struct {
	store  *jobs.Store
	logger *slog.Logger
	opts   Options

	mu      sync.Mutex
	records map[string]*Record
	wg      sync.WaitGroup
}

// NewManager builds a Manager writing heartbeats through store.
func NewManager(store *jobs.Store, logger *slog.Logger, opts Options) *Manager {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = 5 * time.Second
	}
	if opts.StopGracePeriod <= 0 {
		opts.StopGracePeriod = 5 * time.Second
	}
	return &Manager{
		store:   store,
		logger:  logging.WithComponent(logger, "procman"),
		opts:    opts,
		records: make(map[string]*Record),
	}
}

// Register starts supervising a spawned process and begins its heartbeat loop.
func (m *Manager) Register(ctx context.Context, jobID int64, workerID string, pid int, logPath string) (*Record, error) {
	if workerID == "" {
		return nil, fmt.Errorf("procman: worker id is required")
	}
	m.mu.Lock()
	if _, exists := m.records[workerID]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("procman: worker %s already registered", workerID)
	}
	rec := newRecord(jobID, workerID, pid, logPath)
	m.records[workerID] = rec
	m.mu.Unlock()

	m.logger.Info("worker registered",
		logging.Int64(logging.FieldJobID, jobID),
		logging.String(logging.FieldWorkerID, workerID),
		logging.Int("pid", pid),
	)

	m.wg.Add(1)
	go m.heartbeatLoop(ctx, rec)
	return rec, nil
}

// MarkRunning moves a registered worker into the running state, typically
// when its ready announcement arrives.
func (m *Manager) MarkRunning(workerID string) {
	if rec := m.lookup(workerID); rec != nil {
		rec.setState(StateRunning, "")
	}
}

// MarkStopped records that a worker exited on its own.
func (m *Manager) MarkStopped(workerID string, reason string) {
	if rec := m.lookup(workerID); rec != nil {
		rec.setState(StateStopped, reason)
	}
}

// Stop terminates one worker: SIGTERM to its process group, a bounded grace
// wait, then SIGKILL for anything still alive. Calling Stop on a worker that
// already finished is a no-op.
func (m *Manager) Stop(ctx context.Context, workerID string) error {
	rec := m.lookup(workerID)
	if rec == nil {
		return fmt.Errorf("procman: unknown worker %s", workerID)
	}
	if rec.State().IsTerminal() {
		return nil
	}
	rec.setState(StateStopping, "")

	// Workers are spawned with their own process group, so the negative pid
	// reaches the whole group.
	if err := kill(-rec.PID, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		m.logger.Warn("sigterm failed",
			logging.String(logging.FieldWorkerID, workerID),
			logging.Error(err),
		)
	}

	deadline := time.Now().Add(m.opts.StopGracePeriod)
	for time.Now().Before(deadline) {
		if !processAlive(rec.PID) {
			rec.setState(StateStopped, "")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}

	if processAlive(rec.PID) {
		if err := kill(-rec.PID, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
			return fmt.Errorf("procman: sigkill worker %s: %w", workerID, err)
		}
		m.logger.Warn("worker killed after grace period",
			logging.String(logging.FieldWorkerID, workerID),
			logging.Int("pid", rec.PID),
		)
	}
	rec.setState(StateStopped, "killed after grace period")
	return nil
}

// StopJob terminates every worker registered for a job.
func (m *Manager) StopJob(ctx context.Context, jobID int64) error {
	var firstErr error
	for _, snap := range m.JobRecords(jobID) {
		if err := m.Stop(ctx, snap.WorkerID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Release drops a job's terminal records from the registry, reclaiming them
// once their processes are confirmed gone. Records still starting, running,
// or stopping are kept; stop them first.
func (m *Manager) Release(jobID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for workerID, rec := range m.records {
		if rec.JobID == jobID && rec.State().IsTerminal() {
			delete(m.records, workerID)
		}
	}
}

// JobRecords returns snapshots of every record belonging to a job.
func (m *Manager) JobRecords(jobID int64) []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Snapshot
	for _, rec := range m.records {
		if rec.JobID == jobID {
			out = append(out, rec.Snapshot())
		}
	}
	return out
}

// Records returns snapshots of every supervised process.
func (m *Manager) Records() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Snapshot, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec.Snapshot())
	}
	return out
}

// Wait blocks until every heartbeat loop has exited.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) lookup(workerID string) *Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[workerID]
}

// heartbeatLoop probes the process and refreshes the job heartbeat until the
// record reaches a terminal state. Failures inside a tick are logged and the
// loop keeps going; monitoring must outlive individual hiccups.
func (m *Manager) heartbeatLoop(ctx context.Context, rec *Record) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.opts.HeartbeatInterval)
	defer ticker.Stop()

	logger := m.logger.With(
		logging.Int64(logging.FieldJobID, rec.JobID),
		logging.String(logging.FieldWorkerID, rec.WorkerID),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if rec.State().IsTerminal() {
			return
		}
		if !processAlive(rec.PID) {
			if rec.setState(StateFailed, "process disappeared") {
				logger.Warn("worker process disappeared", logging.Int("pid", rec.PID))
			}
			return
		}
		rec.beat()
		if err := m.store.UpdateHeartbeat(ctx, rec.JobID); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Warn("heartbeat update failed", logging.Error(err))
		}
	}
}
