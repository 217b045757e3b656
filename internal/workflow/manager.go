package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"scribe/internal/config"
	"scribe/internal/dispatch"
	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/procman"
)

// JobRunner processes one claimed job end to end.
type JobRunner interface {
	Run(ctx context.Context, job *jobs.Job) error
}

// Manager coordinates job processing: it claims pending jobs one at a time
// and drives each through the runner while the orphan sweeper ticks alongside.
type Manager struct {
	cfg     *config.Config
	store   *jobs.Store
	logger  *slog.Logger
	procs   *procman.Manager
	runner  JobRunner
	sweeper *procman.Sweeper

	pollInterval  time.Duration
	errorInterval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	active  map[int64]context.CancelFunc
	lastErr error
}

// NewManager constructs a workflow manager with the real orchestrator.
func NewManager(cfg *config.Config, store *jobs.Store, procs *procman.Manager, logger *slog.Logger) *Manager {
	runner := dispatch.NewOrchestrator(cfg, store, procs, nil, logger)
	return NewManagerWithRunner(cfg, store, procs, runner, logger)
}

// NewManagerWithRunner constructs a workflow manager with a custom runner
// (used in tests).
func NewManagerWithRunner(cfg *config.Config, store *jobs.Store, procs *procman.Manager, runner JobRunner, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		store:  store,
		logger: logging.WithComponent(logger, "workflow"),
		procs:  procs,
		runner: runner,
		sweeper: procman.NewSweeper(
			store,
			logger,
			time.Duration(cfg.Workflow.OrphanSweepInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		pollInterval:  time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		errorInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		active:        make(map[int64]context.CancelFunc),
	}
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) trackJob(id int64, cancel context.CancelFunc) {
	m.mu.Lock()
	m.active[id] = cancel
	m.mu.Unlock()
}

func (m *Manager) untrackJob(id int64) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}

func (m *Manager) cancelFor(id int64) context.CancelFunc {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[id]
}
