package procman

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sys/unix"

	"scribe/internal/jobs"
	"scribe/internal/logging"
)

// Sweeper periodically scans the job store for processing jobs whose
// heartbeat went stale, terminates any process the job still lists, and marks
// the job failed. This is how jobs survive an orchestrator that died without
// cleaning up.
type Sweeper struct {
	store    *jobs.Store
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
	grace    time.Duration
}

// NewSweeper builds a sweeper. timeout is how stale a heartbeat must be
// before a job counts as orphaned.
func NewSweeper(store *jobs.Store, logger *slog.Logger, interval, timeout time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Sweeper{
		store:    store,
		logger:   logging.WithComponent(logger, "sweeper"),
		interval: interval,
		timeout:  timeout,
		grace:    5 * time.Second,
	}
}

// Run sweeps on a fixed cadence until the context ends. A failing or
// panicking sweep is logged and the next tick runs normally; the sweep loop
// itself never dies.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sweepOnce(ctx); err != nil {
				s.logger.Warn("orphan sweep failed", logging.Error(err))
			}
		}
	}
}

// SweepOnce runs a single orphan scan. Exposed so the daemon can sweep at
// startup before admitting new work.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	return s.sweepOnce(ctx)
}

func (s *Sweeper) sweepOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("orphan sweep panic: %v", r)
		}
	}()

	cutoff := time.Now().Add(-s.timeout)
	stale, err := s.store.StaleProcessing(ctx, cutoff)
	if err != nil {
		return err
	}

	for _, job := range stale {
		s.reapJob(ctx, job)
	}
	return nil
}

func anyAlive(pids []int) bool {
	for _, pid := range pids {
		if processAlive(pid) {
			return true
		}
	}
	return false
}

func (s *Sweeper) reapJob(ctx context.Context, job *jobs.Job) {
	logger := s.logger.With(logging.Int64(logging.FieldJobID, job.ID))

	// Same shutdown shape as Manager.Stop: SIGTERM to the group, a bounded
	// grace wait, SIGKILL for anything still alive.
	var lingering []int
	for _, pid := range job.ProcessIDs {
		if !processAlive(pid) {
			continue
		}
		if termErr := kill(-pid, unix.SIGTERM); termErr != nil {
			_ = kill(pid, unix.SIGTERM)
		}
		logger.Warn("terminating leftover worker process", logging.Int("pid", pid))
		lingering = append(lingering, pid)
	}
	if len(lingering) > 0 {
		deadline := time.Now().Add(s.grace)
		for time.Now().Before(deadline) && anyAlive(lingering) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
		}
		for _, pid := range lingering {
			if !processAlive(pid) {
				continue
			}
			if killErr := kill(-pid, unix.SIGKILL); killErr != nil {
				_ = kill(pid, unix.SIGKILL)
			}
			logger.Warn("killed leftover worker process after grace period", logging.Int("pid", pid))
		}
	}

	applied, err := s.store.Transition(ctx, job.ID, jobs.StatusFailed, jobs.OrphanReason)
	if err != nil {
		logger.Warn("failed to mark orphaned job", logging.Error(err))
		return
	}
	if applied {
		logger.Warn("orphaned job marked failed",
			logging.String("source", job.SourcePath),
		)
	}
}
