package workflow

import (
	"context"
	"errors"
	"time"

	"scribe/internal/jobs"
	"scribe/internal/logging"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(2)
	m.mu.Unlock()

	// Reap anything a previous daemon left in processing before taking new work.
	if err := m.sweeper.SweepOnce(runCtx); err != nil {
		m.logger.Warn("startup orphan sweep failed", logging.Error(err))
	}

	go func() {
		defer m.wg.Done()
		m.sweeper.Run(runCtx)
	}()
	go func() {
		defer m.wg.Done()
		m.runQueue(runCtx)
	}()
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.procs.Wait()
}

func (m *Manager) runQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := m.store.ClaimNextPending(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.setLastError(err)
			m.logger.Error("failed to claim next pending job", logging.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.errorInterval):
			}
			continue
		}
		if job == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.pollInterval):
			}
			continue
		}

		m.processJob(ctx, job)
	}
}

func (m *Manager) processJob(ctx context.Context, job *jobs.Job) {
	jobCtx, cancel := context.WithCancel(ctx)
	m.trackJob(job.ID, cancel)
	defer func() {
		cancel()
		m.untrackJob(job.ID)
	}()

	err := m.runner.Run(jobCtx, job)
	if err == nil {
		return
	}
	m.setLastError(err)

	if ctx.Err() != nil {
		// Daemon shutdown took the context down mid-job. Fail the job so a
		// restart re-queues it deliberately instead of resuming half-done.
		failCtx, cancelFail := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelFail()
		if _, failErr := m.store.Transition(failCtx, job.ID, jobs.StatusFailed, jobs.DaemonStopReason); failErr != nil {
			m.logger.Warn("failed to mark job failed during shutdown", logging.Error(failErr))
		}
		return
	}
	if jobCtx.Err() != nil {
		// Stop request: whoever cancelled already wrote the cancelled status.
		m.logger.Info("job stopped", logging.Int64(logging.FieldJobID, job.ID))
		return
	}
	m.logger.Error("job processing failed",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.Error(err),
	)
}

// StopJob cancels a pending or in-flight job. It writes the cancelled status
// first so late results from the orchestrator are discarded, then cancels the
// job context and force-stops its worker processes. Safe to call repeatedly.
func (m *Manager) StopJob(ctx context.Context, id int64) (bool, error) {
	applied, err := m.store.Transition(ctx, id, jobs.StatusCancelled, "stopped by request")
	if err != nil {
		return false, err
	}
	if cancel := m.cancelFor(id); cancel != nil {
		cancel()
	}
	if err := m.procs.StopJob(ctx, id); err != nil {
		m.logger.Warn("stopping job workers failed",
			logging.Int64(logging.FieldJobID, id),
			logging.Error(err),
		)
	}
	return applied, nil
}
