package workflow

import (
	"context"
	"sort"

	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/procman"
)

// StatusSummary reports the manager's runtime state for status surfaces.
type StatusSummary struct {
	Running    bool
	Stats      jobs.Stats
	ActiveJobs []int64
	Workers    []procman.Snapshot
	LastError  string
}

// Status returns a point-in-time summary of queue and worker state.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.Lock()
	running := m.running
	active := make([]int64, 0, len(m.active))
	for id := range m.active {
		active = append(active, id)
	}
	lastErr := ""
	if m.lastErr != nil {
		lastErr = m.lastErr.Error()
	}
	m.mu.Unlock()
	sort.Slice(active, func(i, j int) bool { return active[i] < active[j] })

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("job stats unavailable", logging.Error(err))
	}

	return StatusSummary{
		Running:    running,
		Stats:      stats,
		ActiveJobs: active,
		Workers:    m.procs.Records(),
		LastError:  lastErr,
	}
}
