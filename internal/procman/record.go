package procman

import (
	"sync"
	"time"
)

// State tracks the lifecycle of one supervised worker process.
type State string

const (
	StateRegistered State = "registered"
	StateRunning    State = "running"
	StateStopping   State = "stopping"
	StateStopped    State = "stopped"
	StateFailed     State = "failed"
)

// IsTerminal reports whether the state is final.
func (s State) IsTerminal() bool {
	return s == StateStopped || s == StateFailed
}

// Record is the supervision entry for one spawned worker process.
type Record struct {
	WorkerID string
	JobID    int64
	PID      int
	LogPath  string

	mu        sync.Mutex
	state     State
	startedAt time.Time
	lastBeat  time.Time
	stoppedAt time.Time
	reason    string
}

// Snapshot is an immutable copy of a record for status reporting.
type Snapshot struct {
	WorkerID  string    `json:"worker_id"`
	JobID     int64     `json:"job_id"`
	PID       int       `json:"pid"`
	State     State     `json:"state"`
	LogPath   string    `json:"log_path,omitempty"`
	StartedAt time.Time `json:"started_at"`
	LastBeat  time.Time `json:"last_beat,omitempty"`
	StoppedAt time.Time `json:"stopped_at,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

func newRecord(jobID int64, workerID string, pid int, logPath string) *Record {
	return &Record{
		WorkerID:  workerID,
		JobID:     jobID,
		PID:       pid,
		LogPath:   logPath,
		state:     StateRegistered,
		startedAt: time.Now().UTC(),
	}
}

// State returns the current lifecycle state.
func (r *Record) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// setState applies a transition unless the record is already terminal.
// Resources are only released after a terminal transition has been recorded.
func (r *Record) setState(to State, reason string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.IsTerminal() {
		return false
	}
	r.state = to
	if reason != "" {
		r.reason = reason
	}
	if to.IsTerminal() {
		r.stoppedAt = time.Now().UTC()
	}
	return true
}

func (r *Record) beat() {
	r.mu.Lock()
	r.lastBeat = time.Now().UTC()
	r.mu.Unlock()
}

// Snapshot copies the record under lock.
func (r *Record) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		WorkerID:  r.WorkerID,
		JobID:     r.JobID,
		PID:       r.PID,
		State:     r.state,
		LogPath:   r.LogPath,
		StartedAt: r.startedAt,
		LastBeat:  r.lastBeat,
		StoppedAt: r.stoppedAt,
		Reason:    r.reason,
	}
}
