package worker

// Message kinds emitted on a worker's stdout. Each line is one JSON message.
const (
	KindReady  = "ready"
	KindResult = "result"
)

// Task is one segment handed to a worker over stdin.
type Task struct {
	Index     int     `json:"index"`
	AudioPath string  `json:"audio_path"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
}

// Result is the outcome of one task. Only the merged transcript consumes
// results, so the wire carries the segment text and nothing finer grained.
type Result struct {
	Index       int     `json:"index"`
	OK          bool    `json:"ok"`
	Text        string  `json:"text,omitempty"`
	Error       string  `json:"error,omitempty"`
	Recoverable bool    `json:"recoverable,omitempty"`
	WorkerID    string  `json:"worker_id"`
	TookSeconds float64 `json:"took_seconds"`
}

// Message is the envelope for every line a worker writes to stdout.
type Message struct {
	Kind     string  `json:"kind"`
	WorkerID string  `json:"worker_id"`
	PID      int     `json:"pid,omitempty"`
	Result   *Result `json:"result,omitempty"`
}
