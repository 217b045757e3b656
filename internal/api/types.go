package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a transcription job in a transport-friendly format.
type Job struct {
	ID            int64    `json:"id"`
	SourcePath    string   `json:"sourcePath"`
	Status        string   `json:"status"`
	Model         string   `json:"model,omitempty"`
	Language      string   `json:"language,omitempty"`
	Progress      float64  `json:"progress"`
	SpeedFactor   float64  `json:"speedFactor,omitempty"`
	SegmentsTotal int      `json:"segmentsTotal"`
	SegmentsDone  int      `json:"segmentsDone"`
	ProcessIDs    []int    `json:"processIds,omitempty"`
	LogPaths      []string `json:"logPaths,omitempty"`
	OutputFiles   []string `json:"outputFiles,omitempty"`
	ErrorMessage  string   `json:"errorMessage,omitempty"`
	CreatedAt     string   `json:"createdAt,omitempty"`
	UpdatedAt     string   `json:"updatedAt,omitempty"`
	LastHeartbeat string   `json:"lastHeartbeat,omitempty"`
}

// WorkerStatus describes one supervised worker process.
type WorkerStatus struct {
	WorkerID  string `json:"workerId"`
	JobID     int64  `json:"jobId"`
	PID       int    `json:"pid"`
	State     string `json:"state"`
	LogPath   string `json:"logPath,omitempty"`
	StartedAt string `json:"startedAt,omitempty"`
	LastBeat  string `json:"lastBeat,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// JobStats aggregates job counts per lifecycle state.
type JobStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
}

// DependencyStatus captures availability of an external tool.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	JobDBPath    string             `json:"jobDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	Stats        JobStats           `json:"stats"`
	ActiveJobs   []int64            `json:"activeJobs,omitempty"`
	Workers      []WorkerStatus     `json:"workers,omitempty"`
	Dependencies []DependencyStatus `json:"dependencies,omitempty"`
	LastError    string             `json:"lastError,omitempty"`
}

// LogEvent is a structured daemon log line for live tailing.
type LogEvent struct {
	Sequence  uint64            `json:"seq"`
	Timestamp string            `json:"ts"`
	Level     string            `json:"level"`
	Message   string            `json:"msg"`
	Component string            `json:"component,omitempty"`
	JobID     int64             `json:"jobId,omitempty"`
	WorkerID  string            `json:"workerId,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// JobListResponse wraps a collection of jobs for API responses.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// StopResponse reports the outcome of a stop request.
type StopResponse struct {
	Stopped bool   `json:"stopped"`
	Status  string `json:"status,omitempty"`
}

// JobLogsResponse carries tailed worker log lines for a job.
type JobLogsResponse struct {
	Lines []string `json:"lines"`
}

// LogStreamResponse carries daemon log events plus the next fetch cursor.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}
