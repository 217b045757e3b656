package api

import (
	"time"

	"scribe/internal/deps"
	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/procman"
)

// FromJob converts a persisted job into its API representation.
func FromJob(job *jobs.Job) Job {
	if job == nil {
		return Job{}
	}
	out := Job{
		ID:            job.ID,
		SourcePath:    job.SourcePath,
		Status:        string(job.Status),
		Model:         job.Model,
		Language:      job.Language,
		Progress:      job.Progress,
		SpeedFactor:   job.SpeedFactor,
		SegmentsTotal: job.SegmentsTotal,
		SegmentsDone:  job.SegmentsDone,
		ProcessIDs:    job.ProcessIDs,
		LogPaths:      job.LogPaths,
		OutputFiles:   job.OutputFiles,
		ErrorMessage:  job.ErrorMessage,
		CreatedAt:     formatTime(job.CreatedAt),
		UpdatedAt:     formatTime(job.UpdatedAt),
	}
	if job.LastHeartbeat != nil {
		out.LastHeartbeat = formatTime(*job.LastHeartbeat)
	}
	return out
}

// FromJobs converts a job slice, preserving order.
func FromJobs(items []*jobs.Job) []Job {
	if len(items) == 0 {
		return nil
	}
	out := make([]Job, 0, len(items))
	for _, item := range items {
		out = append(out, FromJob(item))
	}
	return out
}

// FromStats converts aggregate job counts.
func FromStats(stats jobs.Stats) JobStats {
	return JobStats{
		Total:      stats.Total,
		Pending:    stats.Pending,
		Processing: stats.Processing,
		Completed:  stats.Completed,
		Failed:     stats.Failed,
		Cancelled:  stats.Cancelled,
	}
}

// FromSnapshots converts process lifecycle snapshots.
func FromSnapshots(snaps []procman.Snapshot) []WorkerStatus {
	if len(snaps) == 0 {
		return nil
	}
	out := make([]WorkerStatus, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, WorkerStatus{
			WorkerID:  snap.WorkerID,
			JobID:     snap.JobID,
			PID:       snap.PID,
			State:     string(snap.State),
			LogPath:   snap.LogPath,
			StartedAt: formatTime(snap.StartedAt),
			LastBeat:  formatTime(snap.LastBeat),
			Reason:    snap.Reason,
		})
	}
	return out
}

// FromDependencies converts external tool availability reports.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	if len(statuses) == 0 {
		return nil
	}
	out := make([]DependencyStatus, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, DependencyStatus{
			Name:        status.Name,
			Command:     status.Command,
			Description: status.Description,
			Optional:    status.Optional,
			Available:   status.Available,
			Detail:      status.Detail,
		})
	}
	return out
}

// FromLogEvents converts hub log events into API payloads.
func FromLogEvents(events []logging.LogEvent) []LogEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]LogEvent, 0, len(events))
	for _, evt := range events {
		out = append(out, LogEvent{
			Sequence:  evt.Sequence,
			Timestamp: formatTime(evt.Timestamp),
			Level:     evt.Level,
			Message:   evt.Message,
			Component: evt.Component,
			JobID:     evt.JobID,
			WorkerID:  evt.WorkerID,
			Fields:    evt.Fields,
		})
	}
	return out
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Format(dateTimeFormat)
}
