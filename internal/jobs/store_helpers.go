package jobs

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"
)

const jobColumns = "id, source_path, status, model, language, progress, speed_factor, segments_total, segments_done, process_ids, log_paths, output_files, error_message, created_at, updated_at, last_heartbeat"

const terminalPlaceholders = "?, ?, ?"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id               int64
		sourcePath       string
		statusStr        string
		model            sql.NullString
		language         sql.NullString
		progress         sql.NullFloat64
		speedFactor      sql.NullFloat64
		segmentsTotal    sql.NullInt64
		segmentsDone     sql.NullInt64
		processIDs       sql.NullString
		logPaths         sql.NullString
		outputFiles      sql.NullString
		errorMessage     sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		lastHeartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sourcePath,
		&statusStr,
		&model,
		&language,
		&progress,
		&speedFactor,
		&segmentsTotal,
		&segmentsDone,
		&processIDs,
		&logPaths,
		&outputFiles,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&lastHeartbeatRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:            id,
		SourcePath:    sourcePath,
		Status:        Status(statusStr),
		Model:         model.String,
		Language:      language.String,
		Progress:      progress.Float64,
		SpeedFactor:   speedFactor.Float64,
		SegmentsTotal: int(segmentsTotal.Int64),
		SegmentsDone:  int(segmentsDone.Int64),
		ErrorMessage:  errorMessage.String,
		CreatedAt:     parseTimestamp(createdRaw),
		UpdatedAt:     parseTimestamp(updatedRaw),
	}

	if lastHeartbeatRaw.Valid && strings.TrimSpace(lastHeartbeatRaw.String) != "" {
		if ts, err := time.Parse(time.RFC3339Nano, lastHeartbeatRaw.String); err == nil {
			utc := ts.UTC()
			job.LastHeartbeat = &utc
		}
	}

	var err error
	if job.ProcessIDs, err = decodeInts(processIDs.String); err != nil {
		return nil, err
	}
	if job.LogPaths, err = decodeStrings(logPaths.String); err != nil {
		return nil, err
	}
	if job.OutputFiles, err = decodeStrings(outputFiles.String); err != nil {
		return nil, err
	}

	return job, nil
}

func parseTimestamp(raw sql.NullString) time.Time {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, raw.String)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableTime(ts *time.Time) any {
	if ts == nil || ts.IsZero() {
		return nil
	}
	return ts.UTC().Format(time.RFC3339Nano)
}

func encodeInts(values []int) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeInts(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var values []int
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	return values, nil
}

func encodeStrings(values []string) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeStrings(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	return values, nil
}

func makePlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
