package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func testLogger(buf *bytes.Buffer, level string) *slog.Logger {
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(level))
	return slog.New(newPrettyHandler(buf, levelVar))
}

func TestPrettyHandlerPromotesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := WithComponent(testLogger(&buf, "info"), "dispatch")
	logger.Info("job started", Int64(FieldJobID, 7))

	line := buf.String()
	if !strings.Contains(line, "dispatch: job started") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, "job_id=7") {
		t.Fatalf("expected job_id attr, got %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should not be repeated as attr: %q", line)
	}
}

func TestPrettyHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := testLogger(&buf, "info")
	logger.Warn("merge ambiguity", String("reason", "no confident match"))

	if !strings.Contains(buf.String(), `reason="no confident match"`) {
		t.Fatalf("expected quoted attr value, got %q", buf.String())
	}
}

func TestPrettyHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := testLogger(&buf, "warn")
	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info record should have been filtered: %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Fatalf("warn record missing: %q", out)
	}
}

func TestStreamHandlerPublishesEvents(t *testing.T) {
	hub := NewStreamHub(8)
	base := NewNop().Handler()
	logger := slog.New(newStreamHandler(base, hub)).With(String(FieldComponent, "procman"))

	logger.Info("worker registered", String(FieldWorkerID, "w-1"), Int64(FieldJobID, 3))

	events, _, err := hub.Fetch(context.Background(), 0, 10, false)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	evt := events[0]
	if evt.Component != "procman" || evt.WorkerID != "w-1" || evt.JobID != 3 {
		t.Fatalf("event fields not mapped: %#v", evt)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
