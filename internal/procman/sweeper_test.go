package procman

import (
	"context"
	"testing"
	"time"

	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/testsupport"
)

func TestSweepMarksOrphanedJobsFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	orphan := testsupport.NewJob(t, store, "/media/orphan.mkv")
	fresh := testsupport.NewJob(t, store, "/media/fresh.mkv")
	for _, id := range []int64{orphan.ID, fresh.ID} {
		if _, err := store.Transition(ctx, id, jobs.StatusProcessing, ""); err != nil {
			t.Fatalf("Transition failed: %v", err)
		}
	}

	// The orphan last heartbeated an hour ago and lists a pid that no
	// longer exists.
	old := time.Now().Add(-time.Hour).UTC()
	orphanJob, err := store.GetByID(ctx, orphan.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	orphanJob.LastHeartbeat = &old
	orphanJob.ProcessIDs = []int{1<<22 + 54321}
	if err := store.Update(ctx, orphanJob); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := store.UpdateHeartbeat(ctx, fresh.ID); err != nil {
		t.Fatalf("UpdateHeartbeat failed: %v", err)
	}

	sweeper := NewSweeper(store, logging.NewNop(), time.Hour, time.Minute)
	if err := sweeper.SweepOnce(ctx); err != nil {
		t.Fatalf("SweepOnce failed: %v", err)
	}

	swept, err := store.GetByID(ctx, orphan.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if swept.Status != jobs.StatusFailed {
		t.Fatalf("expected orphan to be failed, got %q", swept.Status)
	}
	if swept.ErrorMessage != jobs.OrphanReason {
		t.Fatalf("expected orphan reason, got %q", swept.ErrorMessage)
	}

	untouched, err := store.GetByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if untouched.Status != jobs.StatusProcessing {
		t.Fatalf("fresh job should be untouched, got %q", untouched.Status)
	}
}

func TestSweepLeavesTerminalJobsAlone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "/media/done.mkv")
	if _, err := store.Transition(ctx, job.ID, jobs.StatusCompleted, ""); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	sweeper := NewSweeper(store, logging.NewNop(), time.Hour, time.Minute)
	if err := sweeper.SweepOnce(ctx); err != nil {
		t.Fatalf("SweepOnce failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != jobs.StatusCompleted {
		t.Fatalf("completed job was touched by sweep: %q", fetched.Status)
	}
}

func TestSweepTerminatesLiveProcessGracefully(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "/media/stuck.mkv")
	if _, err := store.Transition(ctx, job.ID, jobs.StatusProcessing, ""); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	cmd := startSleeper(t)
	go func() { _ = cmd.Wait() }()

	old := time.Now().Add(-time.Hour).UTC()
	stuck, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	stuck.LastHeartbeat = &old
	stuck.ProcessIDs = []int{cmd.Process.Pid}
	if err := store.Update(ctx, stuck); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	sweeper := NewSweeper(store, logging.NewNop(), time.Hour, time.Minute)
	sweeper.grace = 3 * time.Second
	if err := sweeper.SweepOnce(ctx); err != nil {
		t.Fatalf("SweepOnce failed: %v", err)
	}

	// A sleeper honors SIGTERM, so the graceful phase alone must reap it.
	if processAlive(cmd.Process.Pid) {
		t.Fatal("process survived the sweep")
	}

	swept, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if swept.Status != jobs.StatusFailed || swept.ErrorMessage != jobs.OrphanReason {
		t.Fatalf("expected orphan failure, got %q (%s)", swept.Status, swept.ErrorMessage)
	}
}
