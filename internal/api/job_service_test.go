package api_test

import (
	"context"
	"testing"

	"scribe/internal/api"
	"scribe/internal/jobs"
	"scribe/internal/testsupport"
)

func TestJobServiceListFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewJobService(store)
	ctx := context.Background()

	first := testsupport.NewJob(t, store, "/media/a.mkv")
	testsupport.NewJob(t, store, "/media/b.mkv")
	if _, err := store.Transition(ctx, first.ID, jobs.StatusProcessing, ""); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	pending, err := svc.List(ctx, jobs.StatusPending)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(pending) != 1 || pending[0].SourcePath != "/media/b.mkv" {
		t.Fatalf("unexpected pending list: %#v", pending)
	}

	all, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(all))
	}
}

func TestJobServiceDescribeMissingJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewJobService(store)

	dto, err := svc.Describe(context.Background(), 9999)
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if dto != nil {
		t.Fatalf("expected nil for missing job, got %#v", dto)
	}
}

func TestJobServiceStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewJobService(store)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "/media/a.mkv")
	if _, err := store.Transition(ctx, job.ID, jobs.StatusProcessing, ""); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if _, err := store.Transition(ctx, job.ID, jobs.StatusCompleted, ""); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 1 || stats.Completed != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}
