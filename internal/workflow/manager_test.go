package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/procman"
	"scribe/internal/testsupport"
	"scribe/internal/workflow"
)

type fakeRunner struct {
	store   *jobs.Store
	block   bool
	started chan int64

	mu   sync.Mutex
	runs []int64
}

func newFakeRunner(store *jobs.Store, block bool) *fakeRunner {
	return &fakeRunner{store: store, block: block, started: make(chan int64, 8)}
}

func (r *fakeRunner) Run(ctx context.Context, job *jobs.Job) error {
	r.mu.Lock()
	r.runs = append(r.runs, job.ID)
	r.mu.Unlock()
	r.started <- job.ID

	if r.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if _, err := r.store.Transition(ctx, job.ID, jobs.StatusCompleted, ""); err != nil {
		return err
	}
	return nil
}

type managerFixture struct {
	manager *workflow.Manager
	store   *jobs.Store
	runner  *fakeRunner
}

func newManagerFixture(t *testing.T, block bool) *managerFixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	procs := procman.NewManager(store, logging.NewNop(), procman.Options{})
	runner := newFakeRunner(store, block)
	manager := workflow.NewManagerWithRunner(cfg, store, procs, runner, logging.NewNop())
	return &managerFixture{manager: manager, store: store, runner: runner}
}

func waitForStatus(t *testing.T, store *jobs.Store, id int64, want jobs.Status) *jobs.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if job != nil && job.Status == want {
			return job
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job %d never reached %q", id, want)
	return nil
}

func waitStarted(t *testing.T, runner *fakeRunner) int64 {
	t.Helper()
	select {
	case id := <-runner.started:
		return id
	case <-time.After(5 * time.Second):
		t.Fatal("runner never started a job")
		return 0
	}
}

func TestManagerProcessesPendingJob(t *testing.T) {
	f := newManagerFixture(t, false)
	job := testsupport.NewJob(t, f.store, "/media/a.mkv")

	if err := f.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer f.manager.Stop()

	if got := waitStarted(t, f.runner); got != job.ID {
		t.Fatalf("expected job %d, runner got %d", job.ID, got)
	}
	waitForStatus(t, f.store, job.ID, jobs.StatusCompleted)
}

func TestManagerStartTwiceFails(t *testing.T) {
	f := newManagerFixture(t, false)
	if err := f.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer f.manager.Stop()
	if err := f.manager.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
}

func TestStopJobCancelsInFlightJob(t *testing.T) {
	f := newManagerFixture(t, true)
	job := testsupport.NewJob(t, f.store, "/media/a.mkv")

	if err := f.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer f.manager.Stop()
	waitStarted(t, f.runner)

	applied, err := f.manager.StopJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("StopJob failed: %v", err)
	}
	if !applied {
		t.Fatal("expected stop to apply")
	}
	final := waitForStatus(t, f.store, job.ID, jobs.StatusCancelled)
	if final.ErrorMessage != "stopped by request" {
		t.Fatalf("unexpected reason: %q", final.ErrorMessage)
	}
}

func TestStopJobOnPendingJob(t *testing.T) {
	f := newManagerFixture(t, false)
	job := testsupport.NewJob(t, f.store, "/media/a.mkv")

	applied, err := f.manager.StopJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("StopJob failed: %v", err)
	}
	if !applied {
		t.Fatal("expected stop to apply to a pending job")
	}
	waitForStatus(t, f.store, job.ID, jobs.StatusCancelled)
}

func TestStopJobIsIdempotent(t *testing.T) {
	f := newManagerFixture(t, false)
	job := testsupport.NewJob(t, f.store, "/media/a.mkv")

	if _, err := f.manager.StopJob(context.Background(), job.ID); err != nil {
		t.Fatalf("StopJob failed: %v", err)
	}
	applied, err := f.manager.StopJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("second StopJob failed: %v", err)
	}
	if applied {
		t.Fatal("second stop must not rewrite the terminal status")
	}
}

func TestShutdownMarksInFlightJobFailed(t *testing.T) {
	f := newManagerFixture(t, true)
	job := testsupport.NewJob(t, f.store, "/media/a.mkv")

	if err := f.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitStarted(t, f.runner)
	f.manager.Stop()

	final := waitForStatus(t, f.store, job.ID, jobs.StatusFailed)
	if final.ErrorMessage != jobs.DaemonStopReason {
		t.Fatalf("unexpected reason: %q", final.ErrorMessage)
	}
}

func TestStatusReflectsActiveJob(t *testing.T) {
	f := newManagerFixture(t, true)
	job := testsupport.NewJob(t, f.store, "/media/a.mkv")

	if err := f.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer f.manager.Stop()
	waitStarted(t, f.runner)

	summary := f.manager.Status(context.Background())
	if !summary.Running {
		t.Fatal("expected running summary")
	}
	if len(summary.ActiveJobs) != 1 || summary.ActiveJobs[0] != job.ID {
		t.Fatalf("unexpected active jobs: %v", summary.ActiveJobs)
	}
	if summary.Stats.Processing != 1 {
		t.Fatalf("unexpected stats: %#v", summary.Stats)
	}
}
