package procman

import (
	"context"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/testsupport"
)

func startSleeper(t *testing.T) *exec.Cmd {
	t.Helper()
	cmd := exec.Command("sleep", "60")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		t.Fatalf("start sleeper: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})
	return cmd
}

func TestManagerStopTerminatesProcessGroup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := NewManager(store, logging.NewNop(), Options{
		HeartbeatInterval: time.Hour,
		StopGracePeriod:   3 * time.Second,
	})
	defer manager.Wait()

	cmd := startSleeper(t)
	rec, err := manager.Register(ctx, 1, "w-stop", cmd.Process.Pid, "")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	manager.MarkRunning("w-stop")

	if err := manager.Stop(ctx, "w-stop"); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if rec.State() != StateStopped {
		t.Fatalf("expected stopped, got %q", rec.State())
	}

	deadline := time.Now().Add(3 * time.Second)
	for processAlive(cmd.Process.Pid) && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	_, _ = cmd.Process.Wait()
	if processAlive(cmd.Process.Pid) {
		t.Fatal("process survived Stop")
	}

	// Stop is idempotent once terminal.
	if err := manager.Stop(ctx, "w-stop"); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
	cancel()
}

func TestManagerHeartbeatWritesToStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job := testsupport.NewJob(t, store, "/media/talk.mkv")
	if _, err := store.Transition(ctx, job.ID, jobs.StatusProcessing, ""); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	manager := NewManager(store, logging.NewNop(), Options{
		HeartbeatInterval: 10 * time.Millisecond,
		StopGracePeriod:   time.Second,
	})
	defer manager.Wait()

	cmd := startSleeper(t)
	rec, err := manager.Register(ctx, job.ID, "w-beat", cmd.Process.Pid, "")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		fetched, err := store.GetByID(ctx, job.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if fetched.LastHeartbeat != nil {
			snap := rec.Snapshot()
			if snap.LastBeat.IsZero() {
				t.Fatal("record should track its own beats")
			}
			cancel()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("heartbeat never reached the store")
}

func TestManagerHeartbeatDetectsDeadProcess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := NewManager(store, logging.NewNop(), Options{
		HeartbeatInterval: 10 * time.Millisecond,
		StopGracePeriod:   time.Second,
	})
	defer manager.Wait()

	// A pid that cannot exist: beyond typical pid_max.
	rec, err := manager.Register(ctx, 1, "w-dead", 1<<22+12345, "")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for rec.State() != StateFailed && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if rec.State() != StateFailed {
		t.Fatalf("expected failed, got %q", rec.State())
	}
	cancel()
}

func TestManagerRejectsDuplicateWorker(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := NewManager(store, logging.NewNop(), Options{HeartbeatInterval: time.Hour})
	defer manager.Wait()

	if _, err := manager.Register(ctx, 1, "w-dup", 1, ""); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := manager.Register(ctx, 1, "w-dup", 2, ""); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	cancel()
}

func TestReleaseDropsTerminalRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := NewManager(store, logging.NewNop(), Options{HeartbeatInterval: time.Hour})
	defer manager.Wait()

	if _, err := manager.Register(ctx, 7, "w-done", 1<<22+100, ""); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := manager.Register(ctx, 7, "w-busy", 1<<22+101, ""); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := manager.Register(ctx, 8, "w-other", 1<<22+102, ""); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	manager.MarkStopped("w-done", "")
	manager.MarkRunning("w-busy")

	manager.Release(7)

	if recs := manager.JobRecords(7); len(recs) != 1 || recs[0].WorkerID != "w-busy" {
		t.Fatalf("expected only the live record to survive, got %#v", recs)
	}
	if recs := manager.JobRecords(8); len(recs) != 1 {
		t.Fatalf("other jobs must be untouched, got %#v", recs)
	}

	// After the live worker reaches a terminal state, Release reclaims it too.
	manager.MarkStopped("w-busy", "")
	manager.Release(7)
	if recs := manager.JobRecords(7); len(recs) != 0 {
		t.Fatalf("expected all records reclaimed, got %#v", recs)
	}
	cancel()
}
