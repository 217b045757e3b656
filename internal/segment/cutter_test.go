package segment

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func stubCommand(t *testing.T, mode string, captured *[][]string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if captured != nil {
			*captured = append(*captured, append([]string{name}, args...))
		}
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "SEGMENT_HELPER_MODE="+mode)
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

func TestCutterPassesSegmentBounds(t *testing.T) {
	var captured [][]string
	stubCommand(t, "success", &captured)

	cutter := NewCutter("ffmpeg")
	seg := Segment{Index: 1, Start: 17, End: 37}
	dest := filepath.Join(t.TempDir(), "segment-0001.wav")
	if err := cutter.Cut(context.Background(), "/media/talk.mkv", seg, dest); err != nil {
		t.Fatalf("Cut failed: %v", err)
	}

	if len(captured) != 1 {
		t.Fatalf("expected one command, got %d", len(captured))
	}
	args := captured[0]
	assertFlag(t, args, "-ss", "17.000")
	assertFlag(t, args, "-t", "20.000")
	assertFlag(t, args, "-ar", "16000")
	assertFlag(t, args, "-ac", "1")
}

func TestCutterRejectsEmptySegment(t *testing.T) {
	cutter := NewCutter("")
	err := cutter.Cut(context.Background(), "/media/talk.mkv", Segment{Start: 5, End: 5}, "/tmp/out.wav")
	if err == nil {
		t.Fatal("expected error for zero-length segment")
	}
}

func TestCutterWrapsToolFailure(t *testing.T) {
	stubCommand(t, "fail", nil)

	cutter := NewCutter("ffmpeg")
	seg := Segment{Index: 0, Start: 0, End: 20}
	err := cutter.Cut(context.Background(), "/media/talk.mkv", seg, "/tmp/out.wav")
	if err == nil {
		t.Fatal("expected error when ffmpeg fails")
	}
}

func TestCutAllProducesIndexedPaths(t *testing.T) {
	stubCommand(t, "success", nil)

	cutter := NewCutter("ffmpeg")
	plan := []Segment{
		{Index: 0, Start: 0, End: 20},
		{Index: 1, Start: 17, End: 37},
	}
	dir := filepath.Join(t.TempDir(), "segments")
	paths, err := cutter.CutAll(context.Background(), "/media/talk.mkv", plan, dir)
	if err != nil {
		t.Fatalf("CutAll failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected two paths, got %#v", paths)
	}
	if filepath.Base(paths[1]) != "segment-0001.wav" {
		t.Fatalf("unexpected path: %q", paths[1])
	}
}

func TestProbeDurationParsesOutput(t *testing.T) {
	stubCommand(t, "duration", nil)

	duration, err := ProbeDuration(context.Background(), "ffprobe", "/media/talk.mkv")
	if err != nil {
		t.Fatalf("ProbeDuration failed: %v", err)
	}
	if duration != 47.25 {
		t.Fatalf("expected 47.25, got %f", duration)
	}
}

func TestProbeDurationRejectsGarbage(t *testing.T) {
	stubCommand(t, "garbage", nil)

	if _, err := ProbeDuration(context.Background(), "ffprobe", "/media/talk.mkv"); err == nil {
		t.Fatal("expected error for unparseable output")
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	switch os.Getenv("SEGMENT_HELPER_MODE") {
	case "success":
		os.Exit(0)
	case "duration":
		fmt.Println("47.250000")
		os.Exit(0)
	case "garbage":
		fmt.Println("N/A")
		os.Exit(0)
	default:
		fmt.Fprintln(os.Stderr, "segment helper failure")
		os.Exit(1)
	}
}

func assertFlag(t *testing.T, args []string, flag, want string) {
	t.Helper()
	for i, arg := range args {
		if arg == flag {
			if i+1 >= len(args) {
				t.Fatalf("flag %s has no value in %v", flag, args)
			}
			if args[i+1] != want {
				t.Fatalf("flag %s = %q, want %q", flag, args[i+1], want)
			}
			return
		}
	}
	t.Fatalf("flag %s not found in %v", flag, args)
}
