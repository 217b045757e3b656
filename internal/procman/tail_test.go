package procman

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeLines(t *testing.T, count int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worker.log")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create log: %v", err)
	}
	defer f.Close()
	for i := 0; i < count; i++ {
		fmt.Fprintf(f, "line-%d\n", i)
	}
	return path
}

func TestTailReturnsTrailingLines(t *testing.T) {
	path := writeLines(t, 100)

	lines, err := Tail(path, 5)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
	if lines[0] != "line-95" || lines[4] != "line-99" {
		t.Fatalf("unexpected tail window: %v", lines)
	}
}

func TestTailShortFileReturnsEverything(t *testing.T) {
	path := writeLines(t, 3)

	lines, err := Tail(path, 50)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(lines) != 3 || lines[0] != "line-0" {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestTailMissingFile(t *testing.T) {
	if _, err := Tail(filepath.Join(t.TempDir(), "nope.log"), 5); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFollowStreamsAppendedLines(t *testing.T) {
	path := writeLines(t, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 8)
	done := make(chan error, 1)
	go func() {
		done <- Follow(ctx, path, func(line string) { got <- line })
	}()

	time.Sleep(50 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	fmt.Fprintln(f, "appended")
	f.Close()

	select {
	case line := <-got:
		if line != "appended" {
			t.Fatalf("unexpected line: %q", line)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Follow never delivered the appended line")
	}

	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected context error on cancel")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Follow did not stop on cancel")
	}
}
