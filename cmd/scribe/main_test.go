package main

import (
	"strings"
	"testing"
)

func TestRootCommandSubcommands(t *testing.T) {
	root := newRootCommand()
	want := []string{"run", "add", "status", "logs", "stop", "config", "worker"}
	for _, name := range want {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("missing subcommand %q", name)
		}
	}
}

func TestWorkerCommandIsHidden(t *testing.T) {
	root := newRootCommand()
	for _, cmd := range root.Commands() {
		if cmd.Name() == "worker" && !cmd.Hidden {
			t.Fatal("worker subcommand must be hidden")
		}
	}
}

func TestParseJobID(t *testing.T) {
	if _, err := parseJobID("12"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, bad := range []string{"", "abc", "0", "-4"} {
		if _, err := parseJobID(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestTruncatePathKeepsTail(t *testing.T) {
	long := "/media/library/shows/some-show/season-01/episode-01.mkv"
	got := truncatePath(long, 20)
	if len(got) != 20 || !strings.HasSuffix(got, "episode-01.mkv") || !strings.HasPrefix(got, "...") {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if truncatePath("/short.mkv", 20) != "/short.mkv" {
		t.Fatal("short paths must pass through")
	}
}

func TestRenderStatusLinePlain(t *testing.T) {
	line := renderStatusLine("daemon", statusOK, "pid 42", false)
	if !strings.Contains(line, "[OK] pid 42") || !strings.Contains(line, "daemon:") {
		t.Fatalf("unexpected line: %q", line)
	}
}
