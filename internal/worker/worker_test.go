package worker_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/services/whisper"
	"scribe/internal/worker"
)

type fakeTranscriber struct {
	results map[string]whisper.Result
	errs    map[string]error
	panics  map[string]bool
}

func (f *fakeTranscriber) Transcribe(_ context.Context, wavPath string) (whisper.Result, error) {
	if f.panics[wavPath] {
		panic("engine blew up")
	}
	if err, ok := f.errs[wavPath]; ok {
		return whisper.Result{}, err
	}
	return f.results[wavPath], nil
}

func runWorker(t *testing.T, transcriber worker.Transcriber, tasks []worker.Task, threads int) []worker.Message {
	t.Helper()

	var stdin bytes.Buffer
	encoder := json.NewEncoder(&stdin)
	for _, task := range tasks {
		if err := encoder.Encode(task); err != nil {
			t.Fatalf("encode task: %v", err)
		}
	}

	var stdout bytes.Buffer
	err := worker.Run(context.Background(), transcriber, &stdin, &stdout, worker.Options{
		WorkerID: "w-test",
		Threads:  threads,
		Logger:   logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var messages []worker.Message
	for _, line := range strings.Split(strings.TrimSpace(stdout.String()), "\n") {
		if line == "" {
			continue
		}
		var msg worker.Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			t.Fatalf("unmarshal message %q: %v", line, err)
		}
		messages = append(messages, msg)
	}
	return messages
}

func TestRunAnnouncesReadyFirst(t *testing.T) {
	messages := runWorker(t, &fakeTranscriber{}, nil, 2)
	if len(messages) != 1 {
		t.Fatalf("expected only the ready message, got %#v", messages)
	}
	if messages[0].Kind != worker.KindReady || messages[0].WorkerID != "w-test" {
		t.Fatalf("unexpected hello: %#v", messages[0])
	}
	if messages[0].PID == 0 {
		t.Fatal("ready message should carry the pid")
	}
}

func TestRunTranscribesAllTasks(t *testing.T) {
	transcriber := &fakeTranscriber{
		results: map[string]whisper.Result{
			"/tmp/segment-0000.wav": {Text: "first"},
			"/tmp/segment-0001.wav": {Text: "second"},
			"/tmp/segment-0002.wav": {Text: "third"},
		},
	}
	tasks := []worker.Task{
		{Index: 0, AudioPath: "/tmp/segment-0000.wav"},
		{Index: 1, AudioPath: "/tmp/segment-0001.wav"},
		{Index: 2, AudioPath: "/tmp/segment-0002.wav"},
	}

	messages := runWorker(t, transcriber, tasks, 3)

	texts := make(map[int]string)
	for _, msg := range messages {
		if msg.Kind != worker.KindResult {
			continue
		}
		if !msg.Result.OK {
			t.Fatalf("unexpected failure: %#v", msg.Result)
		}
		texts[msg.Result.Index] = msg.Result.Text
	}
	if len(texts) != 3 || texts[0] != "first" || texts[2] != "third" {
		t.Fatalf("unexpected results: %#v", texts)
	}
}

func TestRunRecoversFromPanics(t *testing.T) {
	transcriber := &fakeTranscriber{
		results: map[string]whisper.Result{"/tmp/good.wav": {Text: "fine"}},
		panics:  map[string]bool{"/tmp/bad.wav": true},
	}
	tasks := []worker.Task{
		{Index: 0, AudioPath: "/tmp/bad.wav"},
		{Index: 1, AudioPath: "/tmp/good.wav"},
	}

	messages := runWorker(t, transcriber, tasks, 1)

	var failed, succeeded *worker.Result
	for _, msg := range messages {
		if msg.Kind != worker.KindResult {
			continue
		}
		switch msg.Result.Index {
		case 0:
			failed = msg.Result
		case 1:
			succeeded = msg.Result
		}
	}
	if failed == nil || failed.OK || !strings.Contains(failed.Error, "panic") {
		t.Fatalf("expected panic to become a failed result: %#v", failed)
	}
	if !failed.Recoverable {
		t.Fatal("panics should be retryable")
	}
	if succeeded == nil || !succeeded.OK {
		t.Fatalf("later task should still run after a panic: %#v", succeeded)
	}
}

func TestRunClassifiesErrors(t *testing.T) {
	transcriber := &fakeTranscriber{
		errs: map[string]error{
			"/tmp/transient.wav": services.Wrap(services.ErrExternalTool, "engine", "transcribe", "exit 1", nil),
			"/tmp/config.wav":    services.Wrap(services.ErrConfiguration, "engine", "transcribe", "bad model", nil),
		},
	}
	tasks := []worker.Task{
		{Index: 0, AudioPath: "/tmp/transient.wav"},
		{Index: 1, AudioPath: "/tmp/config.wav"},
	}

	messages := runWorker(t, transcriber, tasks, 1)

	recoverable := make(map[int]bool)
	for _, msg := range messages {
		if msg.Kind == worker.KindResult {
			recoverable[msg.Result.Index] = msg.Result.Recoverable
		}
	}
	if !recoverable[0] {
		t.Fatal("external tool failure should be recoverable")
	}
	if recoverable[1] {
		t.Fatal("configuration failure should not be recoverable")
	}
}

func TestRunSkipsMalformedLines(t *testing.T) {
	stdin := strings.NewReader("not json\n" + `{"index":0,"audio_path":"/tmp/a.wav"}` + "\n")
	var stdout bytes.Buffer
	transcriber := &fakeTranscriber{results: map[string]whisper.Result{"/tmp/a.wav": {Text: "ok"}}}

	err := worker.Run(context.Background(), transcriber, stdin, &stdout, worker.Options{
		WorkerID: "w-test",
		Threads:  1,
		Logger:   logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := strings.Count(stdout.String(), `"kind":"result"`); got != 1 {
		t.Fatalf("expected one result line, got output:\n%s", stdout.String())
	}
}

func TestRunResultOmitsEngineLineTimings(t *testing.T) {
	transcriber := &fakeTranscriber{
		results: map[string]whisper.Result{
			"/tmp/segment-0000.wav": {
				Text: "hello there",
				Lines: []whisper.Line{
					{Start: 0, End: 1.5, Text: "hello"},
					{Start: 1.5, End: 3, Text: "there"},
				},
			},
		},
	}

	var stdin bytes.Buffer
	if err := json.NewEncoder(&stdin).Encode(worker.Task{Index: 0, AudioPath: "/tmp/segment-0000.wav"}); err != nil {
		t.Fatalf("encode task: %v", err)
	}
	var stdout bytes.Buffer
	err := worker.Run(context.Background(), transcriber, &stdin, &stdout, worker.Options{
		WorkerID: "w-test",
		Threads:  1,
		Logger:   logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	raw := stdout.String()
	if !strings.Contains(raw, `"text":"hello there"`) {
		t.Fatalf("expected segment text on the wire, got %q", raw)
	}
	// Per-line engine timings stay inside the worker process.
	if strings.Contains(raw, `"lines"`) || strings.Contains(raw, `"segments"`) {
		t.Fatalf("engine line timings leaked onto the wire: %q", raw)
	}
}
