package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/services/whisper"
)

// Transcriber converts one WAV file into a timed transcript. The engine CLI
// client satisfies this; tests substitute fakes.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string) (whisper.Result, error)
}

// Options configures a worker harness.
type Options struct {
	WorkerID string
	Threads  int
	Logger   *slog.Logger
}

// Run consumes JSON task lines from stdin, fans them out across Threads
// goroutines sharing one Transcriber, and writes one JSON result line to
// stdout per task. It returns when stdin reaches EOF and all in-flight tasks
// have finished, or when the context is cancelled.
func Run(ctx context.Context, transcriber Transcriber, stdin io.Reader, stdout io.Writer, opts Options) error {
	if transcriber == nil {
		return services.Wrap(services.ErrConfiguration, "worker", "run", "transcriber is required", nil)
	}
	if opts.WorkerID == "" {
		opts.WorkerID = uuid.NewString()
	}
	if opts.Threads <= 0 {
		opts.Threads = 1
	}
	logger := logging.WithComponent(opts.Logger, "worker")
	logger = logger.With(logging.String(logging.FieldWorkerID, opts.WorkerID))

	var writeMu sync.Mutex
	encoder := json.NewEncoder(stdout)
	emit := func(msg Message) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return encoder.Encode(msg)
	}

	if err := emit(Message{Kind: KindReady, WorkerID: opts.WorkerID, PID: os.Getpid()}); err != nil {
		return fmt.Errorf("announce worker: %w", err)
	}
	logger.Info("worker ready", logging.Int("threads", opts.Threads))

	tasks := make(chan Task)
	readErr := make(chan error, 1)
	go func() {
		defer close(tasks)
		scanner := bufio.NewScanner(stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var task Task
			if err := json.Unmarshal([]byte(line), &task); err != nil {
				logger.Warn("discarding malformed task line", logging.Error(err))
				continue
			}
			select {
			case tasks <- task:
			case <-ctx.Done():
				readErr <- ctx.Err()
				return
			}
		}
		readErr <- scanner.Err()
	}()

	var wg sync.WaitGroup
	for i := 0; i < opts.Threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				result := runTask(ctx, transcriber, task, opts.WorkerID, logger)
				if err := emit(Message{Kind: KindResult, WorkerID: opts.WorkerID, Result: &result}); err != nil {
					logger.Error("emit result failed", logging.Error(err))
					return
				}
			}
		}()
	}
	wg.Wait()

	if err := <-readErr; err != nil && ctx.Err() == nil {
		return fmt.Errorf("read tasks: %w", err)
	}
	return ctx.Err()
}

// runTask executes one segment. A panic inside the engine call is converted
// into a failed result so one bad segment cannot take down the process.
func runTask(ctx context.Context, transcriber Transcriber, task Task, workerID string, logger *slog.Logger) (result Result) {
	started := time.Now()
	result = Result{Index: task.Index, WorkerID: workerID}
	defer func() {
		result.TookSeconds = time.Since(started).Seconds()
		if r := recover(); r != nil {
			result.OK = false
			result.Error = fmt.Sprintf("panic during transcription: %v", r)
			result.Recoverable = true
			logger.Error("segment panicked",
				logging.Int(logging.FieldSegment, task.Index),
				logging.String("panic", fmt.Sprint(r)),
			)
		}
	}()

	engineResult, err := transcriber.Transcribe(ctx, task.AudioPath)
	if err != nil {
		result.OK = false
		result.Error = err.Error()
		result.Recoverable = services.Recoverable(err)
		logger.Warn("segment failed",
			logging.Int(logging.FieldSegment, task.Index),
			logging.Bool("recoverable", result.Recoverable),
			logging.Error(err),
		)
		return result
	}

	result.OK = true
	result.Text = engineResult.Text
	logger.Info("segment transcribed",
		logging.Int(logging.FieldSegment, task.Index),
		logging.Duration("took", time.Since(started)),
	)
	return result
}
