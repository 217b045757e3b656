package dispatch

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"scribe/internal/logging"
	"scribe/internal/worker"
)

// runWorker feeds tasks to one worker process and relays its results. The
// feeder only takes a task from the shared channel when the worker has a free
// thread, so idle workers steal work from busy ones instead of queueing it
// behind them.
//
// Resubmission of tasks a dead process never finished happens in exactly one
// place: after both the feeder loop and the reader goroutine have exited,
// whatever is left in the inflight set goes back to the coordinator as a
// recoverable failure. Doing it any earlier would race the feeder, which can
// still pull a task off the shared channel after the reader has seen EOF.
func (o *Orchestrator) runWorker(ctx context.Context, handle Handle, workerID string, threads int, tasks chan worker.Task, results chan<- worker.Result, logger *slog.Logger) {
	if threads <= 0 {
		threads = 1
	}
	logger = logger.With(logging.String(logging.FieldWorkerID, workerID))

	sem := make(chan struct{}, threads)
	var mu sync.Mutex
	inflight := make(map[int]worker.Task)

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		scanner := bufio.NewScanner(handle.Stdout())
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			var msg worker.Message
			if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
				logger.Warn("discarding malformed worker message", logging.Error(err))
				continue
			}
			switch msg.Kind {
			case worker.KindReady:
				o.manager.MarkRunning(workerID)
			case worker.KindResult:
				if msg.Result == nil {
					continue
				}
				mu.Lock()
				delete(inflight, msg.Result.Index)
				mu.Unlock()
				select {
				case <-sem:
				default:
				}
				select {
				case results <- *msg.Result:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	encoder := json.NewEncoder(handle.Stdin())
feed:
	for {
		select {
		case <-ctx.Done():
			break feed
		case <-readerDone:
			// Stdout is gone, so the process is dead or dying. Stop
			// feeding it before another task lands in inflight.
			break feed
		case sem <- struct{}{}:
			select {
			case <-ctx.Done():
				break feed
			case <-readerDone:
				break feed
			case task, ok := <-tasks:
				if !ok {
					break feed
				}
				mu.Lock()
				inflight[task.Index] = task
				mu.Unlock()
				if err := encoder.Encode(task); err != nil {
					logger.Warn("writing task to worker failed", logging.Error(err))
					break feed
				}
			}
		}
	}
	_ = handle.Stdin().Close()
	<-readerDone

	// EOF with tasks outstanding means the process died mid-segment. Both
	// goroutines are finished now, so this drain sees every orphaned task,
	// including one the feeder accepted after the reader already hit EOF.
	mu.Lock()
	orphaned := make([]worker.Task, 0, len(inflight))
	for _, task := range inflight {
		orphaned = append(orphaned, task)
	}
	inflight = nil
	mu.Unlock()
	for _, task := range orphaned {
		logger.Warn("worker exited with segment in flight",
			logging.Int(logging.FieldSegment, task.Index))
		select {
		case results <- worker.Result{
			Index:       task.Index,
			OK:          false,
			Error:       "worker process exited before finishing segment",
			Recoverable: true,
			WorkerID:    workerID,
		}:
		case <-ctx.Done():
		}
	}

	if err := handle.Wait(); err != nil && ctx.Err() == nil {
		logger.Warn("worker exited with error", logging.Error(err))
	}
	o.manager.MarkStopped(workerID, "")
}
