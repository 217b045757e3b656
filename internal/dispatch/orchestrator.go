package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"scribe/internal/config"
	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/merge"
	"scribe/internal/output"
	"scribe/internal/procman"
	"scribe/internal/segment"
	"scribe/internal/services/whisper"
	"scribe/internal/worker"
)

// Orchestrator drives one job end to end: probe, plan, cut, fan out across
// worker processes, merge, and write outputs.
type Orchestrator struct {
	cfg     *config.Config
	store   *jobs.Store
	manager *procman.Manager
	spawner Spawner
	logger  *slog.Logger

	probeDuration func(ctx context.Context, ffprobeBinary, source string) (float64, error)
	cutSegments   func(ctx context.Context, source string, plan []segment.Segment, dir string) ([]string, error)
}

// NewOrchestrator builds an orchestrator. A nil spawner launches real worker
// processes.
func NewOrchestrator(cfg *config.Config, store *jobs.Store, manager *procman.Manager, spawner Spawner, logger *slog.Logger) *Orchestrator {
	if spawner == nil {
		spawner = &ExecSpawner{}
	}
	cutter := segment.NewCutter(cfg.FFmpegBinary())
	return &Orchestrator{
		cfg:           cfg,
		store:         store,
		manager:       manager,
		spawner:       spawner,
		logger:        logging.WithComponent(logger, "dispatch"),
		probeDuration: segment.ProbeDuration,
		cutSegments:   cutter.CutAll,
	}
}

// Run processes one claimed job. The caller has already moved the job to
// processing; Run moves it to completed or failed. A cancelled context means
// the job was stopped: Run returns the context error without touching the
// store, leaving the cancelled status written by whoever stopped it.
func (o *Orchestrator) Run(ctx context.Context, job *jobs.Job) error {
	logger := o.logger.With(logging.Int64(logging.FieldJobID, job.ID))
	logger.Info("job started", logging.String("source", job.SourcePath))

	model := job.Model
	if model == "" {
		model = o.cfg.Transcription.Model
	}
	languageHint := job.Language
	if languageHint == "" {
		languageHint = o.cfg.Transcription.Language
	}
	language, err := whisper.NormalizeLanguage(languageHint)
	if err != nil {
		return o.fail(ctx, job, logger, err)
	}

	duration, err := o.probeDuration(ctx, o.cfg.FFprobeBinary(), job.SourcePath)
	if err != nil {
		return o.fail(ctx, job, logger, err)
	}

	plan, err := segment.Plan(duration,
		float64(o.cfg.Transcription.SegmentSeconds),
		float64(o.cfg.Transcription.OverlapSeconds))
	if err != nil {
		return o.fail(ctx, job, logger, err)
	}

	if len(plan) == 0 {
		logger.Info("source has no audio, emitting empty transcript")
		return o.complete(ctx, job, logger, merge.Transcript{}, duration, model, language, 0)
	}

	workDir := filepath.Join(o.cfg.Paths.WorkDir, fmt.Sprintf("job-%d", job.ID))
	defer os.RemoveAll(workDir)

	wavPaths, err := o.cutSegments(ctx, job.SourcePath, plan, filepath.Join(workDir, "segments"))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return o.fail(ctx, job, logger, err)
	}

	job.SegmentsTotal = len(plan)
	if err := o.store.Update(ctx, job); err != nil {
		return o.fail(ctx, job, logger, err)
	}
	logger.Info("segments planned",
		logging.Int("segments", len(plan)),
		logging.Float64("duration_seconds", duration),
	)

	transcript, speed, err := o.transcribe(ctx, job, plan, wavPaths, model, language, logger)
	if err != nil {
		if ctx.Err() != nil {
			logger.Info("job cancelled, discarding in-flight results")
			return ctx.Err()
		}
		return o.fail(ctx, job, logger, err)
	}

	return o.complete(ctx, job, logger, transcript, duration, model, language, speed)
}

func (o *Orchestrator) complete(ctx context.Context, job *jobs.Job, logger *slog.Logger, transcript merge.Transcript, duration float64, model, language string, speed float64) error {
	writer := output.NewWriter(o.cfg.Paths.OutputDir)
	paths, err := writer.WriteAll(transcript, output.Metadata{
		SourcePath:      job.SourcePath,
		Model:           model,
		Language:        language,
		DurationSeconds: duration,
		Segments:        job.SegmentsTotal,
		SpeedFactor:     speed,
	})
	if err != nil {
		return o.fail(ctx, job, logger, err)
	}

	job.OutputFiles = paths
	job.Progress = 1
	job.SegmentsDone = job.SegmentsTotal
	job.SpeedFactor = speed
	if err := o.store.Update(ctx, job); err != nil {
		return o.fail(ctx, job, logger, err)
	}
	if _, err := o.store.Transition(ctx, job.ID, jobs.StatusCompleted, ""); err != nil {
		return err
	}
	logger.Info("job completed",
		logging.Int("outputs", len(paths)),
		logging.Float64("speed_factor", speed),
	)
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, job *jobs.Job, logger *slog.Logger, cause error) error {
	applied, err := o.store.Transition(ctx, job.ID, jobs.StatusFailed, cause.Error())
	if err != nil {
		logger.Error("failed to record job failure", logging.Error(err))
	} else if applied {
		logger.Error("job failed", logging.Error(cause))
	}
	return cause
}

// transcribe fans the planned segments out across worker processes and
// merges the results. It returns the merged transcript and the realtime
// speed factor (audio seconds transcribed per wall-clock second).
func (o *Orchestrator) transcribe(ctx context.Context, job *jobs.Job, plan []segment.Segment, wavPaths []string, model, language string, logger *slog.Logger) (merge.Transcript, float64, error) {
	total := len(plan)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer func() {
		// Stragglers are force-stopped; finished workers make this a no-op.
		// Once everything is terminal the records are reclaimed.
		_ = o.manager.StopJob(context.Background(), job.ID)
		o.manager.Release(job.ID)
	}()

	tasks := make(chan worker.Task, total*2)
	results := make(chan worker.Result, total*2)
	taskByIndex := make(map[int]worker.Task, total)
	for i, seg := range plan {
		task := worker.Task{Index: seg.Index, AudioPath: wavPaths[i], Start: seg.Start, End: seg.End}
		taskByIndex[seg.Index] = task
		tasks <- task
	}

	processes := o.cfg.Transcription.Processes
	if processes > total {
		processes = total
	}
	if processes < 1 {
		processes = 1
	}
	threads := o.cfg.Transcription.ThreadsPerProcess

	if err := os.MkdirAll(o.cfg.JobLogDir(), 0o755); err != nil {
		return merge.Transcript{}, 0, fmt.Errorf("job log dir: %w", err)
	}

	started := 0
	var pids []int
	var logPaths []string
	var workerWG sync.WaitGroup
	for p := 0; p < processes; p++ {
		workerID := uuid.NewString()
		logPath := filepath.Join(o.cfg.JobLogDir(), fmt.Sprintf("job-%d-%s.log", job.ID, workerID[:8]))
		handle, err := o.spawner.Spawn(runCtx, Spec{
			JobID:    job.ID,
			WorkerID: workerID,
			Model:    model,
			Language: language,
			Threads:  threads,
			LogPath:  logPath,
		})
		if err != nil {
			if started == 0 && p == processes-1 {
				return merge.Transcript{}, 0, fmt.Errorf("spawn workers: %w", err)
			}
			logger.Warn("worker spawn failed, continuing with fewer processes", logging.Error(err))
			continue
		}
		if _, err := o.manager.Register(runCtx, job.ID, workerID, handle.PID(), logPath); err != nil {
			return merge.Transcript{}, 0, err
		}
		pids = append(pids, handle.PID())
		logPaths = append(logPaths, logPath)
		started++
		workerWG.Add(1)
		go func(handle Handle, workerID string) {
			defer workerWG.Done()
			o.runWorker(runCtx, handle, workerID, threads, tasks, results, logger)
		}(handle, workerID)
	}
	if started == 0 {
		return merge.Transcript{}, 0, fmt.Errorf("spawn workers: no worker process could be started")
	}
	workersDone := make(chan struct{})
	go func() {
		workerWG.Wait()
		close(workersDone)
	}()

	job.ProcessIDs = pids
	job.LogPaths = logPaths
	if err := o.store.Update(ctx, job); err != nil {
		return merge.Transcript{}, 0, err
	}

	collector := merge.NewCollector(total, float64(o.cfg.Transcription.OverlapSeconds), o.logger)
	retried := make(map[int]bool)
	begin := time.Now()
	var processedSeconds float64
	done := 0
	workersGone := false

	for done < total {
		var res worker.Result
		select {
		case <-ctx.Done():
			return merge.Transcript{}, 0, ctx.Err()
		case res = <-results:
		case <-workersDone:
			workersGone = true
			select {
			case res = <-results:
			default:
				return merge.Transcript{}, 0, fmt.Errorf("no worker processes remain with %d segments unfinished", total-done)
			}
		}

		if res.OK {
			if err := collector.Add(merge.SegmentResult{
				Index:    res.Index,
				Start:    plan[res.Index].Start,
				End:      plan[res.Index].End,
				Text:     res.Text,
				WorkerID: res.WorkerID,
				Took:     res.TookSeconds,
			}); err != nil {
				logger.Warn("discarding duplicate segment result",
					logging.Int(logging.FieldSegment, res.Index))
				continue
			}
			done++
			processedSeconds += plan[res.Index].Duration()
			elapsed := time.Since(begin).Seconds()
			speed := 0.0
			if elapsed > 0 {
				speed = processedSeconds / elapsed
			}
			if err := o.store.UpdateProgress(ctx, job.ID, float64(done)/float64(total), speed, done); err != nil {
				logger.Warn("progress update failed", logging.Error(err))
			}
			continue
		}

		if res.Recoverable && !retried[res.Index] {
			if workersGone {
				return merge.Transcript{}, 0, fmt.Errorf("no worker processes remain with %d segments unfinished", total-done)
			}
			retried[res.Index] = true
			logger.Warn("retrying failed segment",
				logging.Int(logging.FieldSegment, res.Index),
				logging.String("reason", res.Error),
			)
			tasks <- taskByIndex[res.Index]
			continue
		}

		if o.cfg.Transcription.TolerateGaps {
			logger.Warn("segment failed twice, leaving a gap in the transcript",
				logging.Int(logging.FieldSegment, res.Index),
				logging.String("reason", res.Error),
			)
			if err := collector.Add(merge.SegmentResult{
				Index: res.Index,
				Start: plan[res.Index].Start,
				End:   plan[res.Index].End,
			}); err != nil {
				logger.Warn("discarding duplicate segment result",
					logging.Int(logging.FieldSegment, res.Index))
				continue
			}
			done++
			continue
		}
		return merge.Transcript{}, 0, fmt.Errorf("segment %d failed: %s", res.Index, res.Error)
	}
	close(tasks)

	transcript, err := collector.Finalize()
	if err != nil {
		return merge.Transcript{}, 0, err
	}

	elapsed := time.Since(begin).Seconds()
	speed := 0.0
	if elapsed > 0 {
		speed = processedSeconds / elapsed
	}
	return transcript, speed, nil
}
