// Package workerrun is the worker-process entry point shared by both
// binaries. The dispatcher re-executes whichever binary it lives in with the
// "worker" verb, so the flag parsing and engine wiring live here rather than
// in either cmd package.
package workerrun

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"

	"scribe/internal/logging"
	"scribe/internal/services/whisper"
	"scribe/internal/worker"
)

// Options mirror the worker process flags.
type Options struct {
	WorkerID string
	Model    string
	Language string
	Threads  int
	LogFile  string
}

// Parse reads worker flags from args, everything after the "worker" verb.
func Parse(args []string) (Options, error) {
	fs := flag.NewFlagSet("worker", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var opts Options
	fs.StringVar(&opts.WorkerID, "worker-id", "", "worker identity assigned by the dispatcher")
	fs.StringVar(&opts.Model, "model", "", "whisper model identifier")
	fs.StringVar(&opts.Language, "language", "", "language hint")
	fs.IntVar(&opts.Threads, "threads", 1, "concurrent transcriptions sharing the loaded model")
	fs.StringVar(&opts.LogFile, "log-file", "", "per-worker log file path")
	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Run speaks the JSON line protocol on stdin/stdout until the task stream
// closes. Logging goes to stderr unless a log file is given; the spawner
// wires stderr into the per-worker log file.
func Run(ctx context.Context, opts Options) error {
	if opts.Model == "" {
		return errors.New("worker requires --model")
	}
	output := "stderr"
	if opts.LogFile != "" {
		output = opts.LogFile
	}
	logger, err := logging.New(logging.Options{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{output},
	})
	if err != nil {
		return err
	}

	engineOpts := []whisper.Option{}
	if opts.Language != "" {
		engineOpts = append(engineOpts, whisper.WithLanguage(opts.Language))
	}
	engine := whisper.NewCLI(opts.Model, engineOpts...)

	return worker.Run(ctx, engine, os.Stdin, os.Stdout, worker.Options{
		WorkerID: opts.WorkerID,
		Threads:  opts.Threads,
		Logger:   logger,
	})
}
