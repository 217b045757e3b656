package main

import (
	"github.com/spf13/cobra"

	"scribe/internal/workerrun"
)

// newWorkerCommand builds the hidden subcommand the dispatcher re-executes the
// binary with. It speaks the JSON line protocol on stdin/stdout; all logging
// goes to stderr, which the parent wires into the per-worker log file.
func newWorkerCommand() *cobra.Command {
	var opts workerrun.Options

	cmd := &cobra.Command{
		Use:         "worker",
		Hidden:      true,
		Short:       "Run as a transcription worker process",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return workerrun.Run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.WorkerID, "worker-id", "", "Worker identity assigned by the dispatcher")
	cmd.Flags().StringVar(&opts.Model, "model", "", "Whisper model identifier")
	cmd.Flags().StringVar(&opts.Language, "language", "", "Language hint")
	cmd.Flags().IntVar(&opts.Threads, "threads", 1, "Concurrent transcriptions sharing the loaded model")
	cmd.Flags().StringVar(&opts.LogFile, "log-file", "", "Per-worker log file path")
	return cmd
}
