package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"scribe/internal/config"
	"scribe/internal/dispatch"
	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/procman"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var model string
	var language string

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Transcribe a media file in the foreground",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source, err := resolveMediaPath(args[0])
			if err != nil {
				return err
			}

			sigCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
			})
			if err != nil {
				return err
			}

			store, err := jobs.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			job, err := store.NewJob(sigCtx, source, model, language)
			if err != nil {
				return err
			}
			if _, err := store.Transition(sigCtx, job.ID, jobs.StatusProcessing, ""); err != nil {
				return err
			}
			job, err = store.GetByID(sigCtx, job.ID)
			if err != nil {
				return err
			}

			procs := procman.NewManager(store, logger, procman.Options{
				HeartbeatInterval: time.Duration(cfg.Workflow.HeartbeatInterval) * time.Second,
				StopGracePeriod:   time.Duration(cfg.Workflow.StopGracePeriod) * time.Second,
			})
			orch := dispatch.NewOrchestrator(cfg, store, procs, nil, logger)

			if err := orch.Run(sigCtx, job); err != nil {
				if sigCtx.Err() != nil {
					stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer stopCancel()
					_, _ = store.Transition(stopCtx, job.ID, jobs.StatusCancelled, "interrupted")
					return context.Canceled
				}
				return err
			}

			final, err := store.GetByID(cmd.Context(), job.ID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "job %d completed (%.1fx realtime)\n", final.ID, final.SpeedFactor)
			for _, path := range final.OutputFiles {
				fmt.Fprintln(out, path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Whisper model identifier (defaults to config)")
	cmd.Flags().StringVar(&language, "language", "", "Language hint (defaults to config)")
	return cmd
}

var mediaFileExtensions = map[string]struct{}{
	".mkv":  {},
	".mp4":  {},
	".avi":  {},
	".mov":  {},
	".mp3":  {},
	".wav":  {},
	".m4a":  {},
	".flac": {},
}

func resolveMediaPath(arg string) (string, error) {
	path, err := config.ExpandPath(arg)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat source file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("source path %q is a directory", path)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := mediaFileExtensions[ext]; !ok {
		return "", fmt.Errorf("unsupported file extension %q", ext)
	}
	return path, nil
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	var model string
	var language string

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Queue a media file for the daemon to transcribe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source, err := resolveMediaPath(args[0])
			if err != nil {
				return err
			}

			store, err := jobs.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			job, err := store.NewJob(cmd.Context(), source, model, language)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued job %d for %s\n", job.ID, source)
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Whisper model identifier (defaults to config)")
	cmd.Flags().StringVar(&language, "language", "", "Language hint (defaults to config)")
	return cmd
}
