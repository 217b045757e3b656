package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scribe/internal/config"
	"scribe/internal/daemon"
	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/procman"
	"scribe/internal/workerrun"
	"scribe/internal/workflow"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The dispatcher re-executes this binary with the worker verb, so the
	// worker entry point has to exist here as well as in the CLI.
	if len(os.Args) > 1 && os.Args[1] == "worker" {
		opts, err := workerrun.Parse(os.Args[2:])
		if err != nil {
			log.Fatalf("worker flags: %v", err)
		}
		if err := workerrun.Run(ctx, opts); err != nil {
			log.Fatalf("worker: %v", err)
		}
		return
	}

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	hub := logging.NewStreamHub(1024)
	logger, err := logging.NewFromConfig(cfg, hub)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := jobs.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		os.Exit(1)
	}

	procs := procman.NewManager(store, logger, procman.Options{
		HeartbeatInterval: time.Duration(cfg.Workflow.HeartbeatInterval) * time.Second,
		StopGracePeriod:   time.Duration(cfg.Workflow.StopGracePeriod) * time.Second,
	})
	wf := workflow.NewManager(cfg, store, procs, logger)

	d, err := daemon.New(cfg, store, wf, hub, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("scribed shutting down")
	d.Stop()
}
