package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTranscription() error {
	t := c.Transcription
	if t.Model == "" {
		return errors.New("transcription.model must be set")
	}
	if t.SegmentSeconds < 15 || t.SegmentSeconds > 25 {
		return fmt.Errorf("transcription.segment_seconds must be between 15 and 25, got %d", t.SegmentSeconds)
	}
	if t.OverlapSeconds < 1 || t.OverlapSeconds > 5 {
		return fmt.Errorf("transcription.overlap_seconds must be between 1 and 5, got %d", t.OverlapSeconds)
	}
	if t.OverlapSeconds >= t.SegmentSeconds {
		return errors.New("transcription.overlap_seconds must be smaller than segment_seconds")
	}
	if t.Processes <= 0 {
		return errors.New("transcription.processes must be positive")
	}
	if t.ThreadsPerProcess <= 0 {
		return errors.New("transcription.threads_per_process must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":   c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval":  c.Workflow.ErrorRetryInterval,
		"workflow.heartbeat_interval":    c.Workflow.HeartbeatInterval,
		"workflow.heartbeat_timeout":     c.Workflow.HeartbeatTimeout,
		"workflow.orphan_sweep_interval": c.Workflow.OrphanSweepInterval,
		"workflow.stop_grace_period":     c.Workflow.StopGracePeriod,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
