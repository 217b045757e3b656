package config

const (
	defaultOutputDir           = "~/transcripts"
	defaultWorkDir             = "~/.local/share/scribe/work"
	defaultLogDir              = "~/.local/share/scribe/logs"
	defaultAPIBind             = "127.0.0.1:7512"
	defaultModel               = "mlx-community/whisper-medium-mlx"
	defaultLanguage            = "en"
	defaultSegmentSeconds      = 20
	defaultOverlapSeconds      = 3
	defaultProcesses           = 2
	defaultThreadsPerProcess   = 8
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultQueuePollInterval   = 5
	defaultErrorRetryInterval  = 10
	defaultHeartbeatInterval   = 5
	defaultHeartbeatTimeout    = 300
	defaultOrphanSweepInterval = 600
	defaultStopGracePeriod     = 5
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			WorkDir:   defaultWorkDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Transcription: Transcription{
			Model:             defaultModel,
			Language:          defaultLanguage,
			SegmentSeconds:    defaultSegmentSeconds,
			OverlapSeconds:    defaultOverlapSeconds,
			Processes:         defaultProcesses,
			ThreadsPerProcess: defaultThreadsPerProcess,
			TolerateGaps:      true,
		},
		Engine: Engine{},
		Workflow: Workflow{
			QueuePollInterval:   defaultQueuePollInterval,
			ErrorRetryInterval:  defaultErrorRetryInterval,
			HeartbeatInterval:   defaultHeartbeatInterval,
			HeartbeatTimeout:    defaultHeartbeatTimeout,
			OrphanSweepInterval: defaultOrphanSweepInterval,
			StopGracePeriod:     defaultStopGracePeriod,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
