package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"scribe/internal/services"
)

var commandContext = exec.CommandContext

// Line is a single timed line of engine output, in seconds relative to the
// start of the transcribed file.
type Line struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the transcript of one audio file.
type Result struct {
	Text  string `json:"text"`
	Lines []Line `json:"segments"`
}

// Option customizes the CLI client.
type Option func(*CLI)

// WithBinary overrides the launcher binary used to run the engine.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if strings.TrimSpace(binary) != "" {
			c.binary = binary
		}
	}
}

// WithLanguage sets the language hint passed to the engine.
func WithLanguage(language string) Option {
	return func(c *CLI) {
		c.language = strings.TrimSpace(language)
	}
}

// CLI runs the speech-to-text engine as an external command. The model is
// loaded once per OS process by the engine; the mutex serializes calls so
// concurrent callers share that single loaded model rather than forcing a
// reload per invocation.
type CLI struct {
	binary   string
	model    string
	language string

	mu sync.Mutex
}

// NewCLI builds an engine client for the given model.
func NewCLI(model string, opts ...Option) *CLI {
	cli := &CLI{
		binary: "uvx",
		model:  strings.TrimSpace(model),
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Transcribe converts one WAV file into a timed transcript.
func (c *CLI) Transcribe(ctx context.Context, wavPath string) (Result, error) {
	if c.model == "" {
		return Result{}, services.Wrap(services.ErrConfiguration, "engine", "transcribe", "model is required", nil)
	}
	if strings.TrimSpace(wavPath) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "engine", "transcribe", "audio path is required", nil)
	}

	outputDir, err := os.MkdirTemp("", "scribe-engine-*")
	if err != nil {
		return Result{}, fmt.Errorf("engine temp dir: %w", err)
	}
	defer os.RemoveAll(outputDir)

	args := []string{
		"mlx-whisper",
		wavPath,
		"--model", c.model,
		"--output-dir", outputDir,
		"--output-format", "json",
		"--verbose", "False",
	}
	if c.language != "" {
		args = append(args, "--language", c.language)
	}

	c.mu.Lock()
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	c.mu.Unlock()
	if err != nil {
		return Result{}, classifyRunError(err, string(output))
	}

	return readResult(outputDir, wavPath)
}

func classifyRunError(err error, output string) error {
	detail := strings.TrimSpace(output)
	lowered := strings.ToLower(detail)
	switch {
	case strings.Contains(lowered, "no such model"), strings.Contains(lowered, "unknown model"):
		return services.Wrap(services.ErrConfiguration, "engine", "transcribe", detail, err)
	case strings.Contains(lowered, "unsupported language"), strings.Contains(lowered, "invalid language"):
		return services.Wrap(services.ErrValidation, "engine", "transcribe", detail, err)
	default:
		return services.Wrap(services.ErrExternalTool, "engine", "transcribe", detail, err)
	}
}

func readResult(outputDir, wavPath string) (Result, error) {
	base := strings.TrimSuffix(filepath.Base(wavPath), filepath.Ext(wavPath))
	jsonPath := filepath.Join(outputDir, base+".json")
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "engine", "transcribe",
			"engine produced no JSON transcript", err)
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "engine", "transcribe",
			"malformed engine output", err)
	}
	result.Text = strings.TrimSpace(result.Text)
	for i := range result.Lines {
		result.Lines[i].Text = strings.TrimSpace(result.Lines[i].Text)
	}
	return result, nil
}
