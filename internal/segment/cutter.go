package segment

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"scribe/internal/services"
)

var commandContext = exec.CommandContext

// Cutter extracts planned segments into mono 16kHz WAV files that the
// transcription engine consumes.
type Cutter struct {
	ffmpegBinary string
}

// NewCutter builds a Cutter around the given ffmpeg binary.
func NewCutter(ffmpegBinary string) *Cutter {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	return &Cutter{ffmpegBinary: ffmpegBinary}
}

// Cut extracts a single segment of source audio into dest.
func (c *Cutter) Cut(ctx context.Context, source string, seg Segment, dest string) error {
	if seg.Duration() <= 0 {
		return services.Wrap(services.ErrValidation, "segment", "cut",
			fmt.Sprintf("invalid duration %.3f for segment %d", seg.Duration(), seg.Index), nil)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", fmt.Sprintf("%.3f", seg.Start),
		"-t", fmt.Sprintf("%.3f", seg.Duration()),
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	cmd := commandContext(ctx, c.ffmpegBinary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return services.Wrap(services.ErrExternalTool, "segment", "cut",
			strings.TrimSpace(string(output)), err)
	}
	return nil
}

// CutAll extracts every planned segment into dir and returns the WAV paths
// indexed to match the plan.
func (c *Cutter) CutAll(ctx context.Context, source string, plan []Segment, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("segment dir: %w", err)
	}
	paths := make([]string, 0, len(plan))
	for _, seg := range plan {
		dest := filepath.Join(dir, fmt.Sprintf("segment-%04d.wav", seg.Index))
		if err := c.Cut(ctx, source, seg, dest); err != nil {
			return nil, err
		}
		paths = append(paths, dest)
	}
	return paths, nil
}
