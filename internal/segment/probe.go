package segment

import (
	"context"
	"strconv"
	"strings"

	"scribe/internal/services"
)

// ProbeDuration reads the duration of a media file in seconds via ffprobe.
func ProbeDuration(ctx context.Context, ffprobeBinary, source string) (float64, error) {
	if strings.TrimSpace(ffprobeBinary) == "" {
		ffprobeBinary = "ffprobe"
	}
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		source,
	}
	cmd := commandContext(ctx, ffprobeBinary, args...) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "segment", "probe", "ffprobe failed", err)
	}
	raw := strings.TrimSpace(string(output))
	duration, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "segment", "probe",
			"unparseable duration "+strconv.Quote(raw), err)
	}
	if duration <= 0 {
		return 0, services.Wrap(services.ErrValidation, "segment", "probe",
			"source reports non-positive duration", nil)
	}
	return duration, nil
}
