package output

import (
	"fmt"
	"strings"

	"scribe/internal/merge"
)

// renderSRT renders merged entries as SubRip text: sequential numbering from
// 1, a "start --> end" timing line, the entry text, and a blank separator.
func renderSRT(entries []merge.Entry) string {
	var b strings.Builder
	for i, entry := range entries {
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", formatTimestamp(entry.Start), formatTimestamp(entry.End))
		b.WriteString(entry.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// formatTimestamp renders seconds as the SubRip HH:MM:SS,mmm form.
func formatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int64(seconds*1000 + 0.5)
	hours := millis / 3_600_000
	millis -= hours * 3_600_000
	minutes := millis / 60_000
	millis -= minutes * 60_000
	secs := millis / 1000
	millis -= secs * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
