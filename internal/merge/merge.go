package merge

import (
	"fmt"
	"log/slog"
	"strings"

	"scribe/internal/logging"
)

// SegmentResult is the transcript of one planned segment, with timestamps
// relative to the original recording.
type SegmentResult struct {
	Index    int
	Start    float64
	End      float64
	Text     string
	WorkerID string
	Took     float64
}

// Entry is one merged transcript entry rebased to the original timeline.
type Entry struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the final output of a merge.
type Transcript struct {
	FullText string  `json:"text"`
	Entries  []Entry `json:"entries"`
}

// Collector buffers segment results arriving in any order and assembles the
// final transcript once every index is accounted for. Finalize is pure, so
// re-running it over the same set of results yields identical output.
type Collector struct {
	total          int
	overlapSeconds float64
	logger         *slog.Logger
	results        map[int]SegmentResult
}

// NewCollector builds a collector expecting total segment results.
func NewCollector(total int, overlapSeconds float64, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Collector{
		total:          total,
		overlapSeconds: overlapSeconds,
		logger:         logging.WithComponent(logger, "merge"),
		results:        make(map[int]SegmentResult, total),
	}
}

// Add buffers one segment result. Indexes outside [0, total) are rejected;
// a duplicate index is rejected so a retried segment cannot double-count.
func (c *Collector) Add(result SegmentResult) error {
	if result.Index < 0 || result.Index >= c.total {
		return fmt.Errorf("merge: segment index %d out of range [0, %d)", result.Index, c.total)
	}
	if _, ok := c.results[result.Index]; ok {
		return fmt.Errorf("merge: duplicate result for segment %d", result.Index)
	}
	c.results[result.Index] = result
	return nil
}

// Len reports how many results have been buffered.
func (c *Collector) Len() int {
	return len(c.results)
}

// Ready reports whether every expected segment result is present.
func (c *Collector) Ready() bool {
	return len(c.results) == c.total
}

// Missing returns the indexes still outstanding, ascending.
func (c *Collector) Missing() []int {
	var missing []int
	for i := 0; i < c.total; i++ {
		if _, ok := c.results[i]; !ok {
			missing = append(missing, i)
		}
	}
	return missing
}

// Finalize assembles the transcript in index order, removing the text
// duplicated by segment overlap. It fails when results are still missing.
func (c *Collector) Finalize() (Transcript, error) {
	if !c.Ready() {
		return Transcript{}, fmt.Errorf("merge: %d of %d segment results missing", c.total-len(c.results), c.total)
	}
	if c.total == 0 {
		return Transcript{}, nil
	}

	ordered := make([]SegmentResult, c.total)
	for i := 0; i < c.total; i++ {
		ordered[i] = c.results[i]
	}

	// Single segment skips overlap handling entirely.
	texts := make([]string, c.total)
	texts[0] = normalizeSpace(ordered[0].Text)
	for i := 1; i < c.total; i++ {
		prev := texts[i-1]
		next := normalizeSpace(ordered[i].Text)
		joined := spliceOverlap(prev, next, ordered[i-1], ordered[i], c.overlapSeconds, c.logger)
		texts[i-1] = joined.prev
		texts[i] = joined.next
	}

	var (
		entries []Entry
		parts   []string
		cursor  float64
	)
	for i, result := range ordered {
		start := result.Start
		if start < cursor {
			start = cursor
		}
		end := result.End
		if end < start {
			end = start
		}
		cursor = end
		text := texts[i]
		if text == "" {
			continue
		}
		entries = append(entries, Entry{Index: len(entries), Start: start, End: end, Text: text})
		parts = append(parts, text)
	}

	return Transcript{
		FullText: strings.Join(parts, " "),
		Entries:  entries,
	}, nil
}

func normalizeSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
