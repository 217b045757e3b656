package segment

import (
	"fmt"
	"time"
)

// Segment is one planned slice of the source audio, in seconds from the
// start of the stream. End is exclusive.
type Segment struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the segment length.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// DurationTime returns the segment length as a time.Duration.
func (s Segment) DurationTime() time.Duration {
	return time.Duration(s.Duration() * float64(time.Second))
}

// Plan slices a recording of totalSeconds into overlapping segments.
// Consecutive segments advance by segmentSeconds-overlapSeconds so each
// shares exactly overlapSeconds of audio with its predecessor. The final
// segment is clamped to the end of the recording; every moment of audio
// lands in at least one segment.
func Plan(totalSeconds, segmentSeconds, overlapSeconds float64) ([]Segment, error) {
	if segmentSeconds <= 0 {
		return nil, fmt.Errorf("plan segments: non-positive segment length %.3f", segmentSeconds)
	}
	if overlapSeconds < 0 || overlapSeconds >= segmentSeconds {
		return nil, fmt.Errorf("plan segments: overlap %.3f must be in [0, %.3f)", overlapSeconds, segmentSeconds)
	}

	if totalSeconds <= 0 {
		// Zero-length audio yields an empty plan and, later, an empty transcript.
		return nil, nil
	}
	if totalSeconds <= segmentSeconds {
		return []Segment{{Index: 0, Start: 0, End: totalSeconds}}, nil
	}

	stride := segmentSeconds - overlapSeconds
	var plan []Segment
	for start := 0.0; start < totalSeconds; start += stride {
		end := start + segmentSeconds
		if end > totalSeconds {
			end = totalSeconds
		}
		plan = append(plan, Segment{Index: len(plan), Start: start, End: end})
		if end >= totalSeconds {
			break
		}
	}
	return plan, nil
}
