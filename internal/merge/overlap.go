package merge

import (
	"log/slog"
	"strings"

	"scribe/internal/logging"
)

const (
	// maxCharsPerSecond bounds how much text an overlap window can plausibly
	// contain; it sizes the search window for boundary matching.
	maxCharsPerSecond = 25
	// maxWindowChars caps the boundary search regardless of overlap length.
	maxWindowChars = 200
	// minConfidentChars accepts a single-word match only when it is long
	// enough to be more than coincidence.
	minConfidentChars = 12
	// minConfidentWords accepts shorter matches when several consecutive
	// words line up on both sides of the boundary.
	minConfidentWords = 2
)

type splicedPair struct {
	prev string
	next string
}

// spliceOverlap removes the text duplicated across the boundary between two
// consecutive segments. When both sides transcribed the shared audio the same
// way, the duplicate head of next is dropped. When they disagree, the side
// whose segment shows the higher character density keeps its version of the
// overlap; the other side's copy is trimmed. Content is never removed from
// both sides.
func spliceOverlap(prev, next string, a, b SegmentResult, overlapSeconds float64, logger *slog.Logger) splicedPair {
	if prev == "" || next == "" || overlapSeconds <= 0 {
		return splicedPair{prev: prev, next: next}
	}

	window := int(overlapSeconds * maxCharsPerSecond)
	if window > maxWindowChars {
		window = maxWindowChars
	}

	prevWords := strings.Fields(prev)
	nextWords := strings.Fields(next)
	maxK := matchableWords(prevWords, nextWords, window)

	for k := maxK; k >= 1; k-- {
		if !wordsEqualFold(prevWords[len(prevWords)-k:], nextWords[:k]) {
			continue
		}
		matched := strings.Join(nextWords[:k], " ")
		if k >= minConfidentWords || len(matched) >= minConfidentChars {
			return splicedPair{
				prev: prev,
				next: strings.Join(nextWords[k:], " "),
			}
		}
		// A lone short word lining up is as likely coincidence as overlap.
		break
	}

	logger.Warn("no confident overlap match, keeping denser side",
		logging.Int("left_segment", a.Index),
		logging.Int("right_segment", b.Index),
	)

	if density(prev, a) >= density(next, b) {
		return splicedPair{prev: prev, next: trimHead(nextWords, estimateOverlapChars(next, b, overlapSeconds, window))}
	}
	return splicedPair{prev: trimTail(prevWords, estimateOverlapChars(prev, a, overlapSeconds, window)), next: next}
}

// matchableWords returns the largest word count that fits the char window on
// both sides of the boundary.
func matchableWords(prevWords, nextWords []string, window int) int {
	limit := len(prevWords)
	if len(nextWords) < limit {
		limit = len(nextWords)
	}
	k := 0
	prevChars, nextChars := 0, 0
	for k < limit {
		prevChars += len(prevWords[len(prevWords)-1-k]) + 1
		nextChars += len(nextWords[k]) + 1
		if prevChars > window || nextChars > window {
			break
		}
		k++
	}
	return k
}

func wordsEqualFold(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if normalizeWord(a[i]) != normalizeWord(b[i]) {
			return false
		}
	}
	return true
}

func normalizeWord(word string) string {
	return strings.Trim(strings.ToLower(word), ".,!?;:\"'")
}

// density approximates how much text the segment produced per second of audio.
func density(text string, result SegmentResult) float64 {
	duration := result.End - result.Start
	if duration <= 0 {
		return 0
	}
	return float64(len(text)) / duration
}

// estimateOverlapChars guesses how many characters of the text fall inside the
// overlap region, assuming uniform speech rate across the segment.
func estimateOverlapChars(text string, result SegmentResult, overlapSeconds float64, window int) int {
	duration := result.End - result.Start
	if duration <= 0 {
		return 0
	}
	estimate := int(float64(len(text)) * overlapSeconds / duration)
	if estimate > window {
		estimate = window
	}
	return estimate
}

// trimHead drops whole words from the front until roughly chars are removed.
func trimHead(words []string, chars int) string {
	dropped := 0
	i := 0
	for i < len(words) && dropped+len(words[i]) <= chars {
		dropped += len(words[i]) + 1
		i++
	}
	return strings.Join(words[i:], " ")
}

// trimTail drops whole words from the back until roughly chars are removed.
func trimTail(words []string, chars int) string {
	dropped := 0
	i := len(words)
	for i > 0 && dropped+len(words[i-1]) <= chars {
		dropped += len(words[i-1]) + 1
		i--
	}
	return strings.Join(words[:i], " ")
}
