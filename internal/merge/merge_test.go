package merge_test

import (
	"strings"
	"testing"

	"scribe/internal/logging"
	"scribe/internal/merge"
)

func collect(t *testing.T, overlap float64, results ...merge.SegmentResult) merge.Transcript {
	t.Helper()
	c := merge.NewCollector(len(results), overlap, logging.NewNop())
	for _, r := range results {
		if err := c.Add(r); err != nil {
			t.Fatalf("Add(%d) failed: %v", r.Index, err)
		}
	}
	transcript, err := c.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	return transcript
}

func TestMergeRemovesOverlapDuplicate(t *testing.T) {
	transcript := collect(t, 3,
		merge.SegmentResult{Index: 0, Start: 0, End: 20, Text: "earlier words the cat sat on"},
		merge.SegmentResult{Index: 1, Start: 17, End: 37, Text: "sat on the mat and purred"},
	)

	want := "earlier words the cat sat on the mat and purred"
	if transcript.FullText != want {
		t.Fatalf("merged text = %q, want %q", transcript.FullText, want)
	}
	if strings.Count(transcript.FullText, "sat on") != 1 {
		t.Fatalf("overlap not deduplicated: %q", transcript.FullText)
	}
}

func TestMergeOrderIndependent(t *testing.T) {
	results := []merge.SegmentResult{
		{Index: 0, Start: 0, End: 20, Text: "alpha bravo charlie delta echo"},
		{Index: 1, Start: 17, End: 37, Text: "delta echo foxtrot golf hotel"},
		{Index: 2, Start: 34, End: 47, Text: "golf hotel india juliet"},
	}

	inOrder := collect(t, 3, results[0], results[1], results[2])
	reversed := collect(t, 3, results[2], results[1], results[0])
	shuffled := collect(t, 3, results[1], results[2], results[0])

	if inOrder.FullText != reversed.FullText || inOrder.FullText != shuffled.FullText {
		t.Fatalf("arrival order changed output:\n%q\n%q\n%q",
			inOrder.FullText, reversed.FullText, shuffled.FullText)
	}
}

func TestMergeIdempotent(t *testing.T) {
	c := merge.NewCollector(2, 3, logging.NewNop())
	for _, r := range []merge.SegmentResult{
		{Index: 0, Start: 0, End: 20, Text: "one two three four"},
		{Index: 1, Start: 17, End: 30, Text: "three four five six"},
	} {
		if err := c.Add(r); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	first, err := c.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	second, err := c.Finalize()
	if err != nil {
		t.Fatalf("second Finalize failed: %v", err)
	}
	if first.FullText != second.FullText || len(first.Entries) != len(second.Entries) {
		t.Fatalf("repeated Finalize diverged: %q vs %q", first.FullText, second.FullText)
	}
}

func TestMergeRoundTrip(t *testing.T) {
	// Synthetic source where the overlap text is byte-identical on both
	// sides of every boundary; merging must recover the original exactly.
	original := "the quick brown fox jumps over the lazy dog while the band plays on and the crowd cheers loudly"
	words := strings.Fields(original)

	const perSegment = 8
	const overlapWords = 3
	var results []merge.SegmentResult
	start := 0
	index := 0
	for start < len(words) {
		end := start + perSegment
		if end > len(words) {
			end = len(words)
		}
		results = append(results, merge.SegmentResult{
			Index: index,
			Start: float64(start),
			End:   float64(end),
			Text:  strings.Join(words[start:end], " "),
		})
		if end == len(words) {
			break
		}
		start = end - overlapWords
		index++
	}

	transcript := collect(t, 3, results...)
	if transcript.FullText != original {
		t.Fatalf("round trip failed:\n got %q\nwant %q", transcript.FullText, original)
	}
}

func TestMergeSingleSegmentSkipsDedup(t *testing.T) {
	transcript := collect(t, 3,
		merge.SegmentResult{Index: 0, Start: 0, End: 12.5, Text: "just one segment here"},
	)
	if transcript.FullText != "just one segment here" {
		t.Fatalf("unexpected text: %q", transcript.FullText)
	}
	if len(transcript.Entries) != 1 || transcript.Entries[0].End != 12.5 {
		t.Fatalf("unexpected entries: %#v", transcript.Entries)
	}
}

func TestMergeAllEmptyYieldsEmptyTranscript(t *testing.T) {
	transcript := collect(t, 3,
		merge.SegmentResult{Index: 0, Start: 0, End: 20, Text: ""},
		merge.SegmentResult{Index: 1, Start: 17, End: 37, Text: "  "},
	)
	if transcript.FullText != "" || len(transcript.Entries) != 0 {
		t.Fatalf("expected empty transcript, got %#v", transcript)
	}
}

func TestMergeAmbiguityKeepsDenserSide(t *testing.T) {
	// No shared words across the boundary: the denser left side keeps its
	// overlap copy and the right side is trimmed, never both.
	left := "a very dense stretch of narration with many words packed in tight"
	right := "sparse tail"
	transcript := collect(t, 3,
		merge.SegmentResult{Index: 0, Start: 0, End: 20, Text: left},
		merge.SegmentResult{Index: 1, Start: 17, End: 37, Text: right},
	)
	if !strings.Contains(transcript.FullText, "packed in tight") {
		t.Fatalf("denser side was trimmed: %q", transcript.FullText)
	}
	if transcript.FullText == "" {
		t.Fatal("content dropped from both sides")
	}
}

func TestMergeRebasesTimestamps(t *testing.T) {
	transcript := collect(t, 3,
		merge.SegmentResult{Index: 0, Start: 0, End: 20, Text: "one two three"},
		merge.SegmentResult{Index: 1, Start: 17, End: 37, Text: "four five six"},
		merge.SegmentResult{Index: 2, Start: 34, End: 47, Text: "seven eight nine"},
	)
	if len(transcript.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %#v", transcript.Entries)
	}
	if transcript.Entries[0].Start != 0 {
		t.Fatalf("first entry should start at 0: %#v", transcript.Entries[0])
	}
	if transcript.Entries[2].End != 47 {
		t.Fatalf("last entry should end at 47: %#v", transcript.Entries[2])
	}
	for i := 1; i < len(transcript.Entries); i++ {
		if transcript.Entries[i].Start < transcript.Entries[i-1].End {
			t.Fatalf("entries overlap after rebase: %#v", transcript.Entries)
		}
	}
}

func TestCollectorRejectsBadIndexes(t *testing.T) {
	c := merge.NewCollector(2, 3, logging.NewNop())
	if err := c.Add(merge.SegmentResult{Index: 5}); err == nil {
		t.Fatal("expected out-of-range error")
	}
	if err := c.Add(merge.SegmentResult{Index: 0, Text: "a"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := c.Add(merge.SegmentResult{Index: 0, Text: "b"}); err == nil {
		t.Fatal("expected duplicate error")
	}
}

func TestFinalizeRequiresAllSegments(t *testing.T) {
	c := merge.NewCollector(2, 3, logging.NewNop())
	if err := c.Add(merge.SegmentResult{Index: 0, Text: "a"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := c.Finalize(); err == nil {
		t.Fatal("expected error while results are missing")
	}
	if missing := c.Missing(); len(missing) != 1 || missing[0] != 1 {
		t.Fatalf("unexpected missing set: %v", missing)
	}
}
