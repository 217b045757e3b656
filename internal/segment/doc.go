// Package segment plans and cuts overlapping audio slices for parallel
// transcription. The planner advances by length minus overlap so adjacent
// segments share a few seconds of audio; the merge step later uses that
// shared region to stitch transcripts back together without seams.
package segment
