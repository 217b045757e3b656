// Package merge reassembles per-segment transcripts into one linear
// transcript. Segments share a few seconds of audio with their neighbors, so
// the boundary text usually appears on both sides; the collector finds that
// shared run of words and keeps exactly one copy. When the engine transcribed
// the overlap differently on each side, a density tie-break decides which
// side's version survives.
package merge
