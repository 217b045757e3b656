package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scribe/internal/merge"
)

// Metadata describes the job that produced a transcript.
type Metadata struct {
	SourcePath      string    `json:"source_path"`
	Model           string    `json:"model"`
	Language        string    `json:"language,omitempty"`
	DurationSeconds float64   `json:"duration_seconds"`
	Segments        int       `json:"segments"`
	SpeedFactor     float64   `json:"speed_factor,omitempty"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// Document is the structured JSON output for one job.
type Document struct {
	Metadata Metadata      `json:"metadata"`
	Text     string        `json:"text"`
	Entries  []merge.Entry `json:"entries"`
}

// Writer persists the three output renditions of a finished transcript.
type Writer struct {
	dir string
}

// NewWriter builds a writer rooted at the output directory.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// WriteAll writes the plain-text, structured JSON, and subtitle files for a
// transcript and returns their paths. The base name is derived from the
// source file name.
func (w *Writer) WriteAll(transcript merge.Transcript, meta Metadata) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}
	base := baseName(meta.SourcePath)
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = time.Now().UTC()
	}

	txtPath := filepath.Join(w.dir, base+".txt")
	if err := writeAtomic(txtPath, []byte(transcript.FullText+"\n")); err != nil {
		return nil, fmt.Errorf("write transcript text: %w", err)
	}

	jsonPath := filepath.Join(w.dir, base+".json")
	doc := Document{Metadata: meta, Text: transcript.FullText, Entries: transcript.Entries}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal transcript document: %w", err)
	}
	if err := writeAtomic(jsonPath, append(data, '\n')); err != nil {
		return nil, fmt.Errorf("write transcript document: %w", err)
	}

	srtPath := filepath.Join(w.dir, base+".srt")
	if err := writeAtomic(srtPath, []byte(renderSRT(transcript.Entries))); err != nil {
		return nil, fmt.Errorf("write subtitles: %w", err)
	}

	return []string{txtPath, jsonPath, srtPath}, nil
}

// writeAtomic writes through a temp file in the target directory and renames
// it into place, so a watcher never observes a half-written output.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	name := tmp.Name()
	tmp = nil
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}

func baseName(sourcePath string) string {
	base := filepath.Base(sourcePath)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" || base == "." {
		base = "transcript"
	}
	return base
}
