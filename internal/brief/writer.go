// Package brief persists the ancillary record of each finished briefing as an
// append-only JSON line stream.
package brief

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Entry struct {
	Timestamp       time.Time `json:"timestamp"`
	JobID           string    `json:"job_id"`
	Summary         string    `json:"summary"`
	Language        string    `json:"language,omitempty"`
	Highlights      []string  `json:"highlights,omitempty"`
	TranscriptChars int       `json:"transcript_chars"`
	CorrelationID   string    `json:"correlation_id,omitempty"`
}

type Writer struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{writer: w}
}

func NewFileWriter(path string) (*Writer, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}

	cleanPath := filepath.Clean(path)
	f, err := os.OpenFile(cleanPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return NewWriter(f), nil
}

func (w *Writer) Write(e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return json.NewEncoder(w.writer).Encode(e)
}
