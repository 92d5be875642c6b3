// Package jsonl provides append-only JSON Lines sinks that survive abrupt termination.
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Writer appends one JSON document per line. Every Write is flushed and synced
// so a killed process keeps everything written before it died.
type Writer struct {
	mu   sync.Mutex
	path string
	file *os.File
	buf  *bufio.Writer
}

// Open opens path in append mode, creating parent directories as needed.
func Open(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open jsonl file %s: %w", path, err)
	}
	return &Writer{path: path, file: f, buf: bufio.NewWriter(f)}, nil
}

func (w *Writer) Path() string {
	return w.path
}

// Write encodes v as a single line.
func (w *Writer) Write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode jsonl record: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return fmt.Errorf("write %s: writer closed", w.path)
	}
	if _, err := w.buf.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write jsonl record: %w", err)
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("flush jsonl record: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("sync jsonl file: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle. Closing twice is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	flushErr := w.buf.Flush()
	closeErr := w.file.Close()
	w.file = nil
	if flushErr != nil {
		return fmt.Errorf("flush jsonl file: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close jsonl file: %w", closeErr)
	}
	return nil
}
