package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileSink writes snapshots to <dir>/<key>.json and appends events to
// <dir>/<channel>.jsonl
type FileSink struct {
	dir string
	mu  sync.Mutex
}

// NewFileSink creates dir if needed
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create mirror directory: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

// Store implements Sink. The file is replaced atomically so readers never
// see a partial snapshot.
func (s *FileSink) Store(ctx context.Context, key string, data []byte) error {
	var indented bytes.Buffer
	if err := json.Indent(&indented, data, "", "  "); err != nil {
		return fmt.Errorf("failed to format %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, key+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, indented.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// Publish implements Sink
func (s *FileSink) Publish(ctx context.Context, channel string, data []byte) error {
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return fmt.Errorf("failed to format %s event: %w", channel, err)
	}
	compact.WriteByte('\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, channel+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(compact.Bytes()); err != nil {
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return nil
}

// Close implements Sink
func (s *FileSink) Close() error {
	return nil
}
