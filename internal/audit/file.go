package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileSink appends entries to a JSON Lines file
type FileSink struct {
	path string
	mu   sync.Mutex
}

// NewFileSink creates the parent directory of path and returns a sink for it
func NewFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	return &FileSink{path: path}, nil
}

// Write appends one line per entry
func (s *FileSink) Write(_ context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Owner-only: the log holds the values that were masked
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	for _, e := range entries {
		if err := encoder.Encode(e); err != nil {
			return fmt.Errorf("failed to write audit entry: %w", err)
		}
	}
	return nil
}

// Load reads every entry back, skipping lines that do not decode
func (s *FileSink) Load() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}

// CountByCategory counts the logged entries of a session per category
func (s *FileSink) CountByCategory(_ context.Context, sessionID string) (map[string]int, error) {
	entries, err := s.Load()
	if errors.Is(err, os.ErrNotExist) {
		return map[string]int{}, nil
	}
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, e := range entries {
		if e.SessionID == sessionID {
			counts[e.Category]++
		}
	}
	return counts, nil
}

func (s *FileSink) Close() error { return nil }
