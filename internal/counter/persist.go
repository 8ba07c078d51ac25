package counter

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Store reads and writes the counter value as decimal text in a single file.
// Both operations return errors instead of terminating anything: losing a
// durability write is preferable to stalling pulse counting, and a missing
// file at startup just means the counter awaits an override.
type Store struct {
	path string
}

// NewStore creates a Store for the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the file path the store operates on.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted counter value. A missing or unparseable file is
// reported as an error; the caller decides whether that matters.
func (s *Store) Load() (uint64, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return 0, fmt.Errorf("read counter file: %w", err)
	}

	line, _, _ := strings.Cut(string(data), "\n")
	v, err := strconv.ParseUint(strings.TrimSpace(line), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse counter file %s: %w", s.path, err)
	}
	return v, nil
}

// Save overwrites the counter file with v and forces it to durable storage.
// The value is only considered persisted once fsync has succeeded, so a crash
// immediately after Save cannot lose the update.
func (s *Store) Save(v uint64) error {
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open counter file: %w", err)
	}

	if _, err := fmt.Fprintf(f, "%d", v); err != nil {
		f.Close()
		return fmt.Errorf("write counter file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync counter file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close counter file: %w", err)
	}
	return nil
}
