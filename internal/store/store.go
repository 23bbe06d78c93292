// Package store owns the persisted CSV state of a branch. It performs
// whole-file loads and saves and keeps a ledger of the modification
// timestamps produced by its own saves, so the reload coordinator can tell
// this process's writes apart from another machine's.
package store

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/atomic"

	"github.com/isaacbax/workshoptracker/internal/record"
)

// Store loads and saves work-order CSV files. It is safe for concurrent
// use; the own-write ledger is guarded internally.
type Store struct {
	logger *log.Logger

	mu        sync.Mutex
	ownWrites map[string]time.Time
}

// New creates a Store. If logger is nil, a default logger writing to
// stderr is used.
func New(logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(os.Stderr, "[store] ", log.LstdFlags)
	}
	return &Store{
		logger:    logger,
		ownWrites: make(map[string]time.Time),
	}
}

// Load reads every record from the CSV at path, in file order. A missing
// file yields an empty set, not an error. Malformed rows are skipped.
func (s *Store) Load(path string) ([]*record.WorkOrder, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var orders []*record.WorkOrder
	lines := strings.Split(string(data), "\n")
	skipped := 0

	// First line is the header.
	for i := 1; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		o, ok := record.ParseLine(line)
		if !ok {
			skipped++
			continue
		}
		orders = append(orders, o)
	}

	if skipped > 0 {
		s.logger.Printf("Skipped %d malformed row(s) in %s", skipped, filepath.Base(path))
	}

	return orders, nil
}

// Save overwrites the CSV at path with the fixed header followed by one
// line per record, in the order given. The write is atomic: a temp file
// is written and renamed over the target, so a concurrent reader never
// sees a half-written file. On success the file's new modification time
// is recorded in the own-write ledger.
func (s *Store) Save(path string, orders []*record.WorkOrder) error {
	var b strings.Builder
	b.WriteString(record.Header)
	b.WriteString("\n")
	for _, o := range orders {
		b.WriteString(record.FormatLine(o))
		b.WriteString("\n")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create folder for %s: %w", path, err)
	}
	if err := atomic.WriteFile(path, strings.NewReader(b.String())); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		// The write succeeded; a failed stat only weakens self-write
		// suppression for this save.
		s.logger.Printf("Warning: could not stat %s after save: %v", path, err)
		return nil
	}

	s.mu.Lock()
	s.ownWrites[path] = info.ModTime()
	s.mu.Unlock()

	return nil
}

// OwnWrite returns the modification timestamp recorded by the most recent
// Save to path, if any.
func (s *Store) OwnWrite(path string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.ownWrites[path]
	return t, ok
}
