// Package history keeps a JSON file of past review outcomes.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shin-ichiroh/Manuscript-review/internal/pipeline"
)

// Entry is a stored review outcome.
type Entry struct {
	ID         string            `json:"id"`
	ReviewedAt time.Time         `json:"reviewed_at"`
	Outcome    *pipeline.Outcome `json:"outcome"`
}

// Entries is the content of a history file.
type Entries struct {
	Items []*Entry `json:"items"`
}

// Store appends to and reads from a history file. It serializes access from
// a single process.
type Store struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewStore(path string) *Store {
	return &Store{path: path, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Path() string {
	return s.path
}

// Append stores outcome under a new id. The assembled prompt is not kept.
func (s *Store) Append(outcome *pipeline.Outcome) (*Entry, error) {
	if outcome == nil {
		return nil, errors.New("outcome is required")
	}

	stored := *outcome
	if outcome.Review != nil {
		r := *outcome.Review
		r.Prompt = ""
		stored.Review = &r
	}

	entry := &Entry{
		ID:         uuid.NewString(),
		ReviewedAt: s.now(),
		Outcome:    &stored,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := FromFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	entries.Items = append(entries.Items, entry)
	if err := entries.ToFile(s.path); err != nil {
		return nil, fmt.Errorf("writing history: %w", err)
	}

	return entry, nil
}

// List returns the stored entries, newest first. A non-positive limit returns
// all of them.
func (s *Store) List(limit int) ([]*Entry, error) {
	s.mu.Lock()
	entries, err := FromFile(s.path)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	items := entries.Items
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].ReviewedAt.After(items[j].ReviewedAt)
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// FromFile reads a history file. A missing or empty file yields no entries.
func FromFile(path string) (*Entries, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Entries{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &Entries{}, nil
	}

	var entries Entries
	if err := json.NewDecoder(file).Decode(&entries); err != nil {
		return nil, err
	}
	return &entries, nil
}

// ToFile replaces the file at path with the entries.
func (e *Entries) ToFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".history_*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(e); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

// DumpToTmpFile writes v as indented JSON into a new temporary file and
// returns its name.
func DumpToTmpFile(v any) (string, error) {
	file, err := os.CreateTemp("", "review_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return file.Name(), nil
}
