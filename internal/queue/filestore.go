package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/okanlawon/pawdispatch/internal/domain"
)

// FileStore persists queue entries as a single JSON document, rewritten
// atomically (temp file + rename) on every mutation, so the queue survives
// process restarts and crashes mid-write.
type FileStore struct {
	path    string
	mu      sync.Mutex
	entries map[string]*domain.QueueEntry
}

func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:    path,
		entries: make(map[string]*domain.QueueEntry),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create queue directory: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read queue file %s: %w", path, err)
	}

	var stored []*domain.QueueEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parse queue file %s: %w", path, err)
	}
	for _, e := range stored {
		s.entries[e.Request.RequestID] = e
	}

	return s, nil
}

func (s *FileStore) Save(entry *domain.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Request.RequestID] = entry
	return s.persistLocked()
}

func (s *FileStore) Delete(requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[requestID]; !ok {
		return nil
	}
	delete(s.entries, requestID)
	return s.persistLocked()
}

func (s *FileStore) List() ([]*domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked(), nil
}

func (s *FileStore) sortedLocked() []*domain.QueueEntry {
	out := make([]*domain.QueueEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Request, out[j].Request
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.RequestID < b.RequestID
	})
	return out
}

func (s *FileStore) persistLocked() error {
	data, err := json.MarshalIndent(s.sortedLocked(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal queue: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write queue temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace queue file: %w", err)
	}
	return nil
}
