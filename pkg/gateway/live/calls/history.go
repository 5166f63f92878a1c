package calls

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// HistoryEntry is one completed call, appended on call end.
type HistoryEntry struct {
	Timestamp       time.Time `json:"timestamp"`
	Duration        int       `json:"duration"`
	Caller          string    `json:"caller"`
	TranscriptLines int       `json:"transcriptLines"`
}

// HistoryStore persists call history to a flat JSON document, capped to the
// most recent entries. Last writer wins; there are no transactional guarantees.
type HistoryStore struct {
	mu      sync.Mutex
	path    string
	limit   int
	entries []HistoryEntry
	logger  *slog.Logger
}

// OpenHistory loads any existing history document. A missing or unreadable
// document starts the log empty rather than failing.
func OpenHistory(path string, limit int, logger *slog.Logger) *HistoryStore {
	if limit <= 0 {
		limit = 500
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &HistoryStore{path: path, limit: limit, logger: logger}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("call history load failed", "path", path, "error", err)
		}
		return s
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		logger.Warn("call history decode failed", "path", path, "error", err)
		s.entries = nil
	}
	return s
}

// Append records a completed call and saves the capped log.
func (s *HistoryStore) Append(entry HistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	if len(s.entries) > s.limit {
		s.entries = s.entries[len(s.entries)-s.limit:]
	}
	s.save()
}

func (s *HistoryStore) save() {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		s.logger.Error("call history encode failed", "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.logger.Error("call history dir create failed", "error", err)
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		s.logger.Error("call history save failed", "path", s.path, "error", err)
	}
}

// Len reports the stored entry count.
func (s *HistoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Last returns the most recent entry.
func (s *HistoryStore) Last() (HistoryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return HistoryEntry{}, false
	}
	return s.entries[len(s.entries)-1], true
}

// CountSince reports entries newer than the cutoff.
func (s *HistoryStore) CountSince(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.Timestamp.After(cutoff) {
			n++
		}
	}
	return n
}
