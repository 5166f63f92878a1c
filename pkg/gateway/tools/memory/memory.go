// Package memory persists spoken notes as flat markdown files: a per-day log
// plus a curated long-term file, with a simple keyword search across both.
package memory

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const LongtermFile = "longterm.md"

type Store struct {
	dir string
	now func() time.Time
}

func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

func (s *Store) Configured() bool {
	return s != nil && s.dir != ""
}

// AppendDaily adds a timestamped entry to today's memory file.
func (s *Store) AppendDaily(content string) error {
	now := s.now()
	name := now.Format("2006-01-02") + ".md"
	entry := fmt.Sprintf("- %s %s\n", now.Format("15:04"), strings.TrimSpace(content))
	return s.appendFile(name, entry)
}

// AppendLongterm adds an entry to the durable memory file.
func (s *Store) AppendLongterm(content string) error {
	now := s.now()
	entry := fmt.Sprintf("- %s %s\n", now.Format("2006-01-02"), strings.TrimSpace(content))
	return s.appendFile(LongtermFile, entry)
}

type Hit struct {
	File string
	Line string
}

// Search scans every memory file for lines containing all query words,
// newest files first.
func (s *Store) Search(query string, maxHits int) ([]Hit, error) {
	if !s.Configured() {
		return nil, fmt.Errorf("memory directory is not configured")
	}
	if maxHits <= 0 {
		maxHits = 10
	}
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return nil, fmt.Errorf("empty search query")
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read memory dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	// Daily files are date-named, so reverse lexical order is newest first.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	var hits []Hit
	for _, name := range names {
		fileHits, err := s.scanFile(name, words, maxHits-len(hits))
		if err != nil {
			return hits, err
		}
		hits = append(hits, fileHits...)
		if len(hits) >= maxHits {
			break
		}
	}
	return hits, nil
}

func (s *Store) scanFile(name string, words []string, limit int) ([]Hit, error) {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	var hits []Hit
	scanner := bufio.NewScanner(f)
	for scanner.Scan() && len(hits) < limit {
		line := scanner.Text()
		lower := strings.ToLower(line)
		matched := true
		for _, w := range words {
			if !strings.Contains(lower, w) {
				matched = false
				break
			}
		}
		if matched && strings.TrimSpace(line) != "" {
			hits = append(hits, Hit{File: name, Line: strings.TrimSpace(line)})
		}
	}
	if err := scanner.Err(); err != nil {
		return hits, fmt.Errorf("scan %s: %w", name, err)
	}
	return hits, nil
}

func (s *Store) appendFile(name, entry string) error {
	if !s.Configured() {
		return fmt.Errorf("memory directory is not configured")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create memory dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()
	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("append %s: %w", name, err)
	}
	return nil
}
