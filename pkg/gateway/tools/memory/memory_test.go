package memory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fixedStore(t *testing.T, at time.Time) *Store {
	t.Helper()
	s := NewStore(t.TempDir())
	s.now = func() time.Time { return at }
	return s
}

func TestAppendDailyGoesToDatedFile(t *testing.T) {
	at := time.Date(2026, 8, 30, 9, 41, 0, 0, time.UTC)
	s := fixedStore(t, at)
	if err := s.AppendDaily("ferry leaves at ten"); err != nil {
		t.Fatalf("AppendDaily: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(s.dir, "2026-08-30.md"))
	if err != nil {
		t.Fatalf("read daily file: %v", err)
	}
	if string(b) != "- 09:41 ferry leaves at ten\n" {
		t.Fatalf("content = %q", b)
	}
}

func TestAppendLongterm(t *testing.T) {
	at := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	s := fixedStore(t, at)
	if err := s.AppendLongterm("Jen's birthday is in May"); err != nil {
		t.Fatalf("AppendLongterm: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(s.dir, LongtermFile))
	if err != nil {
		t.Fatalf("read longterm: %v", err)
	}
	if !strings.HasPrefix(string(b), "- 2026-08-30 ") {
		t.Fatalf("content = %q", b)
	}
}

func TestSearchMatchesAllWordsNewestFirst(t *testing.T) {
	s := NewStore(t.TempDir())
	files := map[string]string{
		"2026-08-28.md": "- 10:00 ferry prices went up\n",
		"2026-08-29.md": "- 11:00 booked the ferry to Whistler\n- 12:00 unrelated note\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(s.dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	hits, err := s.Search("ferry whistler", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("hits = %+v", hits)
	}
	if hits[0].File != "2026-08-29.md" {
		t.Fatalf("file = %s", hits[0].File)
	}

	hits, err = s.Search("ferry", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 || hits[0].File != "2026-08-29.md" {
		t.Fatalf("newest first expected, got %+v", hits)
	}
}

func TestSearchMissingDirReturnsNoHits(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing"))
	hits, err := s.Search("anything", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if hits != nil {
		t.Fatalf("hits = %+v", hits)
	}
}
