package calls

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestHistoryStore_AppendAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "call-history.json")
	s := OpenHistory(path, 500, nil)

	now := time.Now().UTC().Truncate(time.Second)
	s.Append(HistoryEntry{Timestamp: now, Duration: 42, Caller: "+16045550100", TranscriptLines: 7})

	reloaded := OpenHistory(path, 500, nil)
	if reloaded.Len() != 1 {
		t.Fatalf("reloaded len=%d, want 1", reloaded.Len())
	}
	last, ok := reloaded.Last()
	if !ok || last.Caller != "+16045550100" || last.Duration != 42 || last.TranscriptLines != 7 {
		t.Fatalf("reloaded entry=%+v/%v", last, ok)
	}
}

func TestHistoryStore_CapAndOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "call-history.json")
	s := OpenHistory(path, 500, nil)

	base := time.Now().UTC()
	for i := 0; i < 510; i++ {
		s.Append(HistoryEntry{Timestamp: base.Add(time.Duration(i) * time.Second), Duration: i, Caller: "c"})
	}
	if s.Len() != 500 {
		t.Fatalf("len=%d, want 500 after cap", s.Len())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read history: %v", err)
	}
	var entries []HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(entries) != 500 {
		t.Fatalf("persisted len=%d, want 500", len(entries))
	}
	// Oldest entries dropped, chronological order preserved.
	if entries[0].Duration != 10 || entries[499].Duration != 509 {
		t.Fatalf("unexpected window: first=%d last=%d", entries[0].Duration, entries[499].Duration)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp.Before(entries[i-1].Timestamp) {
			t.Fatalf("entries out of order at %d", i)
		}
	}
}

func TestHistoryStore_CountSince(t *testing.T) {
	s := OpenHistory(filepath.Join(t.TempDir(), "h.json"), 500, nil)
	now := time.Now()
	s.Append(HistoryEntry{Timestamp: now.Add(-48 * time.Hour)})
	s.Append(HistoryEntry{Timestamp: now.Add(-2 * time.Hour)})
	s.Append(HistoryEntry{Timestamp: now.Add(-time.Minute)})

	if got := s.CountSince(now.Add(-24 * time.Hour)); got != 2 {
		t.Fatalf("last 24h=%d, want 2", got)
	}
	if got := s.CountSince(now.Add(-7 * 24 * time.Hour)); got != 3 {
		t.Fatalf("last 7d=%d, want 3", got)
	}
}

func TestHistoryStore_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.json")
	if err := os.WriteFile(path, []byte("{corrupt"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := OpenHistory(path, 500, nil)
	if s.Len() != 0 {
		t.Fatalf("corrupt history should start empty, len=%d", s.Len())
	}
}

func TestTranscript_RenderAndWrite(t *testing.T) {
	tr := &Transcript{}
	tr.Append(SpeakerCaller, "what's on my calendar")
	tr.Append(SpeakerAssistant, "You have a standup at nine.")
	tr.Append(SpeakerCaller, "   ") // blank lines are dropped

	if tr.Len() != 2 {
		t.Fatalf("len=%d, want 2", tr.Len())
	}
	rendered := tr.Render()
	if !strings.HasPrefix(rendered, "[CALLER] what's on my calendar\n[HENRY] ") {
		t.Fatalf("unexpected render: %q", rendered)
	}

	dir := t.TempDir()
	start := time.Date(2026, 8, 30, 9, 15, 0, 0, time.UTC)
	path, err := WriteTranscript(dir, start, tr)
	if err != nil {
		t.Fatalf("WriteTranscript: %v", err)
	}
	if filepath.Base(path) != "2026-08-30T09-15-00.txt" {
		t.Fatalf("transcript name=%q", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if string(data) != rendered {
		t.Fatalf("persisted transcript differs from render")
	}
}

func TestWriteTranscript_EmptyIsSkipped(t *testing.T) {
	path, err := WriteTranscript(t.TempDir(), time.Now(), &Transcript{})
	if err != nil || path != "" {
		t.Fatalf("empty transcript should not be written, got %q/%v", path, err)
	}
}

func TestFinalizer_Finalize(t *testing.T) {
	dir := t.TempDir()
	gate := NewGate(2*time.Minute, nil)
	gate.TryAdmit("+16045550100", false)

	summarized := make(chan string, 1)
	f := &Finalizer{
		Gate:          gate,
		History:       OpenHistory(filepath.Join(dir, "h.json"), 500, nil),
		TranscriptDir: filepath.Join(dir, "voice-calls"),
		Summarize: func(ctx context.Context, path string) error {
			summarized <- path
			return nil
		},
	}

	tr := &Transcript{}
	tr.Append(SpeakerCaller, "hello")
	start := time.Now().Add(-90 * time.Second)
	end := time.Now()
	f.Finalize("+16045550100", start, end, tr)

	if _, ok := gate.Active(); ok {
		t.Fatalf("slot should be released after finalize")
	}
	last, ok := f.History.Last()
	if !ok || last.TranscriptLines != 1 || last.Duration < 89 || last.Duration > 91 {
		t.Fatalf("history entry=%+v/%v", last, ok)
	}
	select {
	case path := <-summarized:
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("summarizer got missing path %q: %v", path, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("summarizer was not fired")
	}
}
