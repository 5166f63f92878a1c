package bridge

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRecentMessagesFiltersWindowAndLimit(t *testing.T) {
	dir := t.TempDir()
	log := filepath.Join(dir, "telegram.jsonl")
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	lines := []TelegramMessage{
		{Timestamp: now.Add(-48 * time.Hour), From: "paul", Text: "too old"},
		{Timestamp: now.Add(-3 * time.Hour), From: "paul", Text: "first"},
		{Timestamp: now.Add(-2 * time.Hour), From: "henry", Text: "second"},
		{Timestamp: now.Add(-1 * time.Hour), From: "paul", Text: "third"},
	}
	f, err := os.Create(log)
	if err != nil {
		t.Fatal(err)
	}
	enc := json.NewEncoder(f)
	for _, m := range lines {
		if err := enc.Encode(m); err != nil {
			t.Fatal(err)
		}
	}
	f.WriteString("not json\n")
	f.Close()

	b := New(log, "")
	b.now = func() time.Time { return now }

	got, err := b.RecentMessages(24*time.Hour, 2)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d messages", len(got))
	}
	if got[0].Text != "second" || got[1].Text != "third" {
		t.Fatalf("wrong window: %+v", got)
	}
}

func TestRecentMessagesMissingLog(t *testing.T) {
	b := New(filepath.Join(t.TempDir(), "missing.jsonl"), "")
	got, err := b.RecentMessages(time.Hour, 10)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if got != nil {
		t.Fatalf("got %+v", got)
	}
}

func TestEnqueueAppendsJSONL(t *testing.T) {
	queue := filepath.Join(t.TempDir(), "queue", "out.jsonl")
	b := New("", queue)
	b.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }

	if err := b.Enqueue("look up ferry prices"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := b.Enqueue("draft the reply to Jen"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	data, err := os.ReadFile(queue)
	if err != nil {
		t.Fatalf("read queue: %v", err)
	}
	var entry struct {
		Timestamp string `json:"timestamp"`
		Source    string `json:"source"`
		Message   string `json:"message"`
	}
	first, _, _ := bytes.Cut(data, []byte("\n"))
	if err := json.Unmarshal(first, &entry); err != nil {
		t.Fatalf("decode first entry: %v", err)
	}
	if entry.Source != "voice" || entry.Message != "look up ferry prices" {
		t.Fatalf("entry = %+v", entry)
	}
	if entry.Timestamp != "2026-08-30T12:00:00Z" {
		t.Fatalf("timestamp = %q", entry.Timestamp)
	}
}

func TestEnqueueRejectsEmptyMessage(t *testing.T) {
	b := New("", filepath.Join(t.TempDir(), "q.jsonl"))
	if err := b.Enqueue("   "); err == nil {
		t.Fatal("expected error for empty message")
	}
}
