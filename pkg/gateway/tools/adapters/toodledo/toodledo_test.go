package toodledo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMergeTags(t *testing.T) {
	cases := []struct {
		existing string
		added    []string
		want     string
	}{
		{"", []string{"Deferred"}, "Deferred"},
		{"home, weekend", []string{"obsolete"}, "home, weekend, obsolete"},
		{"home, Deferred", []string{"deferred"}, "home, Deferred"},
		{" a ,, b ", []string{"c"}, "a, b, c"},
	}
	for _, tc := range cases {
		if got := MergeTags(tc.existing, tc.added...); got != tc.want {
			t.Errorf("MergeTags(%q, %v) = %q, want %q", tc.existing, tc.added, got, tc.want)
		}
	}
}

func TestTriagedTag(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	if got := TriagedTag(now); got != "triaged-0830" {
		t.Fatalf("got %q", got)
	}
	if !HasTriagedTag("home, Triaged-0830") {
		t.Fatal("case-insensitive triaged tag not detected")
	}
	if HasTriagedTag("home, weekend") {
		t.Fatal("false positive")
	}
}

func TestPriorityMapping(t *testing.T) {
	if PriorityFromName("High") != PriorityHigh {
		t.Fatal("high")
	}
	if PriorityFromName("") != PriorityMedium {
		t.Fatal("default should be medium")
	}
	if PriorityName(PriorityLow) != "low" {
		t.Fatal("low name")
	}
}

func TestSearchFiltersByTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// First element mimics Toodledo's summary record.
		w.Write([]byte(`[{"num":"3","total":"3"},
			{"id":1,"title":"Buy ferry tickets"},
			{"id":2,"title":"Paint the deck"},
			{"id":3,"title":"Ferry reservation for Whistler"}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "token", srv.Client())
	tasks, err := c.Search(context.Background(), "ferry")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks", len(tasks))
	}
	if tasks[0].ID != 1 || tasks[1].ID != 3 {
		t.Fatalf("wrong matches: %+v", tasks)
	}
}

func TestTriageSkipsTriagedAndSortsOldest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]Task{
			{ID: 1, Title: "new", Added: 300},
			{ID: 2, Title: "already done", Added: 100, Tag: "triaged-0810"},
			{ID: 3, Title: "oldest", Added: 50},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "token", srv.Client())
	tasks, err := c.Triage(context.Background(), 10)
	if err != nil {
		t.Fatalf("Triage: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks", len(tasks))
	}
	if tasks[0].ID != 3 || tasks[1].ID != 1 {
		t.Fatalf("wrong order: %+v", tasks)
	}
}

func TestUnconfiguredClient(t *testing.T) {
	c := New("http://example.invalid", "", nil)
	if c.Configured() {
		t.Fatal("empty token should be unconfigured")
	}
	if _, err := c.Search(context.Background(), "x"); err == nil {
		t.Fatal("expected configuration error")
	}
}
