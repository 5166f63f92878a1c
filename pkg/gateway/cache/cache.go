// Package cache reads the precomputed briefing snapshot written by the
// overnight pipeline. The snapshot is read-only here and only trusted within
// a fixed freshness window.
package cache

import (
	"encoding/json"
	"log/slog"
	"os"
	"time"
)

// Snapshot is the on-disk briefing document.
type Snapshot struct {
	Timestamp      time.Time      `json:"timestamp"`
	VoiceSummaries VoiceSummaries `json:"voiceSummaries"`
	Data           SnapshotData   `json:"data"`
}

type VoiceSummaries struct {
	Weather      string          `json:"weather"`
	Calendar     CalendarSummary `json:"calendar"`
	Tasks        string          `json:"tasks"`
	Sitting      string          `json:"sitting"`
	ScreenTime   string          `json:"screenTime"`
	Emails       string          `json:"emails"`
	SchoolEmails string          `json:"schoolEmails"`
}

type CalendarSummary struct {
	Today    string `json:"today"`
	Tomorrow string `json:"tomorrow"`
}

type SnapshotData struct {
	Calendar CalendarData `json:"calendar"`
}

type CalendarData struct {
	EventsWithDetails []EventDetail `json:"eventsWithDetails"`
}

type EventDetail struct {
	Summary     string `json:"summary"`
	Start       string `json:"start"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	Attendees   string `json:"attendees,omitempty"`
}

// Reader loads snapshots from a fixed path with a staleness window.
type Reader struct {
	path   string
	maxAge time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewReader(path string, maxAge time.Duration, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{path: path, maxAge: maxAge, logger: logger, now: time.Now}
}

// Read returns the snapshot, or nil when it is missing, unreadable, or older
// than the freshness window. A snapshot exactly at the window edge is stale.
func (r *Reader) Read() *Snapshot {
	if r == nil {
		return nil
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn("cache read failed", "path", r.path, "error", err)
		}
		return nil
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		r.logger.Warn("cache decode failed", "path", r.path, "error", err)
		return nil
	}
	age := r.now().Sub(snap.Timestamp)
	if age >= r.maxAge {
		r.logger.Info("cache stale", "age_min", int(age.Minutes()))
		return nil
	}
	return &snap
}
