package handlers

import (
	"net/http"
	"time"

	"github.com/heth-labs/voicegate/pkg/gateway/live/calls"
)

// StatusHandler reports whether the line is free, recent call volume, and the
// last completed call.
type StatusHandler struct {
	Gate    *calls.Gate
	History *calls.HistoryStore

	// StartedAt is the process start time, for the uptime field.
	StartedAt time.Time

	now func() time.Time
}

type statusResponse struct {
	Status        string      `json:"status"`
	ActiveCall    *activeCall `json:"activeCall,omitempty"`
	LastCall      *lastCall   `json:"lastCall,omitempty"`
	CallsLast24h  int         `json:"callsLast24h"`
	CallsLast7d   int         `json:"callsLast7d"`
	TotalCalls    int         `json:"totalCalls"`
	UptimeSeconds int         `json:"uptimeSeconds"`
}

type activeCall struct {
	Caller          string `json:"caller"`
	StartedAt       string `json:"startedAt"`
	DurationSeconds int    `json:"durationSeconds"`
	Streaming       bool   `json:"streaming"`
}

type lastCall struct {
	Caller          string `json:"caller"`
	EndedAt         string `json:"endedAt"`
	DurationSeconds int    `json:"durationSeconds"`
	TranscriptLines int    `json:"transcriptLines"`
}

func (h StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	nowFn := h.now
	if nowFn == nil {
		nowFn = time.Now
	}
	now := nowFn()

	resp := statusResponse{Status: "idle"}
	if !h.StartedAt.IsZero() {
		resp.UptimeSeconds = int(now.Sub(h.StartedAt).Seconds())
	}
	if h.History != nil {
		resp.CallsLast24h = h.History.CountSince(now.Add(-24 * time.Hour))
		resp.CallsLast7d = h.History.CountSince(now.Add(-7 * 24 * time.Hour))
		resp.TotalCalls = h.History.Len()
		if entry, ok := h.History.Last(); ok {
			resp.LastCall = &lastCall{
				Caller:          entry.Caller,
				EndedAt:         entry.Timestamp.UTC().Format(time.RFC3339),
				DurationSeconds: entry.Duration,
				TranscriptLines: entry.TranscriptLines,
			}
		}
	}
	if active, ok := h.Gate.Active(); ok {
		resp.Status = "on-call"
		resp.ActiveCall = &activeCall{
			Caller:          active.Caller,
			StartedAt:       active.StartTime.UTC().Format(time.RFC3339),
			DurationSeconds: int(now.Sub(active.StartTime).Seconds()),
			Streaming:       active.Streaming,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
