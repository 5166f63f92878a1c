// Package calls owns the single-call admission slot, the call history log,
// and per-call transcript persistence. The slot is mutated only through
// TryAdmit/MarkStreaming/Release; nothing else may touch it.
package calls

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Call is the metadata for the one admitted session.
type Call struct {
	Caller    string
	StartTime time.Time
	WebClient bool
	StreamSID string
	Streaming bool
}

// Gate is the strict mutual-exclusion admission gate: at most one call is
// active process-wide, by policy rather than by accident.
type Gate struct {
	mu         sync.Mutex
	active     *Call
	staleAfter time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewGate(staleAfter time.Duration, logger *slog.Logger) *Gate {
	if staleAfter <= 0 {
		staleAfter = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{staleAfter: staleAfter, logger: logger, now: time.Now}
}

// TryAdmit claims the slot for a new inbound call. It returns false, with no
// state change, while another call holds the slot.
func (g *Gate) TryAdmit(caller string, webClient bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active != nil {
		return false
	}
	g.active = &Call{Caller: caller, StartTime: g.now(), WebClient: webClient}
	return true
}

// MarkStreaming records that the media stream opened for the active call.
// A streaming call is never reclaimed by the watchdog.
func (g *Gate) MarkStreaming(streamSID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active == nil {
		return
	}
	g.active.StreamSID = streamSID
	g.active.Streaming = true
}

// Release returns the slot to idle.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active = nil
}

// Active returns a copy of the current call, if any.
func (g *Gate) Active() (Call, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active == nil {
		return Call{}, false
	}
	return *g.active, true
}

// ReleaseStale force-releases the slot when it has been held past the stale
// threshold without the media stream ever opening. This guards against a
// webhook that accepted a call whose stream never connected, which would
// otherwise wedge the gate forever.
func (g *Gate) ReleaseStale() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active == nil || g.active.Streaming {
		return false
	}
	if g.now().Sub(g.active.StartTime) < g.staleAfter {
		return false
	}
	g.logger.Warn("releasing stale call", "caller", g.active.Caller, "age", g.now().Sub(g.active.StartTime))
	g.active = nil
	return true
}

// RunWatchdog ticks until ctx is done, reclaiming stale slots.
func (g *Gate) RunWatchdog(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.ReleaseStale()
		}
	}
}
