package calls

import (
	"testing"
	"time"
)

func TestGate_MutualExclusion(t *testing.T) {
	g := NewGate(2*time.Minute, nil)
	if !g.TryAdmit("+16045550100", false) {
		t.Fatalf("first admit should succeed")
	}
	if g.TryAdmit("+17785550200", false) {
		t.Fatalf("second admit while active must be rejected")
	}
	active, ok := g.Active()
	if !ok || active.Caller != "+16045550100" {
		t.Fatalf("rejected admit must not change the slot, got %+v/%v", active, ok)
	}

	g.Release()
	if !g.TryAdmit("+17785550200", false) {
		t.Fatalf("admit after release should succeed")
	}
}

func TestGate_ReleaseStale(t *testing.T) {
	base := time.Now()
	clock := base
	g := NewGate(2*time.Minute, nil)
	g.now = func() time.Time { return clock }

	if !g.TryAdmit("+16045550100", false) {
		t.Fatalf("admit failed")
	}

	// Under the threshold: nothing released.
	clock = base.Add(90 * time.Second)
	if g.ReleaseStale() {
		t.Fatalf("released slot before the stale threshold")
	}

	// Exactly at the threshold with no stream: released.
	clock = base.Add(2 * time.Minute)
	if !g.ReleaseStale() {
		t.Fatalf("call at the stale threshold was not released")
	}
	if _, ok := g.Active(); ok {
		t.Fatalf("slot should be idle after stale release")
	}
}

func TestGate_StreamingCallNeverReclaimed(t *testing.T) {
	base := time.Now()
	clock := base
	g := NewGate(2*time.Minute, nil)
	g.now = func() time.Time { return clock }

	g.TryAdmit("+16045550100", false)
	g.MarkStreaming("MZ1")

	clock = base.Add(2 * time.Hour)
	if g.ReleaseStale() {
		t.Fatalf("watchdog must not release a connected call, no matter how long it runs")
	}
	active, ok := g.Active()
	if !ok || active.StreamSID != "MZ1" || !active.Streaming {
		t.Fatalf("active call lost stream state: %+v/%v", active, ok)
	}
}

func TestGate_MarkStreamingOnIdleIsNoOp(t *testing.T) {
	g := NewGate(2*time.Minute, nil)
	g.MarkStreaming("MZ1")
	if _, ok := g.Active(); ok {
		t.Fatalf("marking an idle gate must not create a call")
	}
}
