package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/heth-labs/voicegate/pkg/gateway/live/calls"
	"github.com/heth-labs/voicegate/pkg/gateway/live/relay"
	"github.com/heth-labs/voicegate/pkg/gateway/tools"
)

// fakeUpstream is a realtime-socket stand-in that records writes and blocks
// reads until closed.
type fakeUpstream struct {
	mu     sync.Mutex
	writes []string
	closed chan struct{}
	once   sync.Once
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{closed: make(chan struct{})}
}

func (f *fakeUpstream) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, fmt.Errorf("upstream closed")
}

func (f *fakeUpstream) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, string(data))
	return nil
}

func (f *fakeUpstream) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return f.WriteMessage(websocket.TextMessage, data)
}

func (f *fakeUpstream) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeUpstream) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeUpstream) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.writes))
	copy(out, f.writes)
	return out
}

func TestMediaStreamRunsCallAndFinalizes(t *testing.T) {
	gate := calls.NewGate(time.Minute, quietLogger())
	history := calls.OpenHistory(t.TempDir()+"/history.json", 10, quietLogger())
	finalizer := &calls.Finalizer{
		Gate:          gate,
		History:       history,
		TranscriptDir: t.TempDir(),
		Logger:        quietLogger(),
	}
	up := newFakeUpstream()

	cfg := testConfig()
	cfg.WSWriteTimeout = time.Second
	h := MediaStreamHandler{
		Config:    cfg,
		Gate:      gate,
		Finalizer: finalizer,
		Registry:  tools.NewRegistry(quietLogger()),
		Dial:      func(context.Context) (relay.Socket, error) { return up, nil },
		Identity:  "Paul context.",
		Logger:    quietLogger(),
	}

	server := httptest.NewServer(h)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/media-stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	start := `{"event":"start","start":{"streamSid":"MZ42","customParameters":{"callerNumber":"+16045550100"}}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(start)); err != nil {
		t.Fatalf("write start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		active, ok := gate.Active()
		if ok && active.Streaming && active.StreamSID == "MZ42" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("call never marked streaming: active=%+v ok=%v", active, ok)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"stop"}`)); err != nil {
		t.Fatalf("write stop: %v", err)
	}

	deadline = time.Now().Add(2 * time.Second)
	for history.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("call never finalized")
		}
		time.Sleep(5 * time.Millisecond)
	}
	entry, _ := history.Last()
	if entry.Caller != "+16045550100" {
		t.Fatalf("history caller = %q", entry.Caller)
	}
	if _, ok := gate.Active(); ok {
		t.Fatal("gate not released after call end")
	}

	// The relay must have configured the session before greeting.
	writes := up.snapshot()
	if len(writes) == 0 {
		t.Fatal("no upstream writes recorded")
	}
	if !strings.Contains(writes[0], "session.update") {
		t.Fatalf("first upstream write = %s", writes[0])
	}
}

func TestMediaStreamReleasesGateOnDialFailure(t *testing.T) {
	gate := calls.NewGate(time.Minute, quietLogger())
	if !gate.TryAdmit("+16045550100", false) {
		t.Fatal("setup admit failed")
	}
	h := MediaStreamHandler{
		Config: testConfig(),
		Gate:   gate,
		Finalizer: &calls.Finalizer{
			Gate:   gate,
			Logger: quietLogger(),
		},
		Registry: tools.NewRegistry(quietLogger()),
		Dial: func(context.Context) (relay.Socket, error) {
			return nil, fmt.Errorf("realtime unavailable")
		},
		Logger: quietLogger(),
	}

	server := httptest.NewServer(h)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/media-stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := gate.Active(); !ok {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("gate still held after upstream dial failure")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
