package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/heth-labs/voicegate/pkg/gateway/config"
	"github.com/heth-labs/voicegate/pkg/gateway/live/calls"
	"github.com/heth-labs/voicegate/pkg/gateway/live/relay"
	"github.com/heth-labs/voicegate/pkg/gateway/tools"
)

// UpstreamDial connects to the realtime model for one call.
type UpstreamDial func(ctx context.Context) (relay.Socket, error)

// MediaStreamHandler upgrades the carrier's media-stream connection and runs
// the relay for the duration of the call.
type MediaStreamHandler struct {
	Config    config.Config
	Gate      *calls.Gate
	Finalizer *calls.Finalizer
	Registry  *tools.Registry
	Dial      UpstreamDial
	Identity  string
	Logger    *slog.Logger

	now func() time.Time
}

func (h MediaStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	nowFn := h.now
	if nowFn == nil {
		nowFn = time.Now
	}

	upgrader := websocket.Upgrader{
		// The carrier connects server-to-server with no Origin header.
		CheckOrigin: func(*http.Request) bool { return true },
	}
	down, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("media-stream upgrade failed", "error", err)
		return
	}
	defer down.Close()
	if h.Config.WSMaxMessageBytes > 0 {
		down.SetReadLimit(h.Config.WSMaxMessageBytes)
	}

	up, err := h.Dial(r.Context())
	if err != nil {
		// The caller is on the line with nothing to talk to; drop the
		// socket so the carrier ends the call.
		logger.Error("realtime dial failed", "error", err)
		h.Gate.Release()
		return
	}
	defer up.Close()

	start := nowFn()
	rl := relay.New(relay.Config{
		Model:           h.Config.RealtimeModel,
		Voice:           h.Config.Voice,
		TranscribeModel: h.Config.TranscribeModel,
		Identity:        h.Identity,
		TrustedNumber:   h.Config.TrustedNumber,
		SafeWord:        h.Config.SafeWord,
		WriteTimeout:    h.Config.WSWriteTimeout,
		Logger:          logger,
	}, down, up, h.Registry)

	rl.OnStreamStart = func(streamSID, caller string) {
		if _, ok := h.Gate.Active(); !ok {
			// The webhook normally claims the slot first; reclaim it here
			// if the process restarted between webhook and stream.
			h.Gate.TryAdmit(caller, false)
		}
		if active, ok := h.Gate.Active(); ok {
			start = active.StartTime
		}
		h.Gate.MarkStreaming(streamSID)
	}

	if err := rl.Run(r.Context()); err != nil && err != context.Canceled {
		logger.Error("relay ended with error", "error", err)
	}

	h.Finalizer.Finalize(rl.Caller(), start, nowFn(), rl.Transcript())
}
