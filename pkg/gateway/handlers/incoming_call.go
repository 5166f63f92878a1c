package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/heth-labs/voicegate/pkg/gateway/config"
	"github.com/heth-labs/voicegate/pkg/gateway/live/calls"
	"github.com/heth-labs/voicegate/pkg/gateway/twilio"
)

// IncomingCallHandler answers the carrier's call webhook. The single-call
// slot is claimed here, before any media flows; a second caller gets a busy
// message and a hangup.
type IncomingCallHandler struct {
	Config config.Config
	Gate   *calls.Gate
	Logger *slog.Logger
}

func (h IncomingCallHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	caller := callerNumber(r)
	webClient := strings.HasPrefix(caller, "client:")

	if !h.Gate.TryAdmit(caller, webClient) {
		if h.Logger != nil {
			active, _ := h.Gate.Active()
			h.Logger.Info("call rejected, line busy", "caller", caller, "active_caller", active.Caller)
		}
		writeTwiML(w, twilio.BusyTwiML())
		return
	}

	if h.Logger != nil {
		h.Logger.Info("call admitted", "caller", caller)
	}
	writeTwiML(w, twilio.ConnectStreamTwiML(
		"Connected.",
		h.Config.MediaStreamURL(),
		caller,
	))
}

// callerNumber reads From out of the webhook, accepting both the POST form
// and query-string delivery modes Twilio can be configured for.
func callerNumber(r *http.Request) string {
	if err := r.ParseForm(); err != nil {
		return ""
	}
	if from := strings.TrimSpace(r.PostForm.Get("From")); from != "" {
		return from
	}
	return strings.TrimSpace(r.URL.Query().Get("From"))
}
