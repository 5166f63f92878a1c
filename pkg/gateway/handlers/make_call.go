package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/heth-labs/voicegate/pkg/gateway/config"
	"github.com/heth-labs/voicegate/pkg/gateway/twilio"
)

// MakeCallHandler dials out to a number and bridges the answered call into the
// media stream, exactly as an inbound call would be.
type MakeCallHandler struct {
	Config config.Config
	Client *twilio.Client
	Logger *slog.Logger
}

type makeCallRequest struct {
	To string `json:"to"`
}

type makeCallResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
	To     string `json:"to"`
}

func (h MakeCallHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	to := ""
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var body makeCallRequest
		if err := decodeJSONBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		to = body.To
	} else {
		to = r.FormValue("to")
	}
	to = strings.TrimSpace(to)
	if to == "" {
		writeError(w, http.StatusBadRequest, "missing 'to' number")
		return
	}

	twiml := twilio.OutboundTwiML(h.Config.MediaStreamURL(), h.Config.TrustedNumber)
	call, err := h.Client.CreateCall(r.Context(), h.Config.CallerNumber, to, twiml)
	if err != nil {
		h.Logger.Error("outbound call failed", "to", to, "error", err)
		writeError(w, http.StatusBadGateway, "failed to place call")
		return
	}
	h.Logger.Info("outbound call placed", "sid", call.SID, "to", call.To)
	writeJSON(w, http.StatusCreated, makeCallResponse{SID: call.SID, Status: call.Status, To: call.To})
}
