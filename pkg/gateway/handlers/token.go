package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/heth-labs/voicegate/pkg/gateway/twilio"
)

// TokenHandler mints short-lived browser voice tokens for the web client.
type TokenHandler struct {
	Issuer *twilio.AccessTokenIssuer
	Logger *slog.Logger
}

type tokenResponse struct {
	Token    string `json:"token"`
	Identity string `json:"identity"`
}

func (h TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !h.Issuer.Configured() {
		writeError(w, http.StatusServiceUnavailable, "voice tokens are not configured")
		return
	}
	identity := strings.TrimSpace(r.URL.Query().Get("identity"))
	if identity == "" {
		identity = "paul-web"
	}
	token, err := h.Issuer.Issue(identity)
	if err != nil {
		h.Logger.Error("token issue failed", "identity", identity, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, Identity: identity})
}
