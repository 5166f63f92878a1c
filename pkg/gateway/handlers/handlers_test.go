package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/heth-labs/voicegate/pkg/gateway/config"
	"github.com/heth-labs/voicegate/pkg/gateway/live/calls"
	"github.com/heth-labs/voicegate/pkg/gateway/twilio"
)

func testConfig() config.Config {
	return config.Config{
		Domain:        "voice.example.com",
		CallerNumber:  "+16045550000",
		TrustedNumber: "+16045550100",
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIncomingCallAdmitsAndConnectsStream(t *testing.T) {
	gate := calls.NewGate(time.Minute, quietLogger())
	h := IncomingCallHandler{Config: testConfig(), Gate: gate, Logger: quietLogger()}

	form := url.Values{"From": {"+16045550100"}}
	req := httptest.NewRequest(http.MethodPost, "/incoming-call", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/xml") {
		t.Fatalf("content type = %q, want text/xml", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `url="wss://voice.example.com/media-stream"`) {
		t.Fatalf("TwiML missing stream URL: %s", body)
	}
	if !strings.Contains(body, `name="callerNumber" value="+16045550100"`) {
		t.Fatalf("TwiML missing caller parameter: %s", body)
	}
	active, ok := gate.Active()
	if !ok || active.Caller != "+16045550100" {
		t.Fatalf("gate not claimed for caller: active=%+v ok=%v", active, ok)
	}
}

func TestIncomingCallBusyWhenSlotHeld(t *testing.T) {
	gate := calls.NewGate(time.Minute, quietLogger())
	if !gate.TryAdmit("+16045559999", false) {
		t.Fatal("setup admit failed")
	}
	h := IncomingCallHandler{Config: testConfig(), Gate: gate, Logger: quietLogger()}

	req := httptest.NewRequest(http.MethodPost, "/incoming-call?From=%2B16045550100", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "on another call") || !strings.Contains(body, "<Hangup") {
		t.Fatalf("expected busy TwiML, got: %s", body)
	}
	active, _ := gate.Active()
	if active.Caller != "+16045559999" {
		t.Fatalf("busy request displaced active call: %+v", active)
	}
}

func TestStatusIdleAndOnCall(t *testing.T) {
	gate := calls.NewGate(time.Minute, quietLogger())
	history := calls.OpenHistory(t.TempDir()+"/history.json", 10, quietLogger())
	now := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	history.Append(calls.HistoryEntry{Timestamp: now.Add(-48 * time.Hour), Caller: "+2", Duration: 10})
	history.Append(calls.HistoryEntry{Timestamp: now.Add(-time.Hour), Caller: "+1", Duration: 30, TranscriptLines: 4})

	h := StatusHandler{
		Gate:      gate,
		History:   history,
		StartedAt: now.Add(-time.Hour),
		now:       func() time.Time { return now },
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	var idle statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &idle); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if idle.Status != "idle" || idle.CallsLast24h != 1 || idle.CallsLast7d != 2 || idle.TotalCalls != 2 {
		t.Fatalf("idle status = %+v", idle)
	}
	if idle.UptimeSeconds != 3600 {
		t.Fatalf("uptime = %d, want 3600", idle.UptimeSeconds)
	}
	if idle.LastCall == nil || idle.LastCall.Caller != "+1" || idle.LastCall.TranscriptLines != 4 {
		t.Fatalf("last call = %+v", idle.LastCall)
	}

	gate.TryAdmit("+16045550100", false)
	gate.MarkStreaming("MZ123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	var busy statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &busy); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if busy.Status != "on-call" || busy.ActiveCall == nil {
		t.Fatalf("on-call status = %+v", busy)
	}
	if busy.ActiveCall.Caller != "+16045550100" || !busy.ActiveCall.Streaming {
		t.Fatalf("active call = %+v", busy.ActiveCall)
	}
}

func TestMakeCallPlacesOutboundCall(t *testing.T) {
	var gotForm url.Values
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2010-04-01/Accounts/AC123/Calls.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"CA777","status":"queued","to":"+16045550100"}`))
	}))
	defer backend.Close()

	cfg := testConfig()
	client := twilio.NewClient(backend.URL, "AC123", "token", backend.Client())
	h := MakeCallHandler{Config: cfg, Client: client, Logger: quietLogger()}

	req := httptest.NewRequest(http.MethodPost, "/make-call", strings.NewReader(`{"to":"+16045550100"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp makeCallResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SID != "CA777" || resp.To != "+16045550100" {
		t.Fatalf("response = %+v", resp)
	}
	if gotForm.Get("From") != cfg.CallerNumber {
		t.Fatalf("From = %q, want %q", gotForm.Get("From"), cfg.CallerNumber)
	}
	if !strings.Contains(gotForm.Get("Twiml"), "wss://voice.example.com/media-stream") {
		t.Fatalf("outbound TwiML missing stream URL: %s", gotForm.Get("Twiml"))
	}
}

func TestMakeCallRejectsMissingNumber(t *testing.T) {
	h := MakeCallHandler{Config: testConfig(), Client: twilio.NewClient("", "AC", "tok", nil), Logger: quietLogger()}
	req := httptest.NewRequest(http.MethodPost, "/make-call", strings.NewReader(`{"to":""}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestTokenHandlerIssuesVoiceToken(t *testing.T) {
	issuer := &twilio.AccessTokenIssuer{
		AccountSID:   "AC123",
		APIKeySID:    "SK456",
		APIKeySecret: "secret",
		TwiMLAppSID:  "AP789",
	}
	h := TokenHandler{Issuer: issuer, Logger: quietLogger()}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/token", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Identity != "paul-web" {
		t.Fatalf("identity = %q, want paul-web", resp.Identity)
	}
	parsed, err := jwt.Parse(resp.Token, func(*jwt.Token) (any, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token does not verify: %v", err)
	}
}

func TestTokenHandlerUnconfigured(t *testing.T) {
	h := TokenHandler{Issuer: &twilio.AccessTokenIssuer{}, Logger: quietLogger()}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/token", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
