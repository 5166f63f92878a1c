package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "token")
	t.Setenv("PHONE_NUMBER_FROM", "+16045550100")
	t.Setenv("DOMAIN", "voice.example.com")
	t.Setenv("OPENAI_API_KEY", "sk-test")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":6060" {
		t.Fatalf("addr=%q, want :6060", cfg.Addr)
	}
	if cfg.CacheMaxAge != 30*time.Minute {
		t.Fatalf("cache max age=%v, want 30m", cfg.CacheMaxAge)
	}
	if cfg.HistoryLimit != 500 {
		t.Fatalf("history limit=%d, want 500", cfg.HistoryLimit)
	}
	if cfg.StaleCallAfter != 2*time.Minute {
		t.Fatalf("stale call after=%v, want 2m", cfg.StaleCallAfter)
	}
	if cfg.WatchdogInterval != 10*time.Second {
		t.Fatalf("watchdog interval=%v, want 10s", cfg.WatchdogInterval)
	}
	if cfg.MediaStreamURL() != "wss://voice.example.com/media-stream" {
		t.Fatalf("media stream url=%q", cfg.MediaStreamURL())
	}
}

func TestLoad_MissingSecretsIsFatal(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error for missing secrets")
	}
	msg := err.Error()
	if !strings.Contains(msg, "OPENAI_API_KEY") || !strings.Contains(msg, "TWILIO_AUTH_TOKEN") {
		t.Fatalf("error should name each missing variable, got %q", msg)
	}
}

func TestLoad_DomainNormalization(t *testing.T) {
	setRequiredEnv(t)

	cases := []struct {
		raw  string
		want string
	}{
		{"https://voice.example.com", "voice.example.com"},
		{"wss://voice.example.com/", "voice.example.com"},
		{"voice.example.com//", "voice.example.com"},
	}
	for _, tc := range cases {
		t.Setenv("DOMAIN", tc.raw)
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load(%q): %v", tc.raw, err)
		}
		if cfg.Domain != tc.want {
			t.Fatalf("domain for %q = %q, want %q", tc.raw, cfg.Domain, tc.want)
		}
	}
}

func TestValidate_HistoryLimit(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("VOICEGATE_HISTORY_LIMIT", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-positive history limit")
	}
}
