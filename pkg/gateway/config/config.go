package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries everything the gateway needs at startup. Required secrets are
// validated by Load; the process must not accept calls with any of them missing.
type Config struct {
	Addr string

	// Public hostname the carrier dials back to (no scheme, no trailing slash).
	Domain string

	// Telephony carrier credentials.
	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioAPIKeySID    string
	TwilioAPIKeySecret string
	TwilioTwiMLAppSID  string
	CallerNumber       string

	// Realtime model.
	OpenAIAPIKey      string
	RealtimeModel     string
	RealtimeBaseURL   string
	TranscribeModel   string
	Voice             string
	UpstreamDialRetry time.Duration

	// Caller trust.
	TrustedNumber string
	SafeWord      string

	// Flat-file state.
	DataDir       string
	PublicDir     string
	CacheMaxAge   time.Duration
	HistoryLimit  int
	IdentityPath  string
	MemoryDir     string
	TranscriptDir string

	// Admission control.
	StaleCallAfter    time.Duration
	WatchdogInterval  time.Duration
	WSWriteTimeout    time.Duration
	WSMaxMessageBytes int64

	// External productivity backends.
	ToodledoBaseURL     string
	ToodledoAccessToken string
	// HenryContextID is the task context delegated work is filed under.
	HenryContextID    int64
	WeatherLocation   string
	CalendarBaseURL   string
	CalendarToken     string
	CalendarAccount   string
	CalendarOwner     string
	GmailBaseURL      string
	GmailToken        string
	GmailAccount      string
	GmailReadOnly     string
	BraveBaseURL      string
	BraveAPIKey       string
	TelegramLogPath   string
	ClawdbotQueuePath string

	ReadHeaderTimeout   time.Duration
	ShutdownGracePeriod time.Duration
}

// Load reads configuration from the environment. It returns an error for any
// missing required secret so the caller can exit before serving.
func Load() (Config, error) {
	dataDir := envOr("VOICEGATE_DATA_DIR", "./data")
	cfg := Config{
		Addr:                envOr("VOICEGATE_ADDR", ":6060"),
		Domain:              normalizeDomain(os.Getenv("DOMAIN")),
		TwilioAccountSID:    os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:     os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioAPIKeySID:     os.Getenv("TWILIO_API_KEY_SID"),
		TwilioAPIKeySecret:  os.Getenv("TWILIO_API_KEY_SECRET"),
		TwilioTwiMLAppSID:   os.Getenv("TWILIO_TWIML_APP_SID"),
		CallerNumber:        os.Getenv("PHONE_NUMBER_FROM"),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		RealtimeModel:       envOr("VOICEGATE_REALTIME_MODEL", "gpt-realtime"),
		RealtimeBaseURL:     envOr("VOICEGATE_REALTIME_URL", "wss://api.openai.com/v1/realtime"),
		TranscribeModel:     envOr("VOICEGATE_TRANSCRIBE_MODEL", "gpt-4o-mini-transcribe"),
		Voice:               envOr("VOICEGATE_VOICE", "alloy"),
		UpstreamDialRetry:   envDurationOr("VOICEGATE_UPSTREAM_DIAL_RETRY", 8*time.Second),
		TrustedNumber:       os.Getenv("PAUL_PHONE"),
		SafeWord:            os.Getenv("SAFE_WORD"),
		DataDir:             dataDir,
		PublicDir:           envOr("VOICEGATE_PUBLIC_DIR", "./public"),
		CacheMaxAge:         envDurationOr("VOICEGATE_CACHE_MAX_AGE", 30*time.Minute),
		HistoryLimit:        envIntOr("VOICEGATE_HISTORY_LIMIT", 500),
		IdentityPath:        envOr("VOICEGATE_IDENTITY_PATH", dataDir+"/IDENTITY.md"),
		MemoryDir:           envOr("VOICEGATE_MEMORY_DIR", dataDir+"/memory"),
		TranscriptDir:       envOr("VOICEGATE_TRANSCRIPT_DIR", dataDir+"/memory/voice-calls"),
		StaleCallAfter:      envDurationOr("VOICEGATE_STALE_CALL_AFTER", 2*time.Minute),
		WatchdogInterval:    envDurationOr("VOICEGATE_WATCHDOG_INTERVAL", 10*time.Second),
		WSWriteTimeout:      envDurationOr("VOICEGATE_WS_WRITE_TIMEOUT", 5*time.Second),
		WSMaxMessageBytes:   envInt64Or("VOICEGATE_WS_MAX_MESSAGE_BYTES", 512*1024),
		ToodledoBaseURL:     envOr("TOODLEDO_BASE_URL", "https://api.toodledo.com"),
		ToodledoAccessToken: os.Getenv("TOODLEDO_ACCESS_TOKEN"),
		HenryContextID:      envInt64Or("TOODLEDO_HENRY_CONTEXT", 0),
		WeatherLocation:     envOr("VOICEGATE_WEATHER_LOCATION", "North Vancouver"),
		CalendarBaseURL:     envOr("CALENDAR_BASE_URL", "https://www.googleapis.com/calendar/v3"),
		CalendarToken:       os.Getenv("CALENDAR_TOKEN"),
		CalendarAccount:     envOr("CALENDAR_ACCOUNT", "henry@heth.ca"),
		CalendarOwner:       envOr("CALENDAR_OWNER", "paul@heth.ca"),
		GmailBaseURL:        envOr("GMAIL_BASE_URL", "https://gmail.googleapis.com/gmail/v1"),
		GmailToken:          os.Getenv("GMAIL_TOKEN"),
		GmailAccount:        envOr("GMAIL_ACCOUNT", "henry@heth.ca"),
		GmailReadOnly:       envOr("GMAIL_READONLY_ACCOUNT", "paul@heth.ca"),
		BraveBaseURL:        envOr("BRAVE_BASE_URL", "https://api.search.brave.com"),
		BraveAPIKey:         os.Getenv("BRAVE_API_KEY"),
		TelegramLogPath:     envOr("VOICEGATE_TELEGRAM_LOG", dataDir+"/telegram.jsonl"),
		ClawdbotQueuePath:   envOr("VOICEGATE_CLAWDBOT_QUEUE", dataDir+"/voice-requests.log"),
		ReadHeaderTimeout:   envDurationOr("VOICEGATE_READ_HEADER_TIMEOUT", 10*time.Second),
		ShutdownGracePeriod: envDurationOr("VOICEGATE_SHUTDOWN_GRACE", 15*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces the fatal-at-startup contract for required secrets.
func (c Config) Validate() error {
	missing := make([]string, 0, 5)
	if strings.TrimSpace(c.TwilioAccountSID) == "" {
		missing = append(missing, "TWILIO_ACCOUNT_SID")
	}
	if strings.TrimSpace(c.TwilioAuthToken) == "" {
		missing = append(missing, "TWILIO_AUTH_TOKEN")
	}
	if strings.TrimSpace(c.CallerNumber) == "" {
		missing = append(missing, "PHONE_NUMBER_FROM")
	}
	if strings.TrimSpace(c.Domain) == "" {
		missing = append(missing, "DOMAIN")
	}
	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("history limit must be positive, got %d", c.HistoryLimit)
	}
	return nil
}

// CachePath returns the briefing snapshot location under the data directory.
func (c Config) CachePath() string {
	return c.DataDir + "/data-cache.json"
}

// HistoryPath returns the call-history document location.
func (c Config) HistoryPath() string {
	return c.DataDir + "/call-history.json"
}

// MediaStreamURL is the secure websocket URL handed to the carrier.
func (c Config) MediaStreamURL() string {
	return "wss://" + c.Domain + "/media-stream"
}

func normalizeDomain(raw string) string {
	d := strings.TrimSpace(raw)
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	return strings.TrimRight(d, "/")
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envInt64Or(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
