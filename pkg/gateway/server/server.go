// Package server assembles the gateway: the single-call slot, the tool
// registry and its backends, the realtime dialer, and the HTTP routes.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/heth-labs/voicegate/pkg/gateway/cache"
	"github.com/heth-labs/voicegate/pkg/gateway/config"
	"github.com/heth-labs/voicegate/pkg/gateway/handlers"
	"github.com/heth-labs/voicegate/pkg/gateway/live/calls"
	"github.com/heth-labs/voicegate/pkg/gateway/live/relay"
	"github.com/heth-labs/voicegate/pkg/gateway/mw"
	"github.com/heth-labs/voicegate/pkg/gateway/tools"
	"github.com/heth-labs/voicegate/pkg/gateway/tools/adapters/brave"
	"github.com/heth-labs/voicegate/pkg/gateway/tools/adapters/gcal"
	"github.com/heth-labs/voicegate/pkg/gateway/tools/adapters/gmail"
	"github.com/heth-labs/voicegate/pkg/gateway/tools/adapters/toodledo"
	"github.com/heth-labs/voicegate/pkg/gateway/tools/adapters/wttr"
	"github.com/heth-labs/voicegate/pkg/gateway/tools/bridge"
	"github.com/heth-labs/voicegate/pkg/gateway/tools/memory"
	"github.com/heth-labs/voicegate/pkg/gateway/twilio"
	"github.com/heth-labs/voicegate/pkg/gateway/upstream"
)

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	gate      *calls.Gate
	history   *calls.HistoryStore
	finalizer *calls.Finalizer
	registry  *tools.Registry
	identity  string
	startedAt time.Time

	twilioClient *twilio.Client
	tokenIssuer  *twilio.AccessTokenIssuer
	dialer       *upstream.Dialer
}

func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: 10 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}

	assistantBridge := bridge.New(cfg.TelegramLogPath, cfg.ClawdbotQueuePath)
	registry, err := tools.BuildRegistry(&tools.Deps{
		Cache:          cache.NewReader(cfg.CachePath(), cfg.CacheMaxAge, logger),
		Tasks:          toodledo.New(cfg.ToodledoBaseURL, cfg.ToodledoAccessToken, httpClient),
		Calendar:       gcal.New(cfg.CalendarBaseURL, cfg.CalendarToken, cfg.CalendarAccount, httpClient),
		MailHenry:      gmail.New(cfg.GmailBaseURL, cfg.GmailToken, cfg.GmailAccount, httpClient),
		MailPaul:       gmail.New(cfg.GmailBaseURL, cfg.GmailToken, cfg.GmailReadOnly, httpClient),
		Web:            brave.New(cfg.BraveBaseURL, cfg.BraveAPIKey, httpClient),
		Weather:        wttr.New("", cfg.WeatherLocation, httpClient),
		Memory:         memory.NewStore(cfg.MemoryDir),
		Bridge:         assistantBridge,
		ForwardDefault: cfg.GmailReadOnly,
		HenryContext:   cfg.HenryContextID,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build tool registry: %w", err)
	}

	gate := calls.NewGate(cfg.StaleCallAfter, logger)
	history := calls.OpenHistory(cfg.HistoryPath(), cfg.HistoryLimit, logger)
	finalizer := &calls.Finalizer{
		Gate:          gate,
		History:       history,
		TranscriptDir: cfg.TranscriptDir,
		Summarize:     summarizeViaBridge(assistantBridge),
		Logger:        logger,
	}

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		mux:       http.NewServeMux(),
		gate:      gate,
		history:   history,
		finalizer: finalizer,
		registry:  registry,
		identity:  loadIdentity(cfg.IdentityPath, logger),
		startedAt: time.Now(),
		twilioClient: twilio.NewClient(
			"", cfg.TwilioAccountSID, cfg.TwilioAuthToken, httpClient,
		),
		tokenIssuer: &twilio.AccessTokenIssuer{
			AccountSID:   cfg.TwilioAccountSID,
			APIKeySID:    cfg.TwilioAPIKeySID,
			APIKeySecret: cfg.TwilioAPIKeySecret,
			TwiMLAppSID:  cfg.TwilioTwiMLAppSID,
		},
		dialer: &upstream.Dialer{
			BaseURL:    cfg.RealtimeBaseURL,
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.RealtimeModel,
			MaxElapsed: cfg.UpstreamDialRetry,
			Logger:     logger,
		},
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.Handle("/healthz", handlers.HealthHandler{})

	s.mux.Handle("/incoming-call", handlers.IncomingCallHandler{
		Config: s.cfg,
		Gate:   s.gate,
		Logger: s.logger,
	})
	s.mux.Handle("/media-stream", handlers.MediaStreamHandler{
		Config:    s.cfg,
		Gate:      s.gate,
		Finalizer: s.finalizer,
		Registry:  s.registry,
		Dial: func(ctx context.Context) (relay.Socket, error) {
			return s.dialer.Connect(ctx)
		},
		Identity: s.identity,
		Logger:   s.logger,
	})
	s.mux.Handle("/status", handlers.StatusHandler{
		Gate:      s.gate,
		History:   s.history,
		StartedAt: s.startedAt,
	})
	s.mux.Handle("/make-call", handlers.MakeCallHandler{
		Config: s.cfg,
		Client: s.twilioClient,
		Logger: s.logger,
	})
	s.mux.Handle("/api/token", handlers.TokenHandler{
		Issuer: s.tokenIssuer,
		Logger: s.logger,
	})

	s.mux.Handle("/", http.FileServer(http.Dir(s.cfg.PublicDir)))
}

// Handler wraps the routes in the middleware chain. The media-stream route
// hijacks the connection for the websocket upgrade, which the access-log
// wrapper passes through.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}

// RunWatchdog reclaims call slots whose media stream never opened. It blocks
// until ctx is done.
func (s *Server) RunWatchdog(ctx context.Context) {
	s.gate.RunWatchdog(ctx, s.cfg.WatchdogInterval)
}

// loadIdentity reads the caller-context document inlined into trusted session
// instructions. A missing document degrades to a generic session.
func loadIdentity(path string, logger *slog.Logger) string {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("identity load failed", "path", path, "error", err)
		}
		return ""
	}
	return string(data)
}

// summarizeViaBridge asks the assistant bot to digest the saved transcript.
// The work happens out of process; this only enqueues the request.
func summarizeViaBridge(b *bridge.Bridge) calls.SummarizeFunc {
	return func(ctx context.Context, transcriptPath string) error {
		return b.Enqueue(fmt.Sprintf(
			"A phone call just ended. Read the transcript at %s, save any durable facts to memory, and note anything that needs follow-up.",
			transcriptPath,
		))
	}
}
