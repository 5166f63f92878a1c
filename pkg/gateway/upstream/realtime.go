// Package upstream dials the OpenAI Realtime websocket for live calls.
package upstream

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

// Dialer connects to the realtime speech endpoint. Transient dial failures
// are retried within a short window; the caller is already on the line, so
// the budget is deliberately small.
type Dialer struct {
	BaseURL string
	APIKey  string
	Model   string

	// MaxElapsed bounds the total time spent retrying the dial.
	MaxElapsed time.Duration

	Logger *slog.Logger

	// dial is swapped in tests.
	dial func(ctx context.Context, urlStr string, header http.Header) (*websocket.Conn, *http.Response, error)
}

func (d *Dialer) endpoint() (string, error) {
	base := d.BaseURL
	if base == "" {
		base = "wss://api.openai.com/v1/realtime"
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid realtime url: %w", err)
	}
	q := u.Query()
	q.Set("model", d.Model)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Connect dials the realtime endpoint, retrying transient failures with
// exponential backoff until the context or the elapsed budget expires.
func (d *Dialer) Connect(ctx context.Context) (*websocket.Conn, error) {
	if d.APIKey == "" {
		return nil, fmt.Errorf("missing realtime api key")
	}
	endpoint, err := d.endpoint()
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+d.APIKey)

	dial := d.dial
	if dial == nil {
		wsDialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
		dial = wsDialer.DialContext
	}

	maxElapsed := d.MaxElapsed
	if maxElapsed <= 0 {
		maxElapsed = 8 * time.Second
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = maxElapsed

	var conn *websocket.Conn
	err = backoff.Retry(func() error {
		c, resp, dialErr := dial(ctx, endpoint, header)
		if dialErr == nil {
			conn = c
			return nil
		}
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return backoff.Permanent(fmt.Errorf("realtime auth rejected: %w", dialErr))
		}
		if d.Logger != nil {
			d.Logger.Warn("realtime dial failed, retrying", "error", dialErr)
		}
		return dialErr
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, fmt.Errorf("connect realtime: %w", err)
	}
	return conn, nil
}
