// Package wttr fetches one-line weather reports from wttr.in, used as the
// live fallback when the briefing cache is stale.
package wttr

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/heth-labs/voicegate/pkg/gateway/tools/safety"
)

type Client struct {
	baseURL    string
	location   string
	httpClient *http.Client
}

func New(baseURL, location string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 8 * time.Second}
	}
	if baseURL == "" {
		baseURL = "https://wttr.in"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		location:   location,
		httpClient: httpClient,
	}
}

// Current returns a compact current-conditions line, e.g.
// "Seattle: ⛅️ +17°C".
func (c *Client) Current(ctx context.Context) (string, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(c.location) + "?format=3"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "curl/8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("weather service error (status %d)", resp.StatusCode)
	}
	b, err := safety.ReadBodyLimited(resp, 4096)
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(string(b))
	if line == "" {
		return "", fmt.Errorf("weather service returned an empty report")
	}
	return line, nil
}
