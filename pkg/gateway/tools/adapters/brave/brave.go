// Package brave is a client for the Brave web search API.
package brave

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/heth-labs/voicegate/pkg/gateway/tools/safety"
)

type Result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if baseURL == "" {
		baseURL = "https://api.search.brave.com/res/v1"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: httpClient,
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Search returns up to count web results. Transient upstream failures are
// retried briefly since the query is idempotent.
func (c *Client) Search(ctx context.Context, query string, count int) ([]Result, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("brave search api key is not configured")
	}
	if count <= 0 || count > 10 {
		count = 3
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("count", fmt.Sprint(count))
	endpoint := c.baseURL + "/web/search?" + q.Encode()

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	var results []Result
	err := backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Subscription-Token", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("brave search transient error (status %d)", resp.StatusCode)
		default:
			b, _ := safety.ReadBodyLimited(resp, 4096)
			return backoff.Permanent(fmt.Errorf("brave search error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(b))))
		}

		var page struct {
			Web struct {
				Results []Result `json:"results"`
			} `json:"web"`
		}
		if err := safety.DecodeJSONLimited(resp, safety.MaxResponseBytes, &page); err != nil {
			return backoff.Permanent(err)
		}
		results = page.Web.Results
		return nil
	}, policy)
	if err != nil {
		return nil, err
	}
	return results, nil
}
