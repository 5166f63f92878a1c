// Package twilio covers the slice of the Twilio voice surface the gateway
// uses: placing outbound calls, rendering TwiML, and minting browser access
// tokens.
package twilio

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
	accountSID string
	authToken  string
	httpClient *http.Client
}

func NewClient(baseURL, accountSID, authToken string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if baseURL == "" {
		baseURL = "https://api.twilio.com"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		accountSID: accountSID,
		authToken:  authToken,
		httpClient: httpClient,
	}
}

// Call is the subset of the Twilio call resource the gateway reads back.
type Call struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
	To     string `json:"to"`
	From   string `json:"from"`
}

// CreateCall places an outbound call that runs the given TwiML when answered.
func (c *Client) CreateCall(ctx context.Context, from, to, twiml string) (*Call, error) {
	if strings.TrimSpace(to) == "" {
		return nil, fmt.Errorf("missing destination number")
	}
	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Twiml", twiml)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", c.baseURL, url.PathEscape(c.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := safety.ReadBodyLimited(resp, 4096)
		return nil, fmt.Errorf("twilio error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var call Call
	if err := safety.DecodeJSONLimited(resp, safety.MaxResponseBytes, &call); err != nil {
		return nil, err
	}
	return &call, nil
}
