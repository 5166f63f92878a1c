// Package gmail is a typed client for the Gmail v1 messages API, covering the
// narrow surface the voice tools need: search, read one message, and send.
package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/heth-labs/voicegate/pkg/gateway/tools/safety"
)

type Summary struct {
	ID      string
	From    string
	Subject string
	Date    string
	Snippet string
}

type Message struct {
	Summary
	Body string
}

type Client struct {
	baseURL    string
	token      string
	account    string
	httpClient *http.Client
}

func New(baseURL, accessToken, account string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	if baseURL == "" {
		baseURL = "https://gmail.googleapis.com/gmail/v1"
	}
	if account == "" {
		account = "me"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      strings.TrimSpace(accessToken),
		account:    account,
		httpClient: httpClient,
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.token != ""
}

// Search runs a Gmail query and resolves each hit's headers and snippet.
func (c *Client) Search(ctx context.Context, query string, max int) ([]Summary, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("gmail access token is not configured")
	}
	if max <= 0 || max > 25 {
		max = 10
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("maxResults", fmt.Sprint(max))

	var page struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, c.messagesPath()+"?"+q.Encode(), nil, &page); err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(page.Messages))
	for _, hit := range page.Messages {
		msg, err := c.fetch(ctx, hit.ID, "metadata")
		if err != nil {
			return summaries, err
		}
		summaries = append(summaries, msg.Summary)
	}
	return summaries, nil
}

// Get fetches one message with its plain-text body.
func (c *Client) Get(ctx context.Context, id string) (*Message, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("gmail access token is not configured")
	}
	return c.fetch(ctx, id, "full")
}

// Send delivers a plain-text message from the configured account.
func (c *Client) Send(ctx context.Context, to, subject, body string) error {
	if !c.Configured() {
		return fmt.Errorf("gmail access token is not configured")
	}
	var raw strings.Builder
	fmt.Fprintf(&raw, "To: %s\r\n", to)
	fmt.Fprintf(&raw, "Subject: %s\r\n", subject)
	raw.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	raw.WriteString("\r\n")
	raw.WriteString(body)

	payload := map[string]string{
		"raw": base64.URLEncoding.EncodeToString([]byte(raw.String())),
	}
	return c.do(ctx, http.MethodPost, c.messagesPath()+"/send", payload, nil)
}

func (c *Client) fetch(ctx context.Context, id, format string) (*Message, error) {
	q := url.Values{}
	q.Set("format", format)
	if format == "metadata" {
		q["metadataHeaders"] = []string{"From", "Subject", "Date"}
	}

	var raw struct {
		ID      string  `json:"id"`
		Snippet string  `json:"snippet"`
		Payload payload `json:"payload"`
	}
	path := c.messagesPath() + "/" + url.PathEscape(id) + "?" + q.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}

	msg := &Message{Summary: Summary{ID: raw.ID, Snippet: raw.Snippet}}
	for _, h := range raw.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "from":
			msg.From = h.Value
		case "subject":
			msg.Subject = h.Value
		case "date":
			msg.Date = h.Value
		}
	}
	msg.Body = raw.Payload.plainText()
	return msg, nil
}

type payload struct {
	MimeType string `json:"mimeType"`
	Headers  []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"headers"`
	Body struct {
		Data string `json:"data"`
	} `json:"body"`
	Parts []payload `json:"parts"`
}

// plainText walks the MIME tree for the first text/plain part.
func (p *payload) plainText() string {
	if strings.HasPrefix(p.MimeType, "text/plain") && p.Body.Data != "" {
		if b, err := base64.URLEncoding.DecodeString(p.Body.Data); err == nil {
			return string(b)
		}
	}
	for i := range p.Parts {
		if text := p.Parts[i].plainText(); text != "" {
			return text
		}
	}
	return ""
}

func (c *Client) messagesPath() string {
	return "/users/" + url.PathEscape(c.account) + "/messages"
}

func (c *Client) do(ctx context.Context, method, pathAndQuery string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+pathAndQuery, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := safety.ReadBodyLimited(resp, 4096)
		return fmt.Errorf("gmail error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return safety.DecodeJSONLimited(resp, safety.MaxResponseBytes, out)
}
