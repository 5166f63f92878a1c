// Package gcal is a typed client for the Google Calendar v3 events API.
package gcal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/heth-labs/voicegate/pkg/gateway/tools/safety"
)

type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type Attendee struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	Response    string `json:"responseStatus,omitempty"`
}

type Event struct {
	ID          string     `json:"id,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Start       *EventTime `json:"start,omitempty"`
	End         *EventTime `json:"end,omitempty"`
	Attendees   []Attendee `json:"attendees,omitempty"`
	HangoutLink string     `json:"hangoutLink,omitempty"`
	Status      string     `json:"status,omitempty"`
}

// StartsAt parses whichever time field the event carries. All-day events
// come back at midnight local.
func (e *Event) StartsAt() time.Time {
	if e.Start == nil {
		return time.Time{}
	}
	if e.Start.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, e.Start.DateTime); err == nil {
			return t
		}
	}
	if e.Start.Date != "" {
		if t, err := time.Parse("2006-01-02", e.Start.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}

type Client struct {
	baseURL    string
	token      string
	calendarID string
	httpClient *http.Client
}

// New builds a client against the given API base. calendarID is usually the
// account's primary calendar address.
func New(baseURL, accessToken, calendarID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	if baseURL == "" {
		baseURL = "https://www.googleapis.com/calendar/v3"
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      strings.TrimSpace(accessToken),
		calendarID: calendarID,
		httpClient: httpClient,
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.token != ""
}

// Events lists events in [from, from+days), expanded and ordered by start.
// query optionally restricts by free-text match.
func (c *Client) Events(ctx context.Context, from time.Time, days int, query string) ([]Event, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("calendar access token is not configured")
	}
	if days <= 0 {
		days = 1
	}
	q := url.Values{}
	q.Set("timeMin", from.Format(time.RFC3339))
	q.Set("timeMax", from.AddDate(0, 0, days).Format(time.RFC3339))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")
	q.Set("maxResults", "50")
	if query != "" {
		q.Set("q", query)
	}

	var page struct {
		Items []Event `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, c.eventsPath()+"?"+q.Encode(), nil, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Get fetches one event by ID.
func (c *Client) Get(ctx context.Context, id string) (*Event, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("calendar access token is not configured")
	}
	var event Event
	if err := c.do(ctx, http.MethodGet, c.eventsPath()+"/"+url.PathEscape(id), nil, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// Create inserts an event, emailing any attendees.
func (c *Client) Create(ctx context.Context, event Event) (*Event, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("calendar access token is not configured")
	}
	var created Event
	if err := c.do(ctx, http.MethodPost, c.eventsPath()+"?sendUpdates=all", event, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update patches the named fields of an existing event.
func (c *Client) Update(ctx context.Context, id string, patch Event) error {
	if !c.Configured() {
		return fmt.Errorf("calendar access token is not configured")
	}
	return c.do(ctx, http.MethodPatch, c.eventsPath()+"/"+url.PathEscape(id)+"?sendUpdates=all", patch, nil)
}

// Delete removes an event, notifying attendees.
func (c *Client) Delete(ctx context.Context, id string) error {
	if !c.Configured() {
		return fmt.Errorf("calendar access token is not configured")
	}
	return c.do(ctx, http.MethodDelete, c.eventsPath()+"/"+url.PathEscape(id)+"?sendUpdates=all", nil, nil)
}

func (c *Client) eventsPath() string {
	return "/calendars/" + url.PathEscape(c.calendarID) + "/events"
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
		return fmt.Errorf("calendar error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return safety.DecodeJSONLimited(resp, safety.MaxResponseBytes, out)
}
