// Package toodledo is a typed client for the Toodledo task API, replacing the
// per-call helper scripts the voice gateway previously shelled out to.
package toodledo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/heth-labs/voicegate/pkg/gateway/tools/safety"
)

// Priority values as Toodledo encodes them.
const (
	PriorityLow    = 1
	PriorityMedium = 2
	PriorityHigh   = 3
)

// PriorityFromName maps the spoken priority names, defaulting to medium.
func PriorityFromName(name string) int {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "low":
		return PriorityLow
	case "high":
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

func PriorityName(p int) string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	default:
		return "medium"
	}
}

type Task struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	DueDate   int64  `json:"duedate"`
	Priority  int    `json:"priority"`
	Tag       string `json:"tag"`
	Note      string `json:"note"`
	Folder    int64  `json:"folder"`
	Context   int64  `json:"context"`
	Completed int64  `json:"completed"`
	Added     int64  `json:"added"`
}

// Fields is a partial task edit. Nil members are left untouched.
type Fields struct {
	DueDate   *int64
	Priority  *int
	Tag       *string
	Completed *int64
	Context   *int64
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL, accessToken string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      strings.TrimSpace(accessToken),
		httpClient: httpClient,
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.token != ""
}

const taskFields = "duedate,priority,folder,tag,note,context,added"

// Get fetches one task by ID.
func (c *Client) Get(ctx context.Context, id int64) (*Task, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("toodledo access token is not configured")
	}
	q := url.Values{}
	q.Set("f", "json")
	q.Set("access_token", c.token)
	q.Set("id", fmt.Sprint(id))
	q.Set("fields", taskFields)

	tasks, err := c.getTasks(ctx, "/3/tasks/get.php?"+q.Encode())
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if tasks[i].ID == id {
			return &tasks[i], nil
		}
	}
	return nil, fmt.Errorf("task %d not found", id)
}

// Search fetches incomplete tasks and filters titles by a case-insensitive
// keyword match. Voice dictation garbles titles, so a substring scan beats
// exact matching here.
func (c *Client) Search(ctx context.Context, query string) ([]Task, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("toodledo access token is not configured")
	}
	q := url.Values{}
	q.Set("f", "json")
	q.Set("access_token", c.token)
	q.Set("comp", "0")
	q.Set("fields", taskFields)

	tasks, err := c.getTasks(ctx, "/3/tasks/get.php?"+q.Encode())
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	matched := tasks[:0]
	for _, task := range tasks {
		if needle == "" || strings.Contains(strings.ToLower(task.Title), needle) {
			matched = append(matched, task)
		}
	}
	return matched, nil
}

// Triage returns the next candidates for triage: oldest first, skipping tasks
// already carrying a triaged tag.
func (c *Client) Triage(ctx context.Context, count int) ([]Task, error) {
	if count <= 0 {
		count = 10
	}
	tasks, err := c.Search(ctx, "")
	if err != nil {
		return nil, err
	}
	candidates := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		if HasTriagedTag(task.Tag) {
			continue
		}
		candidates = append(candidates, task)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Added < candidates[j].Added })
	if len(candidates) > count {
		candidates = candidates[:count]
	}
	return candidates, nil
}

// Edit applies a partial update to one task.
func (c *Client) Edit(ctx context.Context, id int64, fields Fields) error {
	if !c.Configured() {
		return fmt.Errorf("toodledo access token is not configured")
	}
	patch := map[string]any{"id": id}
	if fields.DueDate != nil {
		patch["duedate"] = *fields.DueDate
	}
	if fields.Priority != nil {
		patch["priority"] = *fields.Priority
	}
	if fields.Tag != nil {
		patch["tag"] = *fields.Tag
	}
	if fields.Completed != nil {
		patch["completed"] = *fields.Completed
	}
	if fields.Context != nil {
		patch["context"] = *fields.Context
	}
	body, err := json.Marshal([]map[string]any{patch})
	if err != nil {
		return fmt.Errorf("encode edit: %w", err)
	}

	form := url.Values{}
	form.Set("f", "json")
	form.Set("access_token", c.token)
	form.Set("tasks", string(body))
	_, err = c.postTasks(ctx, "/3/tasks/edit.php", form)
	return err
}

// Add creates a task and returns it.
func (c *Client) Add(ctx context.Context, title, folder string, priority int, dueDate int64, star bool, note string) (*Task, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("toodledo access token is not configured")
	}
	task := map[string]any{"title": title, "priority": priority}
	if folder != "" {
		task["foldername"] = folder
	}
	if dueDate > 0 {
		task["duedate"] = dueDate
	}
	if star {
		task["star"] = 1
	}
	if note != "" {
		task["note"] = note
	}
	body, err := json.Marshal([]map[string]any{task})
	if err != nil {
		return nil, fmt.Errorf("encode add: %w", err)
	}

	form := url.Values{}
	form.Set("f", "json")
	form.Set("access_token", c.token)
	form.Set("tasks", string(body))
	created, err := c.postTasks(ctx, "/3/tasks/add.php", form)
	if err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("add returned no task")
	}
	return &created[0], nil
}

// AppendNote appends attributed text to a task's note, preserving history.
func (c *Client) AppendNote(ctx context.Context, id int64, text, attribution string) error {
	task, err := c.Get(ctx, id)
	if err != nil {
		return err
	}
	stamp := time.Now().UTC().Format("2006-01-02")
	entry := fmt.Sprintf("[%s %s] %s", attribution, stamp, text)
	note := strings.TrimRight(task.Note, "\n")
	if note != "" {
		note += "\n\n"
	}
	note += entry

	form := url.Values{}
	form.Set("f", "json")
	form.Set("access_token", c.token)
	body, err := json.Marshal([]map[string]any{{"id": id, "note": note}})
	if err != nil {
		return fmt.Errorf("encode note edit: %w", err)
	}
	form.Set("tasks", string(body))
	_, err = c.postTasks(ctx, "/3/tasks/edit.php", form)
	return err
}

func (c *Client) getTasks(ctx context.Context, pathAndQuery string) ([]Task, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathAndQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.doTasks(req)
}

func (c *Client) postTasks(ctx context.Context, path string, form url.Values) ([]Task, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.doTasks(req)
}

// doTasks handles Toodledo's response quirk: the task endpoints return an
// array whose first element may be a summary record rather than a task.
func (c *Client) doTasks(req *http.Request) ([]Task, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := safety.ReadBodyLimited(resp, 4096)
		return nil, fmt.Errorf("toodledo error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var raw []json.RawMessage
	if err := safety.DecodeJSONLimited(resp, safety.MaxResponseBytes, &raw); err != nil {
		return nil, err
	}
	tasks := make([]Task, 0, len(raw))
	for _, item := range raw {
		var task Task
		if err := json.Unmarshal(item, &task); err != nil {
			continue
		}
		if task.ID == 0 {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// MergeTags unions comma-separated tag lists, preserving existing order.
func MergeTags(existing string, added ...string) string {
	seen := make(map[string]struct{})
	merged := make([]string, 0, len(added)+4)
	push := func(tag string) {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		merged = append(merged, tag)
	}
	for _, tag := range strings.Split(existing, ",") {
		push(tag)
	}
	for _, tag := range added {
		push(tag)
	}
	return strings.Join(merged, ", ")
}

// TriagedTag returns the dated triage marker, e.g. "triaged-0830".
func TriagedTag(now time.Time) string {
	return "triaged-" + now.Format("0102")
}

// HasTriagedTag reports whether a tag list already carries a triage marker.
func HasTriagedTag(tags string) bool {
	for _, tag := range strings.Split(tags, ",") {
		if strings.HasPrefix(strings.TrimSpace(strings.ToLower(tag)), "triaged-") {
			return true
		}
	}
	return false
}
