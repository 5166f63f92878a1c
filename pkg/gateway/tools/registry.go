// Package tools implements the closed tool catalog the realtime model may
// invoke and the registry that executes it. Execute never propagates errors:
// every failure becomes a bounded human-readable string so the model can
// narrate it to the caller.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// MaxErrorChars bounds every failure string returned to the model.
const MaxErrorChars = 300

// AttributionLabel tags live writes in external systems for audit purposes.
const AttributionLabel = "VoiceHenry"

// Args is the decoded JSON argument record of one tool call.
type Args map[string]any

func (a Args) String(key string) string {
	v, _ := a[key].(string)
	return v
}

func (a Args) StringOr(key, fallback string) string {
	if v := strings.TrimSpace(a.String(key)); v != "" {
		return v
	}
	return fallback
}

// Int reads a numeric argument; JSON numbers decode as float64.
func (a Args) Int(key string) (int, bool) {
	switch v := a[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

func (a Args) IntOr(key string, fallback int) int {
	if v, ok := a.Int(key); ok {
		return v
	}
	return fallback
}

func (a Args) Bool(key string) bool {
	v, _ := a[key].(bool)
	return v
}

// Executor runs one tool. Implementations return an error; conversion to a
// bounded string happens once, at the registry boundary.
type Executor struct {
	Name    string
	Timeout time.Duration
	Run     func(ctx context.Context, args Args) (string, error)
}

// Registry is the validated string-keyed dispatch table for the catalog.
type Registry struct {
	byName map[string]Executor
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger, executors ...Executor) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{byName: make(map[string]Executor, len(executors)), logger: logger}
	for _, ex := range executors {
		if strings.TrimSpace(ex.Name) == "" || ex.Run == nil {
			continue
		}
		r.byName[ex.Name] = ex
	}
	return r
}

// ValidateCatalog checks the registry covers exactly the published catalog.
// Run at startup; any drift between catalog and registry is a config error.
func (r *Registry) ValidateCatalog() error {
	published := CatalogNames()
	want := make(map[string]struct{}, len(published))
	for _, name := range published {
		want[name] = struct{}{}
		if _, ok := r.byName[name]; !ok {
			return fmt.Errorf("catalog tool %q has no registered executor", name)
		}
	}
	extra := make([]string, 0)
	for name := range r.byName {
		if _, ok := want[name]; !ok {
			extra = append(extra, name)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return fmt.Errorf("registered executors not in catalog: %s", strings.Join(extra, ", "))
	}
	return nil
}

// Execute dispatches one tool call. It always returns a usable string: tool
// failures, timeouts, panics, and unknown names all come back as bounded text.
func (r *Registry) Execute(ctx context.Context, name string, args Args) (result string) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("tool panic", "tool", name, "panic", v)
			result = Truncate(fmt.Sprintf("Error: tool %s failed unexpectedly", name), MaxErrorChars)
		}
	}()

	ex, ok := r.byName[name]
	if !ok {
		return "Unknown tool: " + name
	}
	if args == nil {
		args = Args{}
	}

	timeout := ex.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	toolCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	out, err := ex.Run(toolCtx, args)
	if err != nil {
		r.logger.Warn("tool failed", "tool", name, "duration_ms", time.Since(started).Milliseconds(), "error", err)
		return Truncate("Error: "+err.Error(), MaxErrorChars)
	}
	r.logger.Info("tool ok", "tool", name, "duration_ms", time.Since(started).Milliseconds())
	if strings.TrimSpace(out) == "" {
		return "Done."
	}
	return out
}

// Truncate bounds a string for the voice channel, marking the cut.
func Truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && (s[cut]&0xC0) == 0x80 {
		cut--
	}
	return s[:cut] + "…"
}
