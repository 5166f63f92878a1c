package calls

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	SpeakerCaller    = "CALLER"
	SpeakerAssistant = "HENRY"
)

// TranscriptLine is one speaker-tagged utterance, in arrival order.
type TranscriptLine struct {
	Speaker string
	Text    string
}

// Transcript accumulates the lines of one call. The relay's event loop
// writes; finalization and the status endpoint read, so access is locked.
type Transcript struct {
	mu    sync.Mutex
	lines []TranscriptLine
}

func (t *Transcript) Append(speaker, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, TranscriptLine{Speaker: speaker, Text: text})
}

func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lines)
}

func (t *Transcript) Lines() []TranscriptLine {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]TranscriptLine(nil), t.lines...)
}

// Render produces the persisted form, one "[SPEAKER] text" line per utterance.
func (t *Transcript) Render() string {
	var b strings.Builder
	for i, line := range t.Lines() {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s] %s", line.Speaker, line.Text)
	}
	return b.String()
}

// WriteTranscript persists a non-empty transcript to a per-call text file
// named by the call start time. It returns the written path.
func WriteTranscript(dir string, start time.Time, t *Transcript) (string, error) {
	if t == nil || t.Len() == 0 {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create transcript dir: %w", err)
	}
	name := TranscriptStamp(start) + ".txt"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(t.Render()), 0o644); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	return path, nil
}

// TranscriptStamp formats a timestamp the way transcript files are named,
// an RFC 3339 second-resolution stamp with filesystem-safe separators.
func TranscriptStamp(ts time.Time) string {
	s := ts.UTC().Format("2006-01-02T15:04:05")
	return strings.ReplaceAll(s, ":", "-")
}

// SummarizeFunc is the post-call summarization hook. It runs detached from
// relay teardown with its own deadline and failure isolation.
type SummarizeFunc func(ctx context.Context, transcriptPath string) error

// FireSummarizer launches the summarization task and returns immediately.
// Teardown never awaits it; failures are logged and swallowed.
func FireSummarizer(logger *slog.Logger, fn SummarizeFunc, transcriptPath string) {
	if fn == nil || transcriptPath == "" {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	go func() {
		defer func() {
			if v := recover(); v != nil {
				logger.Error("summarizer panic", "panic", v)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := fn(ctx, transcriptPath); err != nil {
			logger.Warn("summarizer failed", "path", transcriptPath, "error", err)
		}
	}()
}
