package calls

import (
	"log/slog"
	"time"
)

// Finalizer performs end-of-call bookkeeping for the relay: history entry,
// slot release, transcript persistence, and the detached summarization task.
type Finalizer struct {
	Gate          *Gate
	History       *HistoryStore
	TranscriptDir string
	Summarize     SummarizeFunc
	Logger        *slog.Logger
}

// Finalize runs once, when the downstream connection closes.
func (f *Finalizer) Finalize(caller string, start, end time.Time, transcript *Transcript) {
	if f == nil {
		return
	}
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}

	duration := int(end.Sub(start).Seconds())
	lines := 0
	if transcript != nil {
		lines = transcript.Len()
	}
	if f.History != nil {
		f.History.Append(HistoryEntry{
			Timestamp:       end,
			Duration:        duration,
			Caller:          caller,
			TranscriptLines: lines,
		})
	}
	logger.Info("call recorded", "caller", caller, "duration_s", duration, "transcript_lines", lines)

	if f.Gate != nil {
		f.Gate.Release()
	}

	if transcript == nil || transcript.Len() == 0 {
		return
	}
	path, err := WriteTranscript(f.TranscriptDir, start, transcript)
	if err != nil {
		logger.Error("transcript save failed", "error", err)
		return
	}
	logger.Info("transcript saved", "path", path)
	FireSummarizer(logger, f.Summarize, path)
}
