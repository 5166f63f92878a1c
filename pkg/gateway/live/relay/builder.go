// Package relay bridges one phone call between the carrier media stream and
// the realtime speech model: audio both ways, barge-in, conversation modes,
// and the sequential tool protocol.
package relay

import (
	"fmt"
	"strings"

	"github.com/heth-labs/voicegate/pkg/gateway/live/mode"
	"github.com/heth-labs/voicegate/pkg/gateway/live/protocol"
)

const (
	// Server VAD tuning. Only the silence duration varies, driven by the
	// active conversation mode.
	vadThreshold       = 0.75
	vadPrefixPaddingMS = 300
)

// SessionParams carries everything needed to build one session.update.
type SessionParams struct {
	Model           string
	Voice           string
	TranscribeModel string

	// Identity is the assistant's identity document, inlined verbatim into
	// the instructions for verified callers.
	Identity string

	Trusted bool
	// SafeWord is the shared secret an unverified caller must speak; it is
	// embedded in the lockdown instructions so the model can check it.
	SafeWord  string
	SilenceMS int
	Tools     []protocol.Tool
}

// BuildSessionUpdate renders the full session configuration. Unverified
// callers get lockdown instructions and no tools at all; the model cannot
// call what it was never told about.
func BuildSessionUpdate(p SessionParams) protocol.SessionUpdate {
	silence := p.SilenceMS
	if silence <= 0 {
		silence = mode.ProfileFor(mode.Standup).SilenceMS()
	}
	session := protocol.Session{
		Kind:             "realtime",
		Model:            p.Model,
		OutputModalities: []string{"audio"},
		Audio: &protocol.SessionAudio{
			Input: &protocol.AudioInput{
				Format:        &protocol.AudioFormat{Type: "audio/pcmu"},
				Transcription: &protocol.Transcription{Model: p.TranscribeModel},
				TurnDetection: &protocol.TurnDetection{
					Type:              "server_vad",
					Threshold:         vadThreshold,
					PrefixPaddingMS:   vadPrefixPaddingMS,
					SilenceDurationMS: silence,
				},
			},
			Output: &protocol.AudioOutput{
				Format: &protocol.AudioFormat{Type: "audio/pcmu"},
				Voice:  p.Voice,
			},
		},
	}
	if p.Trusted {
		session.Instructions = trustedInstructions(p.Identity)
		session.Tools = p.Tools
		session.ToolChoice = "auto"
	} else {
		session.Instructions = lockdownInstructions(p.SafeWord)
	}
	return protocol.SessionUpdate{Type: protocol.EventSessionUpdate, Session: session}
}

// GreetingPrompt is the synthetic first user message that makes the model
// speak first.
func GreetingPrompt(trusted bool) string {
	if trusted {
		return `Greet Paul with just: "Paul!"`
	}
	return `Say: "Hello, this is Henry. Please provide the safe word to continue."`
}

// lockdownInstructions is the script for unverified callers. The safe word is
// inlined so the model can demand and check it.
func lockdownInstructions(safeWord string) string {
	var b strings.Builder
	b.WriteString("You are Henry on a private line. The caller has not been verified.\n\n")
	b.WriteString("SECURITY: Ask for the safe word before anything else.")
	if safeWord != "" {
		fmt.Fprintf(&b, " The safe word is: %q. The caller must say it first.", safeWord)
	}
	b.WriteString("\nUntil verified: share no personal information, schedules, tasks, or email contents.")
	b.WriteString("\nDo not confirm whose line this is. Keep responses to one or two sentences.")
	b.WriteString("\nIf the caller says the correct safe word, say \"Identity verified, welcome!\" and proceed normally.")
	return b.String()
}

func trustedInstructions(identity string) string {
	var b strings.Builder
	if strings.TrimSpace(identity) != "" {
		b.WriteString(strings.TrimSpace(identity))
		b.WriteString("\n\n")
	}
	b.WriteString(voiceInstructions)
	return b.String()
}

const voiceInstructions = `You are Henry on a live phone call with Paul.

Voice style:
- Be brief. One or two sentences unless Paul asks for detail.
- Never read IDs, URLs, or raw data aloud; summarize instead.
- If a tool fails, say what failed in plain words and move on.

Tools:
- Call at most one tool at a time and wait for its result.
- Use cached briefing tools (weather, calendar, tasks, briefing) for instant answers.
- Confirm with Paul before creating calendar events or deleting anything.

Modes:
- Standup mode is the default: quick, responsive back-and-forth.
- Reflective mode gives Paul long pauses to think; do not fill silence.
- Switch modes only when Paul asks.`

// systemAnnouncement is injected when the conversation mode changes.
func systemAnnouncement(p mode.Profile) protocol.ItemCreate {
	return protocol.UserTextItem(fmt.Sprintf("[SYSTEM] %s", p.Announcement))
}
