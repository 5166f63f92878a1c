// Package mode implements the two-profile conversation mode state machine.
// Modes only change in response to keyword cues in the caller transcript.
package mode

import (
	"strings"
	"time"
)

type Mode string

const (
	Standup    Mode = "standup"
	Reflective Mode = "reflective"
)

// Profile carries the turn-detection silence window and the transition
// announcement spoken when the relay switches into the mode.
type Profile struct {
	Name            Mode
	SilenceDuration time.Duration
	Announcement    string
}

var profiles = map[Mode]Profile{
	Standup: {
		Name:            Standup,
		SilenceDuration: 900 * time.Millisecond,
		Announcement:    "Switching to standup mode. Quick and responsive.",
	},
	Reflective: {
		Name:            Reflective,
		SilenceDuration: 2500 * time.Millisecond,
		Announcement:    "Switching to reflective mode. I'll give you more space to think.",
	},
}

// SilenceMS is the turn-detection silence window in milliseconds, the unit
// the realtime session speaks.
func (p Profile) SilenceMS() int {
	return int(p.SilenceDuration / time.Millisecond)
}

// ProfileFor returns the profile for a mode, defaulting to standup.
func ProfileFor(m Mode) Profile {
	if p, ok := profiles[m]; ok {
		return p
	}
	return profiles[Standup]
}

var reflectiveCues = []string{
	"slow down", "slow it down", "reflective", "let me think", "give me a moment",
	"give me a minute", "mellow mode", "reflective mode", "thinking mode", "take it slow",
	"be more patient", "more time to think", "brainstorm", "let's think", "stop interrupt",
	"quit interrupt", "don't interrupt", "let me finish", "hold on", "wait a sec",
}

var standupCues = []string{
	"standup mode", "speed up", "quick mode", "back to normal", "fast mode",
	"let's move", "pick up the pace",
}

// Detect scans a caller transcript line for mode cues and returns the new mode
// and true on a change. The reflective cue list is scanned first, so a line
// containing cues for both sets always lands in reflective. Switching to the
// current mode is reported as no change.
func Detect(line string, current Mode) (Mode, bool) {
	lower := strings.ToLower(line)
	if current != Reflective {
		for _, cue := range reflectiveCues {
			if strings.Contains(lower, cue) {
				return Reflective, true
			}
		}
	}
	if current != Standup {
		for _, cue := range standupCues {
			if strings.Contains(lower, cue) {
				return Standup, true
			}
		}
	}
	return current, false
}
