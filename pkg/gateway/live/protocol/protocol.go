// Package protocol defines the two JSON wire formats the relay speaks: the
// carrier media-stream framing on the downstream socket and the realtime model
// event protocol on the upstream socket.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badFrame(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_frame", Message: message, Param: param}
}

// ── Downstream: carrier media-stream frames ─────────────────────────────────

const (
	StreamEventStart = "start"
	StreamEventMedia = "media"
	StreamEventStop  = "stop"
	StreamEventClear = "clear"
)

// StreamFrame is one JSON frame on the media-stream socket, both directions.
// Inbound frames carry start/media/stop; outbound frames carry media/clear.
type StreamFrame struct {
	Event     string        `json:"event"`
	StreamSID string        `json:"streamSid,omitempty"`
	Start     *StreamStart  `json:"start,omitempty"`
	Media     *MediaPayload `json:"media,omitempty"`
}

type StreamStart struct {
	StreamSID        string            `json:"streamSid"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

// MediaPayload carries one base64-encoded G.711 μ-law frame.
type MediaPayload struct {
	Payload string `json:"payload"`
}

// DecodeStreamFrame parses an inbound media-stream frame. One bad frame must
// never terminate the call, so callers log the returned error and move on.
func DecodeStreamFrame(data []byte) (StreamFrame, error) {
	var frame StreamFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return StreamFrame{}, badFrame("invalid media-stream JSON", "")
	}
	switch frame.Event {
	case StreamEventStart:
		if frame.Start == nil || strings.TrimSpace(frame.Start.StreamSID) == "" {
			return StreamFrame{}, badFrame("start frame is missing streamSid", "start.streamSid")
		}
	case StreamEventMedia:
		if frame.Media == nil {
			return StreamFrame{}, badFrame("media frame is missing payload", "media.payload")
		}
	case StreamEventStop, "mark", "connected", "dtmf":
	case "":
		return StreamFrame{}, badFrame("frame is missing event", "event")
	default:
		return StreamFrame{}, badFrame(fmt.Sprintf("unknown stream event %q", frame.Event), "event")
	}
	return frame, nil
}

// MediaFrame builds an outbound audio frame tagged with the active stream.
func MediaFrame(streamSID, payloadB64 string) StreamFrame {
	return StreamFrame{
		Event:     StreamEventMedia,
		StreamSID: streamSID,
		Media:     &MediaPayload{Payload: payloadB64},
	}
}

// ClearFrame instructs the carrier to discard queued playback immediately.
func ClearFrame(streamSID string) StreamFrame {
	return StreamFrame{Event: StreamEventClear, StreamSID: streamSID}
}

// ── Upstream: realtime model events ─────────────────────────────────────────

const (
	EventSessionUpdate     = "session.update"
	EventAudioAppend       = "input_audio_buffer.append"
	EventItemCreate        = "conversation.item.create"
	EventResponseCreate    = "response.create"
	EventResponseCancel    = "response.cancel"
	EventAudioDelta        = "response.output_audio.delta"
	EventAudioDeltaLegacy  = "response.audio.delta"
	EventResponseDone      = "response.done"
	EventSpeechStarted     = "input_audio_buffer.speech_started"
	EventCallerTranscript  = "conversation.item.input_audio_transcription.completed"
	EventModelTranscript   = "response.output_audio_transcript.done"
	EventModelTranscriptV0 = "response.audio_transcript.done"
	EventFunctionCallDone  = "response.function_call_arguments.done"
	EventError             = "error"
)

// ModelEvent is the envelope for every upstream event the relay consumes.
// Unrecognized types decode cleanly and are ignored by the event loop.
type ModelEvent struct {
	Type       string      `json:"type"`
	Delta      string      `json:"delta,omitempty"`
	Transcript string      `json:"transcript,omitempty"`
	Name       string      `json:"name,omitempty"`
	Arguments  string      `json:"arguments,omitempty"`
	CallID     string      `json:"call_id,omitempty"`
	Error      *ModelError `json:"error,omitempty"`
}

type ModelError struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func DecodeModelEvent(data []byte) (ModelEvent, error) {
	var event ModelEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return ModelEvent{}, badFrame("invalid realtime event JSON", "")
	}
	if strings.TrimSpace(event.Type) == "" {
		return ModelEvent{}, badFrame("realtime event is missing type", "type")
	}
	return event, nil
}

// IsAudioDelta reports whether the event carries assistant audio, accepting
// both the current and the legacy event names.
func (e ModelEvent) IsAudioDelta() bool {
	return (e.Type == EventAudioDelta || e.Type == EventAudioDeltaLegacy) && e.Delta != ""
}

// IsModelTranscript reports a completed assistant-utterance transcript.
func (e ModelEvent) IsModelTranscript() bool {
	return e.Type == EventModelTranscript || e.Type == EventModelTranscriptV0
}

// ── Upstream: client events the relay sends ─────────────────────────────────

type SessionUpdate struct {
	Type    string  `json:"type"`
	Session Session `json:"session"`
}

type Session struct {
	Kind             string        `json:"type,omitempty"`
	Model            string        `json:"model,omitempty"`
	OutputModalities []string      `json:"output_modalities,omitempty"`
	Audio            *SessionAudio `json:"audio,omitempty"`
	Instructions     string        `json:"instructions,omitempty"`
	Tools            []Tool        `json:"tools,omitempty"`
	ToolChoice       string        `json:"tool_choice,omitempty"`
}

type SessionAudio struct {
	Input  *AudioInput  `json:"input,omitempty"`
	Output *AudioOutput `json:"output,omitempty"`
}

type AudioInput struct {
	Format        *AudioFormat   `json:"format,omitempty"`
	Transcription *Transcription `json:"transcription,omitempty"`
	TurnDetection *TurnDetection `json:"turn_detection,omitempty"`
}

type AudioOutput struct {
	Format *AudioFormat `json:"format,omitempty"`
	Voice  string       `json:"voice,omitempty"`
}

type AudioFormat struct {
	Type string `json:"type"`
}

type Transcription struct {
	Model string `json:"model"`
}

// TurnDetection carries the server VAD parameters. Only SilenceDurationMS
// varies at runtime; it is driven by the active conversation mode.
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMS   int     `json:"prefix_padding_ms"`
	SilenceDurationMS int     `json:"silence_duration_ms"`
}

type Tool struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  ToolParameters `json:"parameters"`
}

type ToolParameters struct {
	Type       string                  `json:"type"`
	Properties map[string]ToolProperty `json:"properties"`
	Required   []string                `json:"required,omitempty"`
}

type ToolProperty struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

type AudioAppend struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

func AppendAudio(payloadB64 string) AudioAppend {
	return AudioAppend{Type: EventAudioAppend, Audio: payloadB64}
}

type ItemCreate struct {
	Type string `json:"type"`
	Item Item   `json:"item"`
}

type Item struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []ItemContent `json:"content,omitempty"`
	CallID  string        `json:"call_id,omitempty"`
	Output  string        `json:"output,omitempty"`
}

type ItemContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// UserTextItem builds a synthetic user message, used for greetings and mode
// transition announcements.
func UserTextItem(text string) ItemCreate {
	return ItemCreate{
		Type: EventItemCreate,
		Item: Item{
			Type:    "message",
			Role:    "user",
			Content: []ItemContent{{Type: "input_text", Text: text}},
		},
	}
}

// FunctionOutputItem correlates a tool result back to its originating call.
func FunctionOutputItem(callID, output string) ItemCreate {
	return ItemCreate{
		Type: EventItemCreate,
		Item: Item{Type: "function_call_output", CallID: callID, Output: output},
	}
}

type ResponseCreate struct {
	Type string `json:"type"`
}

func NewResponse() ResponseCreate {
	return ResponseCreate{Type: EventResponseCreate}
}

type ResponseCancel struct {
	Type string `json:"type"`
}

func CancelResponse() ResponseCancel {
	return ResponseCancel{Type: EventResponseCancel}
}
