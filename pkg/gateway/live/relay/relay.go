package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/heth-labs/voicegate/pkg/gateway/live/calls"
	"github.com/heth-labs/voicegate/pkg/gateway/live/mode"
	"github.com/heth-labs/voicegate/pkg/gateway/live/protocol"
	"github.com/heth-labs/voicegate/pkg/gateway/tools"
)

// Socket is the websocket surface the relay uses, satisfied by
// *websocket.Conn and by in-process fakes in tests.
type Socket interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Config is the per-call relay configuration.
type Config struct {
	Model           string
	Voice           string
	TranscribeModel string
	Identity        string

	// TrustedNumber is the one caller number that gets the full session.
	// Anyone else runs locked down until they speak the safe word.
	TrustedNumber string
	SafeWord      string

	WriteTimeout time.Duration
	Logger       *slog.Logger
}

// Relay drives one call. All socket writes happen on the Run goroutine;
// reader goroutines only feed channels.
type Relay struct {
	cfg      Config
	down     Socket
	up       Socket
	registry *tools.Registry

	transcript *calls.Transcript

	// OnStreamStart fires once when the carrier confirms media is flowing.
	OnStreamStart func(streamSID, caller string)

	streamSID  string
	caller     string
	trusted    bool
	mode       mode.Mode
	isSpeaking bool
	upDead     bool

	// Sequential tool protocol: one in flight, the rest queued in order.
	toolBusy    bool
	toolQueue   []protocol.ModelEvent
	toolResults chan toolResult

	logger *slog.Logger
}

func New(cfg Config, down, up Socket, registry *tools.Registry) *Relay {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		cfg:        cfg,
		down:       down,
		up:         up,
		registry:   registry,
		transcript: &calls.Transcript{},
		mode:       mode.Standup,
		logger:     logger,
	}
}

// Transcript exposes the accumulated call transcript for finalization.
func (r *Relay) Transcript() *calls.Transcript {
	return r.transcript
}

// Caller is the number reported by the carrier, available after the start
// frame.
func (r *Relay) Caller() string {
	return r.caller
}

type inbound struct {
	data []byte
	err  error
}

type toolResult struct {
	callID string
	output string
}

// Run pumps both sockets until the caller hangs up. Losing the model side
// does not end the call: the relay goes quiet and keeps servicing the carrier
// leg until the stop frame or downstream close.
func (r *Relay) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	downCh := make(chan inbound, 64)
	upCh := make(chan inbound, 64)
	r.toolResults = make(chan toolResult, 8)

	go readPump(ctx, r.down, downCh)
	go readPump(ctx, r.up, upCh)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg := <-downCh:
			if msg.err != nil {
				// Caller hung up. Normal end of call.
				return nil
			}
			if err := r.handleDownstream(ctx, msg.data); err != nil {
				if errors.Is(err, errCallEnded) {
					return nil
				}
				return err
			}

		case msg := <-upCh:
			if msg.err != nil {
				if !r.upDead {
					r.upDead = true
					r.logger.Error("realtime connection lost, continuing degraded", "error", msg.err)
				}
				continue
			}
			if err := r.handleUpstream(ctx, msg.data); err != nil {
				return err
			}

		case res := <-r.toolResults:
			if err := r.finishTool(ctx, res); err != nil {
				return err
			}
		}
	}
}

func readPump(ctx context.Context, s Socket, ch chan<- inbound) {
	for {
		_, data, err := s.ReadMessage()
		msg := inbound{data: data}
		if err != nil {
			msg = inbound{err: err}
		}
		select {
		case ch <- msg:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// handleDownstream processes one carrier frame.
func (r *Relay) handleDownstream(ctx context.Context, data []byte) error {
	frame, err := protocol.DecodeStreamFrame(data)
	if err != nil {
		// A malformed frame must never end the call.
		r.logger.Warn("bad media-stream frame", "error", err)
		return nil
	}
	switch frame.Event {
	case protocol.StreamEventStart:
		r.streamSID = frame.Start.StreamSID
		r.caller = frame.Start.CustomParameters["callerNumber"]
		// Web-client calls arrive with a "client:" identity minted by our own
		// token endpoint, so they are trusted like the primary number.
		r.trusted = (r.caller != "" && r.caller == r.cfg.TrustedNumber) ||
			strings.HasPrefix(r.caller, "client:")
		if r.OnStreamStart != nil {
			r.OnStreamStart(r.streamSID, r.caller)
		}
		r.logger.Info("media stream started",
			"stream_sid", r.streamSID, "trusted", r.trusted)
		if err := r.sendSession(); err != nil {
			return err
		}
		return r.sendGreeting()

	case protocol.StreamEventMedia:
		return r.writeUp(protocol.AppendAudio(frame.Media.Payload))

	case protocol.StreamEventStop:
		r.logger.Info("media stream stopped", "stream_sid", r.streamSID)
		return errCallEnded
	}
	return nil
}

// errCallEnded is the sentinel for a clean stop frame; Run converts it to nil.
var errCallEnded = errors.New("call ended")

// decodeArgs parses the model's JSON argument string. Malformed arguments
// fail the tool turn; the tool must not run on a record it cannot trust.
func decodeArgs(raw string, out *tools.Args) error {
	return json.Unmarshal([]byte(raw), out)
}

// handleUpstream processes one realtime model event.
func (r *Relay) handleUpstream(ctx context.Context, data []byte) error {
	event, err := protocol.DecodeModelEvent(data)
	if err != nil {
		r.logger.Warn("bad realtime event", "error", err)
		return nil
	}

	switch {
	case event.IsAudioDelta():
		r.isSpeaking = true
		return r.writeDown(protocol.MediaFrame(r.streamSID, event.Delta))

	case event.Type == protocol.EventSpeechStarted:
		return r.bargeIn()

	case event.Type == protocol.EventResponseDone:
		r.isSpeaking = false

	case event.Type == protocol.EventCallerTranscript:
		return r.onCallerLine(event.Transcript)

	case event.IsModelTranscript():
		r.transcript.Append(calls.SpeakerAssistant, event.Transcript)

	case event.Type == protocol.EventFunctionCallDone:
		return r.startTool(ctx, event)

	case event.Type == protocol.EventError:
		if event.Error != nil {
			r.logger.Error("realtime error event", "code", event.Error.Code, "message", event.Error.Message)
		}
	}
	return nil
}

// bargeIn stops playback on both legs. Outside of active speech the speech
// start is just the caller taking their turn; cancelling then would kill the
// response being prepared.
func (r *Relay) bargeIn() error {
	if !r.isSpeaking {
		return nil
	}
	r.isSpeaking = false
	if err := r.writeDown(protocol.ClearFrame(r.streamSID)); err != nil {
		return err
	}
	return r.writeUp(protocol.CancelResponse())
}

// onCallerLine records the transcript line and reacts to safe-word
// verification and mode cues.
func (r *Relay) onCallerLine(line string) error {
	r.transcript.Append(calls.SpeakerCaller, line)

	if !r.trusted {
		if r.cfg.SafeWord != "" && strings.Contains(strings.ToLower(line), strings.ToLower(r.cfg.SafeWord)) {
			r.trusted = true
			r.logger.Info("caller verified by safe word")
			if err := r.sendSession(); err != nil {
				return err
			}
			if err := r.writeUp(protocol.UserTextItem("[SYSTEM] The caller has been verified. Greet Paul properly.")); err != nil {
				return err
			}
			return r.writeUp(protocol.NewResponse())
		}
		// No mode switching for unverified callers.
		return nil
	}

	next, changed := mode.Detect(line, r.mode)
	if !changed {
		return nil
	}
	r.mode = next
	profile := mode.ProfileFor(next)
	r.logger.Info("mode switch", "mode", profile.Name, "silence_ms", profile.SilenceMS())
	if err := r.sendSession(); err != nil {
		return err
	}
	if err := r.writeUp(systemAnnouncement(profile)); err != nil {
		return err
	}
	return r.writeUp(protocol.NewResponse())
}

// startTool runs one catalog tool. A second call arriving while one is in
// flight queues behind it; results always return in call order.
func (r *Relay) startTool(ctx context.Context, event protocol.ModelEvent) error {
	if !r.trusted {
		// The locked-down session publishes no tools; a call here means the
		// model is misbehaving. Refuse without executing.
		r.logger.Warn("tool call from unverified session refused", "tool", event.Name)
		return r.respondTool(event.CallID, "Error: tools are not available on this call")
	}
	if r.toolBusy {
		r.toolQueue = append(r.toolQueue, event)
		return nil
	}
	r.toolBusy = true
	r.runTool(ctx, event)
	return nil
}

func (r *Relay) runTool(ctx context.Context, event protocol.ModelEvent) {
	go func() {
		args := tools.Args{}
		if event.Arguments != "" {
			if err := decodeArgs(event.Arguments, &args); err != nil {
				r.logger.Warn("bad tool arguments", "tool", event.Name, "error", err)
				output := tools.Truncate("Error: could not parse the arguments for "+event.Name, tools.MaxErrorChars)
				select {
				case r.toolResults <- toolResult{callID: event.CallID, output: output}:
				case <-ctx.Done():
				}
				return
			}
		}
		started := time.Now()
		output := r.registry.Execute(ctx, event.Name, args)
		r.logger.Info("tool executed",
			"tool", event.Name,
			"duration_ms", time.Since(started).Milliseconds(),
			"output_bytes", len(output),
		)
		select {
		case r.toolResults <- toolResult{callID: event.CallID, output: output}:
		case <-ctx.Done():
		}
	}()
}

func (r *Relay) finishTool(ctx context.Context, res toolResult) error {
	if err := r.respondTool(res.callID, res.output); err != nil {
		return err
	}
	if len(r.toolQueue) > 0 {
		next := r.toolQueue[0]
		r.toolQueue = r.toolQueue[1:]
		r.runTool(ctx, next)
		return nil
	}
	r.toolBusy = false
	return nil
}

// respondTool hands the result back and asks for a spoken follow-up.
func (r *Relay) respondTool(callID, output string) error {
	if err := r.writeUp(protocol.FunctionOutputItem(callID, output)); err != nil {
		return err
	}
	return r.writeUp(protocol.NewResponse())
}

func (r *Relay) sendSession() error {
	update := BuildSessionUpdate(SessionParams{
		Model:           r.cfg.Model,
		Voice:           r.cfg.Voice,
		TranscribeModel: r.cfg.TranscribeModel,
		Identity:        r.cfg.Identity,
		Trusted:         r.trusted,
		SafeWord:        r.cfg.SafeWord,
		SilenceMS:       mode.ProfileFor(r.mode).SilenceMS(),
		Tools:           tools.Catalog(),
	})
	return r.writeUp(update)
}

func (r *Relay) sendGreeting() error {
	if err := r.writeUp(protocol.UserTextItem(GreetingPrompt(r.trusted))); err != nil {
		return err
	}
	return r.writeUp(protocol.NewResponse())
}

func (r *Relay) writeUp(v any) error {
	if r.upDead {
		return nil
	}
	return writeJSON(r.up, v, r.cfg.WriteTimeout)
}

func (r *Relay) writeDown(v any) error {
	return writeJSON(r.down, v, r.cfg.WriteTimeout)
}

func writeJSON(s Socket, v any, timeout time.Duration) error {
	if timeout > 0 {
		_ = s.SetWriteDeadline(time.Now().Add(timeout))
	}
	return s.WriteJSON(v)
}

var _ Socket = (*websocket.Conn)(nil)
