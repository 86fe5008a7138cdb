// Package ingest decodes and validates everything arriving on the origin
// connection. Loosely typed upstream fields ("true"/"false" strings, decimal
// millisecond strings, present-or-absent referee votes) are parsed into
// typed events here; reducers never see raw strings. A malformed message is
// logged and dropped without killing the ingest loop.
package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/openlifting/liftrelay/internal/engine"
	"github.com/openlifting/liftrelay/internal/hub"
	"github.com/openlifting/liftrelay/pkg/types"
)

type Adapter struct {
	hub         *hub.Hub
	minProtocol int
	log         *zap.Logger
}

func New(h *hub.Hub, minProtocol int, log *zap.Logger) *Adapter {
	return &Adapter{hub: h, minProtocol: minProtocol, log: log}
}

// HandleText processes one JSON envelope and returns the ack to write back
// on the origin socket. A nil ack means the message was dropped silently
// (malformed input).
func (a *Adapter) HandleText(data []byte) *types.Ack {
	var env types.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		a.log.Warn("malformed message dropped", zap.Error(err))
		return nil
	}

	if env.Protocol < a.minProtocol {
		a.hub.SetProtocolError(&hub.ProtocolError{Got: env.Protocol, Min: a.minProtocol})
		return &types.Ack{Type: "error", Status: 426,
			Error: fmt.Sprintf("protocol %d below minimum %d", env.Protocol, a.minProtocol)}
	}
	if err := a.hub.ProtocolError(); err != nil {
		// Sticky until the connection resets; state-changing messages are
		// suspended, not applied.
		return &types.Ack{Type: "error", Status: 426, Error: err.Error()}
	}

	switch env.Type {
	case types.MsgFullSnapshot:
		var snap types.Snapshot
		if err := json.Unmarshal(env.Payload, &snap); err != nil {
			a.log.Warn("malformed snapshot payload dropped", zap.Error(err))
			return nil
		}
		a.hub.ApplySnapshot(&snap)
		return &types.Ack{Type: "ack", Status: 200}

	case types.MsgIncrementalUpdate:
		if env.FOP == "" {
			a.log.Warn("update without fop dropped")
			return nil
		}
		if !a.hub.HasSnapshot() {
			return precondition()
		}
		a.hub.ApplyUpdate(env.FOP, decodeUpdate(env.Fields))
		return &types.Ack{Type: "ack", Status: 200}

	case types.MsgTimerEvent:
		if env.FOP == "" {
			a.log.Warn("timer event without fop dropped")
			return nil
		}
		if !a.hub.HasSnapshot() {
			return precondition()
		}
		ev, err := decodeTimerEvent(env)
		if err != nil {
			a.log.Warn("malformed timer event dropped", zap.Error(err))
			return nil
		}
		a.hub.ApplyTimer(env.FOP, ev)
		return &types.Ack{Type: "ack", Status: 200}

	case types.MsgDecisionEvent:
		if env.FOP == "" {
			a.log.Warn("decision event without fop dropped")
			return nil
		}
		if !a.hub.HasSnapshot() {
			return precondition()
		}
		a.hub.ApplyDecision(env.FOP, decodeDecisionEvent(env))
		return &types.Ack{Type: "ack", Status: 200}

	default:
		a.log.Warn("unknown message type dropped", zap.String("type", env.Type))
		return nil
	}
}

// precondition is the explicit recoverable signal back to the origin when an
// update arrives before any snapshot: a 428 ack naming the missing resource
// kinds. Nothing is stored.
func precondition() *types.Ack {
	return &types.Ack{Type: "ack", Status: 428, Missing: []string{types.MsgFullSnapshot}}
}

func decodeTimerEvent(env types.Envelope) (engine.TimerEvent, error) {
	var kind engine.TimerEventKind
	switch env.Event {
	case "Set":
		kind = engine.TimerEvSet
	case "Start":
		kind = engine.TimerEvStart
	case "Stop":
		kind = engine.TimerEvStop
	case "":
		kind = engine.TimerEvSync
	default:
		return engine.TimerEvent{}, fmt.Errorf("unknown timer event %q", env.Event)
	}

	ev := engine.TimerEvent{Kind: kind}
	if env.Remaining != "" {
		ms, err := strconv.ParseInt(env.Remaining, 10, 64)
		if err != nil {
			return engine.TimerEvent{}, fmt.Errorf("bad remaining %q: %w", env.Remaining, err)
		}
		ev.RemainingMS = ms
		ev.HasRemaining = true
	}
	if env.Duration != "" {
		ms, err := strconv.ParseInt(env.Duration, 10, 64)
		if err != nil {
			return engine.TimerEvent{}, fmt.Errorf("bad duration %q: %w", env.Duration, err)
		}
		ev.DurationMS = ms
	}
	return ev, nil
}

func decodeDecisionEvent(env types.Envelope) engine.DecisionEvent {
	return engine.DecisionEvent{
		Ref1:          parseVote(env.D1),
		Ref2:          parseVote(env.D2),
		Ref3:          parseVote(env.D3),
		Down:          parseBool(env.Down),
		Visible:       parseBool(env.Visible),
		SingleReferee: parseBool(env.Single),
	}
}

// decodeUpdate pulls the typed break fields out of the flat record. The
// record itself stays string->string; only reducer inputs are parsed.
func decodeUpdate(fields map[string]string) hub.Update {
	if fields == nil {
		fields = map[string]string{}
	}
	u := hub.Update{
		Record: fields,
		Break: engine.BreakInput{
			Mode:     engine.BoardMode(fields["mode"]),
			Break:    engine.BreakType(fields["break_type"]),
			Ceremony: engine.CeremonyType(fields["ceremony_type"]),
		},
		BreakClock: engine.TimerEvent{Kind: engine.TimerEvSync},
	}
	if raw, ok := fields["break_remaining"]; ok {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			u.BreakClock.RemainingMS = ms
			u.BreakClock.HasRemaining = true
		}
	}
	return u
}

// parseVote maps the ternary referee field: "true" good, "false" bad,
// absent pending.
func parseVote(v *string) engine.Vote {
	if v == nil {
		return engine.VotePending
	}
	if parseBool(*v) {
		return engine.VoteGood
	}
	return engine.VoteBad
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
