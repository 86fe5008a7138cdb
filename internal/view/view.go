// Package view computes the named view-model variants behind the consumer
// pull interface. Each variant declares which timer stop policy it reads.
package view

import (
	"errors"
	"fmt"

	"github.com/openlifting/liftrelay/internal/engine"
	"github.com/openlifting/liftrelay/internal/hub"
	"github.com/openlifting/liftrelay/pkg/types"
)

var ErrUnknownVariant = errors.New("unknown variant")

// Model is everything a variant may read: the global snapshot, one
// platform's record and derived states, and the canonicalized options.
type Model struct {
	Snapshot *types.Snapshot
	Platform string
	Record   map[string]string
	Timer    engine.TimerState
	Clock    engine.TimerState // break clock
	Decision engine.DecisionState
	Break    engine.BreakState
	Options  map[string]string
}

type Variant struct {
	Name   string
	Policy engine.StopPolicy
	Build  func(Model) (any, error)
}

var registry = map[string]Variant{
	"scoreboard":     {Name: "scoreboard", Policy: engine.StopPersists, Build: buildScoreboard},
	"attemptboard":   {Name: "attemptboard", Policy: engine.StopHides, Build: buildAttemptBoard},
	"decisionlights": {Name: "decisionlights", Policy: engine.StopPersists, Build: buildDecisionLights},
}

func Lookup(name string) (Variant, bool) {
	v, ok := registry[name]
	return v, ok
}

func Variants() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	return names
}

// Compute assembles the model from the hub and runs the variant. The sticky
// protocol error and the missing-snapshot precondition surface here so every
// pull caller sees them.
func Compute(h *hub.Hub, variant, platform string, opts map[string]string) (any, error) {
	v, ok := Lookup(variant)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVariant, variant)
	}
	if err := h.ProtocolError(); err != nil {
		return nil, err
	}
	snap := h.Snapshot()
	if snap == nil {
		return nil, hub.ErrNoSnapshot
	}

	m := Model{Snapshot: snap, Platform: platform, Options: opts}
	if pv, ok := h.Platform(platform); ok {
		m.Record = pv.Record
		m.Timer = pv.Timers[v.Policy]
		m.Clock = pv.BreakClock
		m.Decision = pv.Decision
		m.Break = pv.Break
	}
	return v.Build(m)
}
