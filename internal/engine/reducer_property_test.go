package engine

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genTimerEvent() gopter.Gen {
	return gen.OneGenOf(
		gen.Int64Range(0, 120000).Map(func(ms int64) TimerEvent {
			return TimerEvent{Kind: TimerEvSet, RemainingMS: ms, HasRemaining: true}
		}),
		gen.Const(TimerEvent{Kind: TimerEvStart}),
		gen.Const(TimerEvent{Kind: TimerEvStop}),
		gen.Const(TimerEvent{Kind: TimerEvSync}),
	)
}

func TestTimerReducer_DeterministicReplay_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("same sequence, same state, both policies", prop.ForAll(
		func(events []TimerEvent) bool {
			for _, policy := range []StopPolicy{StopPersists, StopHides} {
				a := replay(events, policy)
				b := replay(events, policy)
				if a != b {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genTimerEvent()),
	))

	properties.Property("state is a pure function of prefix", prop.ForAll(
		func(events []TimerEvent) bool {
			// Replaying incrementally must match replaying from scratch at
			// every step.
			st := TimerState{Phase: TimerUnset}
			for i, ev := range events {
				st = ReduceTimer(st, ev, StopPersists)
				if st != replay(events[:i+1], StopPersists) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genTimerEvent()),
	))

	properties.TestingRun(t)
}
