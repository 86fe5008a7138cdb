package engine

import "testing"

func set(ms int64) TimerEvent {
	return TimerEvent{Kind: TimerEvSet, RemainingMS: ms, HasRemaining: true}
}

func start() TimerEvent { return TimerEvent{Kind: TimerEvStart} }
func stop() TimerEvent  { return TimerEvent{Kind: TimerEvStop} }

func replay(events []TimerEvent, policy StopPolicy) TimerState {
	st := TimerState{Phase: TimerUnset}
	for _, ev := range events {
		st = ReduceTimer(st, ev, policy)
	}
	return st
}

func TestTimerReplay_StopPersists(t *testing.T) {
	cases := []struct {
		name      string
		events    []TimerEvent
		wantPhase TimerPhase
		wantMS    int64
	}{
		{
			name:      "set only",
			events:    []TimerEvent{set(60000)},
			wantPhase: TimerSet,
			wantMS:    60000,
		},
		{
			name:      "set then start",
			events:    []TimerEvent{set(60000), start()},
			wantPhase: TimerRunning,
			wantMS:    60000,
		},
		{
			name:      "set start stop keeps clock visible",
			events:    []TimerEvent{set(60000), start(), stop()},
			wantPhase: TimerSet,
			wantMS:    60000,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := replay(tc.events, StopPersists)
			if got.Phase != tc.wantPhase {
				t.Fatalf("phase: got %v, want %v", got.Phase, tc.wantPhase)
			}
			if got.RemainingMS != tc.wantMS {
				t.Fatalf("remaining: got %d, want %d", got.RemainingMS, tc.wantMS)
			}
		})
	}
}

func TestTimerReplay_StopHides(t *testing.T) {
	// Identical input sequences as the persist-visible cases; the policy is
	// the only variable.
	cases := []struct {
		name      string
		events    []TimerEvent
		wantPhase TimerPhase
	}{
		{
			name:      "set only",
			events:    []TimerEvent{set(60000)},
			wantPhase: TimerSet,
		},
		{
			name:      "set then start",
			events:    []TimerEvent{set(60000), start()},
			wantPhase: TimerRunning,
		},
		{
			name:      "stop on a running clock blanks it",
			events:    []TimerEvent{set(60000), start(), stop()},
			wantPhase: TimerUnset,
		},
		{
			name:      "stop on a non-running clock behaves like set",
			events:    []TimerEvent{set(60000), stop()},
			wantPhase: TimerSet,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := replay(tc.events, StopHides)
			if got.Phase != tc.wantPhase {
				t.Fatalf("phase: got %v, want %v", got.Phase, tc.wantPhase)
			}
		})
	}
}

func TestTimerFirstObservation_InfersFromRemaining(t *testing.T) {
	cases := []struct {
		name      string
		ev        TimerEvent
		wantPhase TimerPhase
	}{
		{
			name:      "remaining present infers set",
			ev:        TimerEvent{Kind: TimerEvSync, RemainingMS: 45000, HasRemaining: true},
			wantPhase: TimerSet,
		},
		{
			name:      "no remaining defaults to unset",
			ev:        TimerEvent{Kind: TimerEvSync},
			wantPhase: TimerUnset,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ReduceTimer(TimerState{}, tc.ev, StopPersists)
			if got.Phase != tc.wantPhase {
				t.Fatalf("phase: got %v, want %v", got.Phase, tc.wantPhase)
			}
		})
	}
}

func TestTimerSync_DoesNotDisturbRunningClock(t *testing.T) {
	st := replay([]TimerEvent{set(60000), start()}, StopPersists)
	got := ReduceTimer(st, TimerEvent{Kind: TimerEvSync, RemainingMS: 1, HasRemaining: true}, StopPersists)
	if got != st {
		t.Fatalf("sync changed established state: %+v -> %+v", st, got)
	}
}
