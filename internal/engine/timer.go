// Package engine holds the pure derived-state reducers: athlete timer,
// referee decision lights, and break/ceremony mode. Reducers do no I/O and
// keep no state of their own; the hub owns the per-platform reducer memory
// and replays events through these functions.
package engine

type TimerPhase string

const (
	TimerUnset   TimerPhase = "unset"
	TimerSet     TimerPhase = "set"
	TimerRunning TimerPhase = "running"
	TimerStopped TimerPhase = "stopped"
)

type TimerEventKind string

const (
	TimerEvSet   TimerEventKind = "Set"
	TimerEvStart TimerEventKind = "Start"
	TimerEvStop  TimerEventKind = "Stop"
	// TimerEvSync carries timer fields observed outside an explicit event,
	// e.g. the first update record seen for a platform.
	TimerEvSync TimerEventKind = "Sync"
)

// StopPolicy selects what a Stop event does to a visible clock: the
// scoreboard keeps showing the stopped clock, the attempt board blanks it.
type StopPolicy string

const (
	// StopPersists: Stop leaves the clock visible at its remaining time.
	StopPersists StopPolicy = "persist-visible"
	// StopHides: Stop blanks a running clock; a Stop on a non-running
	// clock behaves like Set.
	StopHides StopPolicy = "hide-on-stop"
)

type TimerState struct {
	Phase       TimerPhase
	RemainingMS int64
	DurationMS  int64
	Active      bool
}

type TimerEvent struct {
	Kind         TimerEventKind
	RemainingMS  int64
	DurationMS   int64
	HasRemaining bool
}

// ReduceTimer applies one timer event to the previous state. It is
// deterministic and replayable: the same event sequence always yields the
// same state for a given policy.
func ReduceTimer(prev TimerState, ev TimerEvent, policy StopPolicy) TimerState {
	next := prev
	if ev.DurationMS > 0 {
		next.DurationMS = ev.DurationMS
	}

	switch ev.Kind {
	case TimerEvSet:
		next.Phase = TimerSet
		next.RemainingMS = ev.RemainingMS
		next.Active = true

	case TimerEvStart:
		next.Phase = TimerRunning
		if ev.HasRemaining {
			next.RemainingMS = ev.RemainingMS
		}
		next.Active = true

	case TimerEvStop:
		if ev.HasRemaining {
			next.RemainingMS = ev.RemainingMS
		}
		switch policy {
		case StopHides:
			if prev.Phase == TimerRunning {
				next.Phase = TimerUnset
				next.Active = false
			} else {
				next.Phase = TimerSet
				next.Active = true
			}
		default: // StopPersists
			next.Phase = TimerSet
			next.Active = true
		}

	default:
		// First observation with no recognized event: infer from the
		// presence of a remaining time.
		if prev.Phase != "" && prev.Phase != TimerUnset {
			return prev
		}
		if ev.HasRemaining {
			next.Phase = TimerSet
			next.RemainingMS = ev.RemainingMS
			next.Active = true
		} else {
			next.Phase = TimerUnset
			next.Active = false
		}
	}
	return next
}
