package engine

type Vote string

const (
	VoteGood    Vote = "good"
	VoteBad     Vote = "bad"
	VotePending Vote = "pending"
)

type DecisionState struct {
	Ref1          Vote
	Ref2          Vote
	Ref3          Vote
	Visible       bool
	SingleReferee bool
	Down          bool
}

type DecisionEvent struct {
	Ref1          Vote
	Ref2          Vote
	Ref3          Vote
	Visible       bool
	SingleReferee bool
	Down          bool
}

func NewDecisionState() DecisionState {
	return DecisionState{Ref1: VotePending, Ref2: VotePending, Ref3: VotePending}
}

// ReduceDecision applies one decision event. Visibility is the explicit flag
// OR all referees decided OR the down signal. A down signal without a full
// decision forces all votes back to pending even when stale values arrive.
func ReduceDecision(prev DecisionState, ev DecisionEvent) DecisionState {
	next := prev
	next.Ref1 = ev.Ref1
	next.Ref2 = ev.Ref2
	next.Ref3 = ev.Ref3
	next.SingleReferee = ev.SingleReferee
	next.Down = ev.Down

	if ev.Down && !allDecided(next) {
		next.Ref1 = VotePending
		next.Ref2 = VotePending
		next.Ref3 = VotePending
	}

	next.Visible = ev.Visible || allDecided(next) || ev.Down
	return next
}

// ClearDecision is the timer-start rule: a Start event unconditionally hides
// the lights and resets every vote.
func ClearDecision(prev DecisionState) DecisionState {
	next := NewDecisionState()
	next.SingleReferee = prev.SingleReferee
	return next
}

func allDecided(s DecisionState) bool {
	if s.SingleReferee {
		return s.Ref1 != VotePending
	}
	return s.Ref1 != VotePending && s.Ref2 != VotePending && s.Ref3 != VotePending
}
