package engine

import (
	_ "embed"

	"gopkg.in/yaml.v3"
)

type BoardMode string

const (
	ModeLifting  BoardMode = "lifting"
	ModeBreak    BoardMode = "break"
	ModeCeremony BoardMode = "ceremony"
)

type BreakType string

const (
	BreakNone               BreakType = ""
	BreakBeforeIntroduction BreakType = "before_introduction"
	BreakFirstSnatch        BreakType = "first_snatch"
	BreakFirstCJ            BreakType = "first_cj"
	BreakTechnical          BreakType = "technical"
	BreakJury               BreakType = "jury"
	BreakMarshal            BreakType = "marshal"
	BreakGroupDone          BreakType = "group_done"
	BreakCeremony           BreakType = "ceremony"
)

type CeremonyType string

const (
	CeremonyNone         CeremonyType = ""
	CeremonyIntroduction CeremonyType = "introduction"
	CeremonyOfficials    CeremonyType = "officials"
	CeremonyMedals       CeremonyType = "medals"
)

type BreakState struct {
	Mode     BoardMode
	Break    BreakType
	Ceremony CeremonyType
	Title    string
	Message  string
}

type BreakInput struct {
	Mode     BoardMode
	Break    BreakType
	Ceremony CeremonyType
}

// The break/ceremony wording lives in an embedded table rather than code so
// new break types are added by editing data, and the full mapping can be
// audited in one place.
//
//go:embed messages.yaml
var messagesYAML []byte

type messageEntry struct {
	Break    string `yaml:"break"`
	Ceremony string `yaml:"ceremony"`
	Title    string `yaml:"title"`
	Message  string `yaml:"message"`
}

type messageTable struct {
	Fallback messageEntry   `yaml:"fallback"`
	Entries  []messageEntry `yaml:"entries"`
}

var breakMessages = loadMessageTable()

func loadMessageTable() messageTable {
	var t messageTable
	if err := yaml.Unmarshal(messagesYAML, &t); err != nil {
		panic("engine: bad embedded messages.yaml: " + err.Error())
	}
	return t
}

// ResolveBreak maps board mode + break type + ceremony subtype to the break
// state shown on displays, falling back to a generic pause message for
// unknown or absent types.
func ResolveBreak(in BreakInput) BreakState {
	st := BreakState{Mode: in.Mode, Break: in.Break, Ceremony: in.Ceremony}
	if in.Mode == ModeLifting || in.Mode == "" {
		st.Mode = ModeLifting
		return st
	}

	for _, e := range breakMessages.Entries {
		if BreakType(e.Break) != in.Break {
			continue
		}
		if e.Ceremony != "" && CeremonyType(e.Ceremony) != in.Ceremony {
			continue
		}
		st.Title, st.Message = e.Title, e.Message
		return st
	}
	st.Title, st.Message = breakMessages.Fallback.Title, breakMessages.Fallback.Message
	return st
}

type Priority string

const (
	PriorityNone       Priority = "none"
	PriorityAthlete    Priority = "athlete_timer"
	PriorityBreakClock Priority = "break_timer"
	PriorityDecision   Priority = "decision"
)

// DisplayPriority decides which element owns the display at this instant
// when several are eligible at once: decision lights beat the break clock,
// which beats the athlete timer.
func DisplayPriority(athlete TimerState, breakClock TimerState, decision DecisionState) Priority {
	switch {
	case decision.Visible:
		return PriorityDecision
	case breakClock.Active:
		return PriorityBreakClock
	case athlete.Active:
		return PriorityAthlete
	default:
		return PriorityNone
	}
}
