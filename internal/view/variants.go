package view

import (
	"sort"

	"github.com/openlifting/liftrelay/internal/engine"
	"github.com/openlifting/liftrelay/pkg/types"
)

type timerVM struct {
	Phase       engine.TimerPhase `json:"phase"`
	RemainingMS int64             `json:"remaining_ms"`
	DurationMS  int64             `json:"duration_ms,omitempty"`
}

type decisionVM struct {
	Ref1          engine.Vote `json:"ref1"`
	Ref2          engine.Vote `json:"ref2"`
	Ref3          engine.Vote `json:"ref3"`
	Visible       bool        `json:"visible"`
	Down          bool        `json:"down"`
	SingleReferee bool        `json:"single_referee,omitempty"`
}

type breakVM struct {
	Mode    engine.BoardMode `json:"mode"`
	Title   string           `json:"title,omitempty"`
	Message string           `json:"message,omitempty"`
}

// Scoreboard: the full group view. Athletes of the platform ordered by start
// number, current attempt fields from the record, clock under the
// persist-visible policy.
type scoreboardVM struct {
	Platform        string          `json:"platform"`
	CompetitionName string          `json:"competition_name,omitempty"`
	Athletes        []types.Athlete `json:"athletes"`
	CurrentAthlete  string          `json:"current_athlete,omitempty"`
	Attempt         string          `json:"attempt,omitempty"`
	WeightKg        string          `json:"weight_kg,omitempty"`
	Timer           timerVM         `json:"timer"`
	Decision        decisionVM      `json:"decision"`
	Break           breakVM         `json:"break"`
	Priority        engine.Priority `json:"priority"`
	Records         []types.Record  `json:"records,omitempty"`
}

func buildScoreboard(m Model) (any, error) {
	athletes := platformAthletes(m.Snapshot, m.Platform)
	vm := scoreboardVM{
		Platform:        m.Platform,
		CompetitionName: m.Snapshot.CompetitionName,
		Athletes:        athletes,
		CurrentAthlete:  m.Record["athlete"],
		Attempt:         m.Record["attempt"],
		WeightKg:        m.Record["weight"],
		Timer:           timerVM{m.Timer.Phase, m.Timer.RemainingMS, m.Timer.DurationMS},
		Decision:        decisionView(m.Decision),
		Break:           breakVM{m.Break.Mode, m.Break.Title, m.Break.Message},
		Priority:        engine.DisplayPriority(m.Timer, m.Clock, m.Decision),
	}
	if m.Options["records"] == "true" {
		vm.Records = m.Snapshot.Records
	}
	return vm, nil
}

// Attempt board: the current-attempt focus view. Its clock blanks on Stop.
type attemptBoardVM struct {
	Platform string          `json:"platform"`
	Athlete  string          `json:"athlete,omitempty"`
	Team     string          `json:"team,omitempty"`
	Attempt  string          `json:"attempt,omitempty"`
	WeightKg string          `json:"weight_kg,omitempty"`
	Timer    timerVM         `json:"timer"`
	Decision decisionVM      `json:"decision"`
	Break    breakVM         `json:"break"`
	Priority engine.Priority `json:"priority"`
}

func buildAttemptBoard(m Model) (any, error) {
	return attemptBoardVM{
		Platform: m.Platform,
		Athlete:  m.Record["athlete"],
		Team:     m.Record["team"],
		Attempt:  m.Record["attempt"],
		WeightKg: m.Record["weight"],
		Timer:    timerVM{m.Timer.Phase, m.Timer.RemainingMS, m.Timer.DurationMS},
		Decision: decisionView(m.Decision),
		Break:    breakVM{m.Break.Mode, m.Break.Title, m.Break.Message},
		Priority: engine.DisplayPriority(m.Timer, m.Clock, m.Decision),
	}, nil
}

// Decision lights: referee lights only.
type decisionLightsVM struct {
	Platform string     `json:"platform"`
	Decision decisionVM `json:"decision"`
}

func buildDecisionLights(m Model) (any, error) {
	return decisionLightsVM{Platform: m.Platform, Decision: decisionView(m.Decision)}, nil
}

func decisionView(d engine.DecisionState) decisionVM {
	if d.Ref1 == "" {
		d = engine.NewDecisionState()
	}
	return decisionVM{
		Ref1:          d.Ref1,
		Ref2:          d.Ref2,
		Ref3:          d.Ref3,
		Visible:       d.Visible,
		Down:          d.Down,
		SingleReferee: d.SingleReferee,
	}
}

func platformAthletes(snap *types.Snapshot, platform string) []types.Athlete {
	out := make([]types.Athlete, 0, len(snap.Athletes))
	for _, a := range snap.Athletes {
		if platform == "" || a.Platform == platform {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartNumber < out[j].StartNumber })
	return out
}
