package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openlifting/liftrelay/internal/engine"
	"github.com/openlifting/liftrelay/internal/hub"
	"github.com/openlifting/liftrelay/pkg/types"
)

func newReadyHub(t *testing.T) *hub.Hub {
	t.Helper()
	h := hub.New(zap.NewNop())
	h.ApplySnapshot(&types.Snapshot{
		CompetitionName: "Nationals",
		Athletes: []types.Athlete{
			{ID: 2, Name: "LEE B", Platform: "A", StartNumber: 5},
			{ID: 1, Name: "KIM A", Platform: "A", StartNumber: 3},
			{ID: 3, Name: "PARK C", Platform: "B", StartNumber: 1},
		},
		Records: []types.Record{{Category: "89", Lift: "snatch", WeightKg: 180}},
	})
	return h
}

func TestCompute_UnknownVariant(t *testing.T) {
	h := newReadyHub(t)
	_, err := Compute(h, "jumbotron", "A", nil)
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestCompute_NoSnapshot(t *testing.T) {
	h := hub.New(zap.NewNop())
	_, err := Compute(h, "scoreboard", "A", nil)
	assert.ErrorIs(t, err, hub.ErrNoSnapshot)
}

func TestCompute_ProtocolErrorSurfacesToEveryPull(t *testing.T) {
	h := newReadyHub(t)
	h.SetProtocolError(&hub.ProtocolError{Got: 1, Min: 2})

	for _, variant := range Variants() {
		_, err := Compute(h, variant, "A", nil)
		var protoErr *hub.ProtocolError
		assert.ErrorAs(t, err, &protoErr, "variant %s", variant)
	}
}

func TestScoreboard_FiltersAndOrdersAthletes(t *testing.T) {
	h := newReadyHub(t)
	h.ApplyUpdate("A", hub.Update{Record: map[string]string{
		"athlete": "KIM A", "attempt": "2", "weight": "102",
	}})

	got, err := Compute(h, "scoreboard", "A", nil)
	require.NoError(t, err)
	vm := got.(scoreboardVM)

	require.Len(t, vm.Athletes, 2)
	assert.Equal(t, "KIM A", vm.Athletes[0].Name, "ordered by start number")
	assert.Equal(t, "LEE B", vm.Athletes[1].Name)
	assert.Equal(t, "KIM A", vm.CurrentAthlete)
	assert.Equal(t, "102", vm.WeightKg)
	assert.Empty(t, vm.Records, "records only on request")
}

func TestScoreboard_RecordsOption(t *testing.T) {
	h := newReadyHub(t)
	got, err := Compute(h, "scoreboard", "A", map[string]string{"records": "true"})
	require.NoError(t, err)
	assert.Len(t, got.(scoreboardVM).Records, 1)
}

func TestVariants_ReadTheirOwnStopPolicy(t *testing.T) {
	h := newReadyHub(t)
	h.ApplyTimer("A", engine.TimerEvent{Kind: engine.TimerEvSet, RemainingMS: 60000, HasRemaining: true})
	h.ApplyTimer("A", engine.TimerEvent{Kind: engine.TimerEvStart})
	h.ApplyTimer("A", engine.TimerEvent{Kind: engine.TimerEvStop})

	sb, err := Compute(h, "scoreboard", "A", nil)
	require.NoError(t, err)
	ab, err := Compute(h, "attemptboard", "A", nil)
	require.NoError(t, err)

	// Same event stream, divergent presentation: the scoreboard keeps the
	// stopped clock, the attempt board blanks it.
	assert.Equal(t, engine.TimerSet, sb.(scoreboardVM).Timer.Phase)
	assert.Equal(t, engine.TimerUnset, ab.(attemptBoardVM).Timer.Phase)
}

func TestDecisionLights_PendingOnFreshPlatform(t *testing.T) {
	h := newReadyHub(t)

	got, err := Compute(h, "decisionlights", "A", nil)
	require.NoError(t, err)
	vm := got.(decisionLightsVM)

	assert.Equal(t, engine.VotePending, vm.Decision.Ref1)
	assert.False(t, vm.Decision.Visible)
}
