package relay

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openlifting/liftrelay/internal/broker"
	"github.com/openlifting/liftrelay/internal/engine"
	"github.com/openlifting/liftrelay/internal/hub"
	"github.com/openlifting/liftrelay/pkg/types"
)

func wiredHub(t *testing.T) (*hub.Hub, *broker.Broker) {
	t.Helper()
	log := zap.NewNop()
	h := hub.New(log)
	b := broker.New(log)
	h.OnChange(Notifier(h, b, log))
	return h, b
}

func recvFrame(t *testing.T, ch <-chan broker.Frame) broker.Frame {
	t.Helper()
	select {
	case f := <-ch:
		return f
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timed out waiting for frame")
		return broker.Frame{} // unreachable
	}
}

func TestSnapshotChange_BroadcastsStateUpdate(t *testing.T) {
	h, b := wiredHub(t)
	out, dereg := b.Register(4, broker.Filter{})
	defer dereg()

	h.ApplySnapshot(&types.Snapshot{CompetitionName: "Nationals"})

	f := recvFrame(t, out)
	assert.Equal(t, types.OutStateUpdate, f.Kind)

	var msg types.Outbound
	require.NoError(t, json.Unmarshal(f.Data, &msg))
	assert.Equal(t, types.OutStateUpdate, msg.Type)
	assert.Equal(t, uint64(1), msg.Version)
}

func TestUpdateChange_IsASignalNotAPayload(t *testing.T) {
	h, b := wiredHub(t)
	h.ApplySnapshot(&types.Snapshot{})

	out, dereg := b.Register(4, broker.Filter{Platform: "A"})
	defer dereg()

	h.ApplyUpdate("A", hub.Update{Record: map[string]string{"athlete": "KIM A", "weight": "102"}})

	f := recvFrame(t, out)
	assert.Equal(t, types.OutFOPUpdate, f.Kind)
	assert.Equal(t, "A", f.Platform)

	var msg types.Outbound
	require.NoError(t, json.Unmarshal(f.Data, &msg))
	assert.Equal(t, "A", msg.FOP)
	assert.Nil(t, msg.Payload, "fop_update carries no payload; consumers re-pull")
}

func TestTimerChange_CarriesDerivedState(t *testing.T) {
	h, b := wiredHub(t)
	h.ApplySnapshot(&types.Snapshot{})

	out, dereg := b.Register(4, broker.Filter{Platform: "A"})
	defer dereg()

	h.ApplyTimer("A", engine.TimerEvent{Kind: engine.TimerEvSet, RemainingMS: 60000, HasRemaining: true})

	f := recvFrame(t, out)
	assert.Equal(t, types.OutTimer, f.Kind)

	var msg types.Outbound
	require.NoError(t, json.Unmarshal(f.Data, &msg))
	var timers map[engine.StopPolicy]engine.TimerState
	require.NoError(t, json.Unmarshal(msg.Payload, &timers))
	require.Contains(t, timers, engine.StopPersists)
	require.Contains(t, timers, engine.StopHides)
	assert.Equal(t, engine.TimerSet, timers[engine.StopPersists].Phase)
	assert.Equal(t, int64(60000), timers[engine.StopPersists].RemainingMS)
}

func TestTimerChange_CarriesBothStopPolicies(t *testing.T) {
	h, b := wiredHub(t)
	h.ApplySnapshot(&types.Snapshot{})

	out, dereg := b.Register(8, broker.Filter{Platform: "A"})
	defer dereg()

	h.ApplyTimer("A", engine.TimerEvent{Kind: engine.TimerEvStart, RemainingMS: 60000, HasRemaining: true})
	recvFrame(t, out)
	h.ApplyTimer("A", engine.TimerEvent{Kind: engine.TimerEvStop})

	f := recvFrame(t, out)
	var msg types.Outbound
	require.NoError(t, json.Unmarshal(f.Data, &msg))
	var timers map[engine.StopPolicy]engine.TimerState
	require.NoError(t, json.Unmarshal(msg.Payload, &timers))

	// On Stop the two policies diverge; the payload must show both.
	assert.True(t, timers[engine.StopPersists].Active)
	assert.Equal(t, engine.TimerSet, timers[engine.StopPersists].Phase)
	assert.False(t, timers[engine.StopHides].Active)
	assert.Equal(t, engine.TimerUnset, timers[engine.StopHides].Phase)
}

func TestBundleChange_RebroadcastOpaque(t *testing.T) {
	h, b := wiredHub(t)

	fr, deregFr := b.Register(4, broker.Filter{Locale: "fr"})
	defer deregFr()
	de, deregDe := b.Register(4, broker.Filter{Locale: "de"})
	defer deregDe()

	// Data is the verbatim wire frame: tag 0x02, locale length, locale, blob.
	frame := append([]byte{0x02, 2}, []byte("fr")...)
	frame = append(frame, 0xde, 0xad)
	h.StoreBundle(hub.Bundle{Kind: "translations", Locale: "fr", Data: frame})

	f := recvFrame(t, fr)
	assert.True(t, f.Binary)
	assert.Equal(t, frame, f.Data, "tagged frame must go out byte for byte")

	select {
	case f := <-de:
		t.Fatalf("locale-mismatched consumer got frame %+v", f)
	case <-time.After(50 * time.Millisecond):
	}
}
