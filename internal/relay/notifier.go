// Package relay connects the hub's change events to the broker: each change
// becomes one pre-encoded frame, fanned out as-is. Consumers treat
// fop_update as a signal and re-pull the view they need; only timer and
// decision changes carry their small derived payload inline.
package relay

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/openlifting/liftrelay/internal/broker"
	"github.com/openlifting/liftrelay/internal/hub"
	"github.com/openlifting/liftrelay/pkg/types"
)

// Notifier returns the hub change listener. Encoding happens once per
// change, never per consumer.
func Notifier(h *hub.Hub, b *broker.Broker, log *zap.Logger) func(hub.Change) {
	return func(c hub.Change) {
		switch c.Kind {
		case hub.ChangeSnapshot:
			data := encode(log, types.Outbound{
				Type:    types.OutStateUpdate,
				Version: h.Version(""),
			})
			b.Publish(broker.Frame{Kind: types.OutStateUpdate, Data: data})

		case hub.ChangeUpdate:
			data := encode(log, types.Outbound{
				Type:    types.OutFOPUpdate,
				FOP:     c.Platform,
				Version: h.Version(c.Platform),
			})
			b.Publish(broker.Frame{Kind: types.OutFOPUpdate, Platform: c.Platform, Data: data})

		case hub.ChangeTimer:
			pv, ok := h.Platform(c.Platform)
			if !ok {
				return
			}
			// Both stop-policy reductions go out, keyed by policy, so each
			// display variant can read the one it declares.
			payload, _ := json.Marshal(pv.Timers)
			data := encode(log, types.Outbound{
				Type:    types.OutTimer,
				FOP:     c.Platform,
				Version: pv.Version,
				Payload: payload,
			})
			b.Publish(broker.Frame{Kind: types.OutTimer, Platform: c.Platform, Data: data})

		case hub.ChangeDecision:
			pv, ok := h.Platform(c.Platform)
			if !ok {
				return
			}
			payload, _ := json.Marshal(pv.Decision)
			data := encode(log, types.Outbound{
				Type:    types.OutDecision,
				FOP:     c.Platform,
				Version: pv.Version,
				Payload: payload,
			})
			b.Publish(broker.Frame{Kind: types.OutDecision, Platform: c.Platform, Data: data})

		case hub.ChangeBundle:
			// The tagged frame goes out verbatim; translations are the only
			// locale-scoped kind.
			bd, ok := h.Bundle(c.BundleKind, c.Locale)
			if !ok {
				return
			}
			b.Publish(broker.Frame{
				Kind:   bd.Kind,
				Locale: bd.Locale,
				Binary: true,
				Data:   bd.Data,
			})
		}
	}
}

func encode(log *zap.Logger, m types.Outbound) []byte {
	data, err := json.Marshal(m)
	if err != nil {
		log.Warn("outbound encode failed", zap.Error(err))
		return nil
	}
	return data
}
