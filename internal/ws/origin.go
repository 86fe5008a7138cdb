// Package ws carries the two websocket surfaces: the single long-lived
// origin connection that feeds the hub, and the one-way display sockets the
// broker pushes to.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/openlifting/liftrelay/internal/hub"
	"github.com/openlifting/liftrelay/internal/ingest"
)

// Origin owns the inbound control connection. Messages are processed
// sequentially on the read loop, so hub writes never race each other.
type Origin struct {
	hub     *hub.Hub
	adapter *ingest.Adapter
	log     *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewOrigin(h *hub.Hub, a *ingest.Adapter, log *zap.Logger) *Origin {
	return &Origin{hub: h, adapter: a, log: log}
}

func (o *Origin) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		// A reconnecting origin replaces the previous connection. The sticky
		// protocol error clears on reset, per the recovery contract.
		o.mu.Lock()
		if o.conn != nil {
			o.conn.Close(websocket.StatusPolicyViolation, "superseded")
		}
		o.conn = conn
		o.mu.Unlock()
		o.hub.ClearProtocolError()
		o.log.Info("origin connected", zap.String("remote", r.RemoteAddr))

		defer func() {
			o.mu.Lock()
			if o.conn == conn {
				o.conn = nil
			}
			o.mu.Unlock()
			o.log.Info("origin disconnected")
		}()

		for {
			typ, data, err := conn.Read(r.Context())
			if err != nil {
				return
			}
			switch typ {
			case websocket.MessageText:
				ack := o.adapter.HandleText(data)
				if ack == nil {
					continue
				}
				payload, _ := json.Marshal(ack)
				ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			case websocket.MessageBinary:
				o.adapter.HandleBinary(data)
			}
		}
	}
}

// ForceResync terminates the origin connection so the origin reconnects and
// resends a full snapshot. The next snapshot resets derived reducer memory.
func (o *Origin) ForceResync() {
	o.hub.MarkResyncPending()
	o.mu.Lock()
	conn := o.conn
	o.conn = nil
	o.mu.Unlock()
	if conn != nil {
		conn.Close(websocket.StatusServiceRestart, "resync")
		o.log.Info("origin connection terminated for resync")
	}
}
