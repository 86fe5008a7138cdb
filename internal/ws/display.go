package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/openlifting/liftrelay/internal/broker"
	"github.com/openlifting/liftrelay/internal/hub"
	"github.com/openlifting/liftrelay/pkg/types"
)

const (
	writeTimeout = 3 * time.Second
	pingInterval = 30 * time.Second
)

// DisplayHandler serves the one-way consumer push socket. The connection is
// registered with the broker under its platform/locale filter; cancellation
// is always consumer-initiated (disconnect -> deregister), never a server
// timeout.
func DisplayHandler(h *hub.Hub, b *broker.Broker, sendBuffer int, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fop := r.URL.Query().Get("fop")
		locale := r.URL.Query().Get("locale")

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out, dereg := b.Register(sendBuffer, broker.Filter{Platform: fop, Locale: locale})
		defer dereg()

		// The socket is one-way; CloseRead surfaces the consumer's
		// disconnect as context cancellation.
		ctx := conn.CloseRead(r.Context())

		if err := greet(ctx, conn, h); err != nil {
			return
		}
		replayBundles(ctx, conn, h, locale)

		ping := time.NewTicker(pingInterval)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ping.C:
				wctx, cancel := context.WithTimeout(ctx, writeTimeout)
				err := conn.Ping(wctx)
				cancel()
				if err != nil {
					// Ordinary lifecycle, not an error.
					log.Debug("consumer gone", zap.String("fop", fop))
					return
				}
			case frame, ok := <-out:
				if !ok {
					return
				}
				if err := writeFrame(ctx, conn, frame); err != nil {
					log.Debug("consumer write failed", zap.String("fop", fop))
					return
				}
			}
		}
	}
}

// greet tells a new consumer whether a snapshot is loaded yet.
func greet(ctx context.Context, conn *websocket.Conn, h *hub.Hub) error {
	kind := types.OutWaiting
	var version uint64
	if h.HasSnapshot() {
		kind = types.OutHubReady
		version = h.Version("")
	}
	data, _ := json.Marshal(types.Outbound{Type: kind, Version: version})
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, data)
}

// replayBundles sends the retained asset bundles so late joiners get
// stylesheets and translations without waiting for the origin to resend.
func replayBundles(ctx context.Context, conn *websocket.Conn, h *hub.Hub, locale string) {
	for _, bd := range h.Bundles() {
		if bd.Kind == "translations" && locale != "" && bd.Locale != "" && bd.Locale != locale {
			continue
		}
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := conn.Write(wctx, websocket.MessageBinary, bd.Data)
		cancel()
		if err != nil {
			return
		}
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, f broker.Frame) error {
	typ := websocket.MessageText
	if f.Binary {
		typ = websocket.MessageBinary
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(wctx, typ, f.Data)
}
