package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/openlifting/liftrelay/internal/broker"
	"github.com/openlifting/liftrelay/internal/cache"
	"github.com/openlifting/liftrelay/internal/hub"
	"github.com/openlifting/liftrelay/internal/ws"
)

type Deps struct {
	Hub         *hub.Hub
	Broker      *broker.Broker
	Cache       *cache.Cache
	Origin      *ws.Origin
	SendBuffer  int
	AdminSecret string
	Log         *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Get("/ws/origin", d.Origin.Handler())
	r.Get("/ws/display", ws.DisplayHandler(d.Hub, d.Broker, d.SendBuffer, d.Log.Named("display")))
	r.Get("/api/view/{variant}", PullView(d))
	r.Get("/api/platforms", Platforms(d.Hub))
	r.Get("/healthz", Healthz)
	r.Get("/statusz", Statusz(d))

	// Admin routes
	r.Route("/admin", func(r chi.Router) {
		r.Use(adminGuard(d.AdminSecret))
		r.Post("/flush", FlushCaches(d.Cache))
		r.Post("/resync", ForceResync(d))
	})
	return r
}
