package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openlifting/liftrelay/internal/cache"
	"github.com/openlifting/liftrelay/internal/hub"
	"github.com/openlifting/liftrelay/internal/view"
	"github.com/openlifting/liftrelay/pkg/types"
)

// PullView serves the consumer pull interface: compute (or reuse) the named
// view-model variant for a platform and option set. Identical concurrent
// requests are safe and share one cached payload per version.
func PullView(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Checked before the cache: while the latch is set versions never
		// move, so a warm entry would keep answering 200.
		if err := d.Hub.ProtocolError(); err != nil {
			writePullError(w, err)
			return
		}

		variant := chi.URLParam(r, "variant")
		q := r.URL.Query()
		fop := q.Get("fop")

		opts := make(map[string]string, len(q))
		for k := range q {
			if k == "fop" {
				continue
			}
			opts[k] = q.Get(k)
		}

		payload, version, err := d.Cache.GetOrCompute(variant, fop, opts, func() (*cache.Payload, error) {
			vm, err := view.Compute(d.Hub, variant, fop, opts)
			if err != nil {
				return nil, err
			}
			encoded, err := json.Marshal(vm)
			if err != nil {
				return nil, err
			}
			return &cache.Payload{Value: vm, Forms: map[string][]byte{"json": encoded}}, nil
		})
		if err != nil {
			writePullError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-State-Version", strconv.FormatUint(version, 10))
		_, _ = w.Write(payload.Forms["json"])
	}
}

func writePullError(w http.ResponseWriter, err error) {
	var protoErr *hub.ProtocolError
	switch {
	case errors.Is(err, view.ErrUnknownVariant):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, hub.ErrNoSnapshot):
		writeJSON(w, http.StatusPreconditionRequired, map[string]any{
			"error":   "no snapshot loaded",
			"missing": []string{types.MsgFullSnapshot},
		})
	case errors.As(err, &protoErr):
		// The sticky protocol failure is distinguished to every pull caller;
		// it is never served as stale-but-valid data.
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error":        "origin protocol mismatch",
			"got_protocol": protoErr.Got,
			"min_protocol": protoErr.Min,
		})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func Platforms(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"platforms": h.Platforms()})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

type platformStatus struct {
	Version         uint64  `json:"version"`
	LastActivitySec float64 `json:"last_activity_sec"`
}

// Statusz is the operational snapshot: staleness is exposed only through
// last-activity ages, never through automatic expiry of served state.
func Statusz(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fops := make(map[string]platformStatus)
		for _, name := range d.Hub.Platforms() {
			last, _ := d.Hub.LastActivity(name)
			fops[name] = platformStatus{
				Version:         d.Hub.Version(name),
				LastActivitySec: time.Since(last).Seconds(),
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"uptime_sec":     d.Hub.Uptime().Seconds(),
			"global_version": d.Hub.Version(""),
			"snapshot":       d.Hub.HasSnapshot(),
			"consumers":      d.Broker.Len(),
			"cache_entries":  d.Cache.Len(),
			"platforms":      fops,
		})
	}
}

func FlushCaches(c *cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.FlushAll()
		w.WriteHeader(http.StatusNoContent)
	}
}

// ForceResync terminates the origin connection so the origin reconnects and
// resends a full snapshot; caches are flushed alongside.
func ForceResync(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.Origin.ForceResync()
		d.Cache.FlushAll()
		d.Log.Info("forced resync requested")
		w.WriteHeader(http.StatusAccepted)
	}
}

func adminGuard(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret != "" {
				got := r.Header.Get("X-Admin-Secret")
				if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
