// Package hub is the canonical competition state store: the global snapshot,
// one update record per platform, monotonic version counters, and the
// per-platform derived reducer state. Ingestion is single-writer (one origin
// connection); reads are safe under unbounded concurrent callers. Records
// are swapped as whole values, never mutated in place, so a reader can never
// observe a half-written update.
package hub

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openlifting/liftrelay/internal/engine"
	"github.com/openlifting/liftrelay/pkg/types"
)

var ErrNoSnapshot = errors.New("no snapshot loaded")

// ProtocolError is the sticky fatal condition latched on a protocol-version
// mismatch. Every pull caller sees it until the origin connection resets;
// it is never silently downgraded to stale-but-valid data.
type ProtocolError struct {
	Got int
	Min int
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("origin protocol %d below minimum %d", e.Got, e.Min)
}

type ChangeKind string

const (
	ChangeSnapshot ChangeKind = "snapshot"
	ChangeUpdate   ChangeKind = "update"
	ChangeTimer    ChangeKind = "timer"
	ChangeDecision ChangeKind = "decision"
	ChangeBundle   ChangeKind = "bundle"
)

type Change struct {
	Kind       ChangeKind
	Platform   string
	BundleKind string // bundle changes only
	Locale     string // bundle changes only
}

// Update is one decoded incremental-update: the flat presentation record
// plus the break fields already parsed out of it.
type Update struct {
	Record     map[string]string
	Break      engine.BreakInput
	BreakClock engine.TimerEvent
}

// Bundle is an opaque binary asset frame (images, translations, styles).
// Data holds the verbatim tagged wire frame; Kind and Locale are decoded
// from it for keying. The latest bundle per (kind, locale) is kept for
// replay to late joiners.
type Bundle struct {
	Kind   string
	Locale string
	Data   []byte
}

type bundleKey struct{ kind, locale string }

type platform struct {
	record       map[string]string
	version      uint64
	lastActivity time.Time
	timers       map[engine.StopPolicy]engine.TimerState
	breakClock   engine.TimerState
	decision     engine.DecisionState
	brk          engine.BreakState
}

// PlatformView is a read-only copy of one platform's state. Record is the
// published map itself; writers never mutate a published record.
type PlatformView struct {
	Name         string
	Record       map[string]string
	Version      uint64
	LastActivity time.Time
	Timers       map[engine.StopPolicy]engine.TimerState
	BreakClock   engine.TimerState
	Decision     engine.DecisionState
	Break        engine.BreakState
}

type Hub struct {
	mu            sync.RWMutex
	snapshot      *types.Snapshot
	globalVersion uint64
	platforms     map[string]*platform
	bundles       map[bundleKey]Bundle
	protocolErr   *ProtocolError
	resyncPending bool
	started       time.Time

	notify func(Change)
	log    *zap.Logger
}

func New(log *zap.Logger) *Hub {
	return &Hub{
		platforms: make(map[string]*platform),
		bundles:   make(map[bundleKey]Bundle),
		started:   time.Now(),
		notify:    func(Change) {},
		log:       log,
	}
}

// OnChange installs the change listener. Called once during wiring, before
// ingestion starts; the listener runs outside the hub lock and may read back
// from the hub.
func (h *Hub) OnChange(fn func(Change)) {
	if fn != nil {
		h.notify = fn
	}
}

// ApplySnapshot atomically replaces the global snapshot and bumps the global
// version. A pending resync additionally resets the derived reducer memory;
// versions and records survive so counters stay monotonic.
func (h *Hub) ApplySnapshot(s *types.Snapshot) {
	h.mu.Lock()
	h.snapshot = s
	h.globalVersion++
	if h.resyncPending {
		for _, p := range h.platforms {
			p.timers = newTimers()
			p.breakClock = engine.TimerState{}
			p.decision = engine.NewDecisionState()
			p.brk = engine.BreakState{}
		}
		h.resyncPending = false
		h.log.Info("resync snapshot applied, derived state reset",
			zap.Uint64("global_version", h.globalVersion))
	}
	v := h.globalVersion
	h.mu.Unlock()

	h.log.Debug("snapshot applied", zap.Uint64("global_version", v))
	h.notify(Change{Kind: ChangeSnapshot})
}

// ApplyUpdate replaces the platform's update record wholesale and bumps its
// version. Last writer wins per message, never per field.
func (h *Hub) ApplyUpdate(fop string, u Update) {
	h.mu.Lock()
	p := h.ensurePlatform(fop)
	p.record = u.Record
	p.brk = engine.ResolveBreak(u.Break)
	p.breakClock = engine.ReduceTimer(p.breakClock, u.BreakClock, engine.StopPersists)
	p.version++
	p.lastActivity = time.Now()
	v := p.version
	h.mu.Unlock()

	h.log.Debug("update applied", zap.String("fop", fop), zap.Uint64("version", v))
	h.notify(Change{Kind: ChangeUpdate, Platform: fop})
}

// ApplyTimer runs the timer reducer under every stop policy so each display
// variant can read the policy it declares. A Start event also clears the
// decision lights.
func (h *Hub) ApplyTimer(fop string, ev engine.TimerEvent) {
	h.mu.Lock()
	p := h.ensurePlatform(fop)
	for policy, st := range p.timers {
		p.timers[policy] = engine.ReduceTimer(st, ev, policy)
	}
	if ev.Kind == engine.TimerEvStart {
		p.decision = engine.ClearDecision(p.decision)
	}
	p.version++
	p.lastActivity = time.Now()
	h.mu.Unlock()

	h.notify(Change{Kind: ChangeTimer, Platform: fop})
}

func (h *Hub) ApplyDecision(fop string, ev engine.DecisionEvent) {
	h.mu.Lock()
	p := h.ensurePlatform(fop)
	p.decision = engine.ReduceDecision(p.decision, ev)
	p.version++
	p.lastActivity = time.Now()
	h.mu.Unlock()

	h.notify(Change{Kind: ChangeDecision, Platform: fop})
}

// StoreBundle keeps the latest asset bundle per (kind, locale) and
// re-announces it to consumers.
func (h *Hub) StoreBundle(b Bundle) {
	h.mu.Lock()
	h.bundles[bundleKey{b.Kind, b.Locale}] = b
	h.mu.Unlock()

	h.notify(Change{Kind: ChangeBundle, BundleKind: b.Kind, Locale: b.Locale})
}

func (h *Hub) Snapshot() *types.Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshot
}

func (h *Hub) HasSnapshot() bool {
	return h.Snapshot() != nil
}

func (h *Hub) Platform(name string) (PlatformView, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.platforms[name]
	if !ok {
		return PlatformView{}, false
	}
	timers := make(map[engine.StopPolicy]engine.TimerState, len(p.timers))
	for k, v := range p.timers {
		timers[k] = v
	}
	return PlatformView{
		Name:         name,
		Record:       p.record,
		Version:      p.version,
		LastActivity: p.lastActivity,
		Timers:       timers,
		BreakClock:   p.breakClock,
		Decision:     p.decision,
		Break:        p.brk,
	}, true
}

// Version returns the monotonic counter for a scope: the platform's when
// name is non-empty, the global one otherwise. Unknown platforms read 0.
func (h *Hub) Version(name string) uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if name == "" {
		return h.globalVersion
	}
	if p, ok := h.platforms[name]; ok {
		return p.version
	}
	return 0
}

// Platforms lists every platform ever updated, sorted. Platform names are
// not known in advance; consumers discover them here.
func (h *Hub) Platforms() []string {
	h.mu.RLock()
	names := make([]string, 0, len(h.platforms))
	for n := range h.platforms {
		names = append(names, n)
	}
	h.mu.RUnlock()
	sort.Strings(names)
	return names
}

func (h *Hub) LastActivity(name string) (time.Time, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if p, ok := h.platforms[name]; ok {
		return p.lastActivity, true
	}
	return time.Time{}, false
}

func (h *Hub) Bundle(kind, locale string) (Bundle, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	b, ok := h.bundles[bundleKey{kind, locale}]
	return b, ok
}

func (h *Hub) Bundles() []Bundle {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Bundle, 0, len(h.bundles))
	for _, b := range h.bundles {
		out = append(out, b)
	}
	return out
}

// SetProtocolError latches the sticky protocol failure. It stays visible to
// every read until ClearProtocolError, called when the origin reconnects.
func (h *Hub) SetProtocolError(e *ProtocolError) {
	h.mu.Lock()
	h.protocolErr = e
	h.mu.Unlock()
	h.log.Error("protocol version mismatch, ingestion suspended",
		zap.Int("got", e.Got), zap.Int("min", e.Min))
}

func (h *Hub) ProtocolError() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.protocolErr == nil {
		return nil
	}
	return h.protocolErr
}

func (h *Hub) ClearProtocolError() {
	h.mu.Lock()
	h.protocolErr = nil
	h.mu.Unlock()
}

// MarkResyncPending arms a derived-state reset for the next full snapshot.
// A transient origin disconnect never resets reducer memory; only this
// explicit path does.
func (h *Hub) MarkResyncPending() {
	h.mu.Lock()
	h.resyncPending = true
	h.mu.Unlock()
}

func (h *Hub) Uptime() time.Duration {
	return time.Since(h.started)
}

func (h *Hub) ensurePlatform(name string) *platform {
	p, ok := h.platforms[name]
	if !ok {
		p = &platform{
			record:   map[string]string{},
			timers:   newTimers(),
			decision: engine.NewDecisionState(),
		}
		h.platforms[name] = p
	}
	return p
}

func newTimers() map[engine.StopPolicy]engine.TimerState {
	return map[engine.StopPolicy]engine.TimerState{
		engine.StopPersists: {Phase: engine.TimerUnset},
		engine.StopHides:    {Phase: engine.TimerUnset},
	}
}
