// Package broker fans state-change frames out to consumer channels with a
// non-blocking send. A channel that cannot keep up is dropped so a stalled
// consumer never delays ingestion or the other consumers.
package broker

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Frame is one pre-encoded outbound message. Binary marks asset bundles,
// which go out as websocket binary frames.
type Frame struct {
	Kind     string
	Platform string
	Locale   string
	Binary   bool
	Data     []byte
}

// Filter scopes a channel. Empty Platform receives every platform; Locale
// applies to translations bundles only.
type Filter struct {
	Platform string
	Locale   string
}

type subscriber struct {
	out    chan Frame
	filter Filter
	once   sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.out) })
}

type Broker struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]*subscriber
	log  *zap.Logger
}

func New(log *zap.Logger) *Broker {
	return &Broker{subs: make(map[uuid.UUID]*subscriber), log: log}
}

// Register adds a channel and returns its deregister func. Deregistration is
// idempotent and safe to call concurrently with an in-flight Publish; the
// channel is closed exactly once, by whoever removes it.
func (b *Broker) Register(buffer int, f Filter) (<-chan Frame, func()) {
	sub := &subscriber{out: make(chan Frame, buffer), filter: f}
	id := uuid.New()

	b.mu.Lock()
	b.subs[id] = sub
	b.mu.Unlock()

	dereg := func() {
		b.mu.Lock()
		s, ok := b.subs[id]
		if ok {
			delete(b.subs, id)
		}
		b.mu.Unlock()
		if ok {
			s.close()
		}
	}
	return sub.out, dereg
}

// Publish forwards the frame to every matching channel. Full channels are
// dropped opportunistically; delivery to the rest is never delayed.
func (b *Broker) Publish(f Frame) {
	b.mu.RLock()
	var dead []uuid.UUID
	for id, sub := range b.subs {
		if !matches(sub.filter, f) {
			continue
		}
		select {
		case sub.out <- f:
		default:
			dead = append(dead, id)
		}
	}
	b.mu.RUnlock()

	if len(dead) == 0 {
		return
	}
	b.mu.Lock()
	for _, id := range dead {
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			sub.close()
			b.log.Debug("slow consumer dropped", zap.String("id", id.String()))
		}
	}
	b.mu.Unlock()
}

func (b *Broker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func matches(f Filter, frame Frame) bool {
	if frame.Platform != "" && f.Platform != "" && f.Platform != frame.Platform {
		return false
	}
	// Locale only scopes translations bundles; an untagged bundle reaches
	// every locale.
	if frame.Kind == "translations" && frame.Locale != "" && f.Locale != "" && f.Locale != frame.Locale {
		return false
	}
	return true
}
