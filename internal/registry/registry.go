package registry

import (
	"slices"
	"sync"
	"time"

	"spongycord/internal/proto"
)

// ID identifies one pending matcher.
type ID uint64

// Matcher is a one-shot expectation of a reply. It matches a frame whose tag
// equals Tag and, when Keyed, whose echoed key equals Key.
type Matcher struct {
	Tag   string
	Key   string
	Keyed bool

	// Deliver runs at most once, after the matcher has left the registry.
	// Its error is returned from Dispatch.
	Deliver func(payload []byte) error
	// Expire is optional and runs when SweepExpired drops the matcher.
	Expire func()
}

func (m Matcher) matches(h proto.Header) bool {
	if m.Tag != h.Tag {
		return false
	}
	if m.Keyed {
		return h.Keyed && m.Key == h.Key
	}
	return true
}

type entry struct {
	id      ID
	m       Matcher
	addedAt time.Time
}

// Registry holds pending matchers. Register, Dispatch, Cancel and
// SweepExpired are safe to call from any goroutine.
type Registry struct {
	mu      sync.Mutex
	nextID  ID
	pending []entry // oldest first

	metrics *Metrics
	now     func() time.Time
}

type Option func(*Registry)

func WithMetrics(m *Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func New(opts ...Option) *Registry {
	r := &Registry{nextID: 1, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Register(m Matcher) ID {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.pending = append(r.pending, entry{id: id, m: m, addedAt: r.now()})
	r.metrics.registered(len(r.pending))
	r.mu.Unlock()
	return id
}

// Dispatch offers payload to the pending matchers, oldest first. The first
// match is removed and then delivered; later matchers are not looked at.
// It reports whether a matcher fired, along with the error from its Deliver.
// A payload whose header cannot be read fires nothing and returns the read
// error.
func (r *Registry) Dispatch(payload []byte) (bool, error) {
	h, err := proto.ReadHeader(payload)
	if err != nil {
		r.metrics.dropped()
		return false, err
	}
	if !proto.KnownReply(h.Tag) {
		r.metrics.dropped()
		return false, nil
	}

	m, ok := r.claim(h)
	if !ok {
		r.metrics.dropped()
		return false, nil
	}
	if m.Deliver == nil {
		return true, nil
	}
	return true, m.Deliver(payload)
}

// claim removes and returns the oldest matcher for h. The pending gauge is
// updated under the same lock so it never lags a concurrent Register.
func (r *Registry) claim(h proto.Header) (Matcher, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.pending {
		if !e.m.matches(h) {
			continue
		}
		r.pending = slices.Delete(r.pending, i, i+1)
		r.metrics.fired(h.Tag, len(r.pending))
		return e.m, true
	}
	return Matcher{}, false
}

// Cancel drops a pending matcher without firing it.
func (r *Registry) Cancel(id ID) bool {
	r.mu.Lock()
	found := false
	for i, e := range r.pending {
		if e.id == id {
			r.pending = slices.Delete(r.pending, i, i+1)
			r.metrics.cancelled(len(r.pending))
			found = true
			break
		}
	}
	r.mu.Unlock()
	return found
}

// SweepExpired drops matchers registered at least maxAge before now and
// calls their Expire hooks. Returns the dropped matchers.
func (r *Registry) SweepExpired(now time.Time, maxAge time.Duration) []Matcher {
	if maxAge <= 0 {
		return nil
	}
	if now.IsZero() {
		now = r.now()
	}

	r.mu.Lock()
	var expired []Matcher
	kept := r.pending[:0]
	for _, e := range r.pending {
		if now.Sub(e.addedAt) >= maxAge {
			expired = append(expired, e.m)
			continue
		}
		kept = append(kept, e)
	}
	// Clear the tail so dropped closures can be collected.
	for i := len(kept); i < len(r.pending); i++ {
		r.pending[i] = entry{}
	}
	r.pending = kept
	r.metrics.expired(len(expired), len(r.pending))
	r.mu.Unlock()

	for _, m := range expired {
		if m.Expire != nil {
			m.Expire()
		}
	}
	return expired
}

func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
