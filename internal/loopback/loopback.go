// Package loopback is an in-memory channel registrar. It records every frame
// a backend sends and lets the caller inject frames as if the proxy had
// answered.
package loopback

import (
	"errors"
	"fmt"
	"sync"

	"spongycord/bungee"
)

var (
	ErrAlreadyBound = errors.New("loopback: channel already bound")
	ErrNotBound     = errors.New("loopback: channel not bound")
)

// Player is an Endpoint identified by name.
type Player string

func (p Player) ID() string { return string(p) }

// Sent is one recorded outbound frame.
type Sent struct {
	To      string
	Payload []byte
}

type Registrar struct {
	mu       sync.Mutex
	channels map[string]*Channel
}

func NewRegistrar() *Registrar {
	return &Registrar{channels: map[string]*Channel{}}
}

func (r *Registrar) Bind(name string, h bungee.FrameHandler) (bungee.Channel, error) {
	if h == nil {
		return nil, fmt.Errorf("loopback: nil handler for %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.channels[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrAlreadyBound, name)
	}
	ch := &Channel{name: name, handler: h}
	r.channels[name] = ch
	return ch, nil
}

func (r *Registrar) Unbind(c bungee.Channel) error {
	ch, ok := c.(*Channel)
	if !ok || ch == nil {
		return ErrNotBound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channels[ch.name] != ch {
		return fmt.Errorf("%w: %q", ErrNotBound, ch.name)
	}
	delete(r.channels, ch.name)
	ch.mu.Lock()
	ch.closed = true
	ch.mu.Unlock()
	return nil
}

// Channel returns the bound channel called name, or nil.
func (r *Registrar) Channel(name string) *Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channels[name]
}

type Channel struct {
	name    string
	handler bungee.FrameHandler

	mu      sync.Mutex
	sent    []Sent
	closed  bool
	sendErr error
	respond func(to bungee.Endpoint, payload []byte) []byte
}

func (c *Channel) Name() string { return c.name }

func (c *Channel) SendTo(to bungee.Endpoint, payload []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrNotBound
	}
	if c.sendErr != nil {
		err := c.sendErr
		c.mu.Unlock()
		return err
	}
	b := make([]byte, len(payload))
	copy(b, payload)
	c.sent = append(c.sent, Sent{To: to.ID(), Payload: b})
	respond := c.respond
	c.mu.Unlock()

	if respond == nil {
		return nil
	}
	if reply := respond(to, b); reply != nil {
		// Replies are delivered before SendTo returns, the tightest ordering
		// a real proxy could produce.
		_ = c.Deliver(reply, to)
	}
	return nil
}

// RespondWith answers every later SendTo with fn's frame; a nil frame means no
// reply. Proxy.Respond is the usual fn.
func (c *Channel) RespondWith(fn func(to bungee.Endpoint, payload []byte) []byte) {
	c.mu.Lock()
	c.respond = fn
	c.mu.Unlock()
}

// FailSends makes every later SendTo return err; nil restores normal sends.
func (c *Channel) FailSends(err error) {
	c.mu.Lock()
	c.sendErr = err
	c.mu.Unlock()
}

func (c *Channel) Sent() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Sent, len(c.sent))
	copy(out, c.sent)
	return out
}

// Deliver feeds an inbound frame to the bound handler on the caller's goroutine.
func (c *Channel) Deliver(payload []byte, from bungee.Endpoint) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrNotBound
	}
	return c.handler(payload, from)
}
