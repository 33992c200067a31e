package bungee

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/atomic"

	"spongycord/internal/proto"
	"spongycord/internal/registry"
)

var (
	ErrChannelUnavailable = errors.New("bungee: channel not bound")
	ErrChannelBound       = errors.New("bungee: channel already bound")
	ErrMissingArgument    = errors.New("bungee: missing argument")
)

func missing(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingArgument, name)
}

type boundChannel struct{ ch Channel }

// Client is the protocol context owned by the hosting application. It holds
// the channel handle and the pending reply matchers, and is safe for use by
// multiple goroutines.
type Client struct {
	bindMu  sync.Mutex
	channel *atomic.Pointer[boundChannel]

	reg       *registry.Registry
	log       *slog.Logger
	tap       Tap
	onDecode  func(tag string, err error)
	framesIn  *atomic.Int64
	framesOut *atomic.Int64
}

type Option func(*Client)

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRegistry replaces the default registry, e.g. with one carrying metrics.
func WithRegistry(r *registry.Registry) Option {
	return func(c *Client) {
		if r != nil {
			c.reg = r
		}
	}
}

func WithTap(t Tap) Option {
	return func(c *Client) { c.tap = t }
}

// WithDecodeErrorHandler is called when a reply matched a pending request but
// its body could not be decoded. The request's result handler is not called.
func WithDecodeErrorHandler(fn func(tag string, err error)) Option {
	return func(c *Client) { c.onDecode = fn }
}

func New(opts ...Option) *Client {
	c := &Client{
		channel:   atomic.NewPointer[boundChannel](nil),
		reg:       registry.New(),
		log:       slog.Default(),
		framesIn:  atomic.NewInt64(0),
		framesOut: atomic.NewInt64(0),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.onDecode == nil {
		c.onDecode = func(tag string, err error) {
			c.log.Warn("reply decode failed", "tag", tag, "err", err)
		}
	}
	return c
}

// Bind installs the channel handle. It is called once, at host startup.
func (c *Client) Bind(ch Channel) error {
	if ch == nil {
		return missing("channel")
	}
	c.bindMu.Lock()
	defer c.bindMu.Unlock()
	if c.channel.Load() != nil {
		return ErrChannelBound
	}
	c.channel.Store(&boundChannel{ch: ch})
	return nil
}

// Release clears the channel handle. Later operations fail with
// ErrChannelUnavailable. Pending matchers are kept.
func (c *Client) Release() bool {
	c.bindMu.Lock()
	defer c.bindMu.Unlock()
	was := c.channel.Load() != nil
	c.channel.Store(nil)
	return was
}

func (c *Client) Bound() bool { return c.channel.Load() != nil }

// Pending reports how many request/reply calls are waiting for a frame.
func (c *Client) Pending() int { return c.reg.Pending() }

// Cancel forgets a pending request; its result handler will not run.
func (c *Client) Cancel(id RequestID) bool { return c.reg.Cancel(id) }

// Registry exposes the pending-reply registry to the host (expiry sweeps).
func (c *Client) Registry() *registry.Registry { return c.reg }

// Stats are frame counters since the client was created.
type Stats struct {
	FramesIn  int64
	FramesOut int64
	Pending   int
}

func (c *Client) Stats() Stats {
	return Stats{
		FramesIn:  c.framesIn.Load(),
		FramesOut: c.framesOut.Load(),
		Pending:   c.reg.Pending(),
	}
}

// HandleFrame is the channel's inbound callback. It offers the frame to the
// pending matchers; at most one result handler runs, on the calling goroutine.
// A frame nobody waits for is dropped without error.
func (c *Client) HandleFrame(payload []byte, from Endpoint) error {
	c.framesIn.Inc()
	if c.tap != nil {
		c.tap.Inbound(from, payload)
	}
	fired, err := c.reg.Dispatch(payload)
	if !fired && err == nil {
		c.log.Debug("inbound frame dropped", "tag", proto.PeekTag(payload), "len", len(payload), "from", endpointID(from))
	}
	return err
}

func (c *Client) bound() (Channel, error) {
	b := c.channel.Load()
	if b == nil {
		return nil, ErrChannelUnavailable
	}
	return b.ch, nil
}

// send encodes req and writes it through the channel. Nothing is written when
// encoding fails.
func (c *Client) send(ch Channel, to Endpoint, req proto.Request) error {
	b, err := proto.Encode(req)
	if err != nil {
		return err
	}
	return c.transmit(ch, to, req.Tag(), b)
}

func (c *Client) transmit(ch Channel, to Endpoint, tag string, b []byte) error {
	if c.tap != nil {
		c.tap.Outbound(to, b)
	}
	if err := ch.SendTo(to, b); err != nil {
		return fmt.Errorf("send %s: %w", tag, err)
	}
	c.framesOut.Inc()
	c.log.Debug("frame sent", "tag", tag, "len", len(b), "to", endpointID(to))
	return nil
}

// request sends req and leaves a matcher for its reply. The matcher is in the
// registry before the frame leaves, so a fast reply cannot slip past it; a
// failed send cancels it again. A reply that is dispatched before that cancel
// still runs deliver, so the handler can fire even though request returns the
// send error.
func (c *Client) request(ch Channel, to Endpoint, req proto.Request, key string, keyed bool, deliver func(proto.Reply)) (RequestID, error) {
	b, err := proto.Encode(req)
	if err != nil {
		return 0, err
	}
	tag := req.Tag()
	id := c.reg.Register(registry.Matcher{
		Tag:   tag,
		Key:   key,
		Keyed: keyed,
		Deliver: func(payload []byte) error {
			rep, err := proto.DecodeReply(payload)
			if err != nil {
				c.onDecode(tag, err)
				return err
			}
			deliver(rep)
			return nil
		},
	})
	if err := c.transmit(ch, to, tag, b); err != nil {
		c.reg.Cancel(id)
		return 0, err
	}
	return id, nil
}

func endpointID(e Endpoint) string {
	if e == nil {
		return ""
	}
	return e.ID()
}
