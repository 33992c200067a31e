package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"

	"spongycord/bungee"
	"spongycord/internal/status"
)

var (
	ErrAlreadyStarted = errors.New("host: already started")
	ErrNotStarted     = errors.New("host: not started")
)

const (
	DefaultChannelName = "BungeeCord"
	defaultSweepEvery  = time.Minute
	statusStopTimeout  = 2 * time.Second
)

// Registrar binds named plugin-messaging channels on the hosting server.
type Registrar interface {
	Bind(name string, h bungee.FrameHandler) (bungee.Channel, error)
	Unbind(ch bungee.Channel) error
}

// EventSink receives lifecycle lines; the NDJSON telemetry tap implements it.
type EventSink interface {
	Event(kind, msg string)
}

type Options struct {
	ChannelName string

	// PendingMaxAge > 0 starts a sweeper that drops unanswered requests older
	// than this every SweepEvery.
	PendingMaxAge time.Duration
	SweepEvery    time.Duration

	// StatusAddr starts the status/metrics server when set. Gatherer backs
	// /metrics.
	StatusAddr string
	Gatherer   prometheus.Gatherer

	RunID  string
	Logger *slog.Logger
	Events EventSink
}

// Host ties a Client to the hosting server's channel for the lifetime of the
// plugin: Start at enable, Stop at disable.
type Host struct {
	reg    Registrar
	client *bungee.Client
	opts   Options
	log    *slog.Logger

	mu      sync.Mutex
	started bool
	ch      bungee.Channel
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	status  *status.Server

	// lastExpiry is read by status handlers, which must not take mu: Stop
	// holds mu while draining them.
	lastExpiry atomic.String
}

func New(reg Registrar, client *bungee.Client, opts Options) *Host {
	if opts.ChannelName == "" {
		opts.ChannelName = DefaultChannelName
	}
	if opts.SweepEvery <= 0 {
		opts.SweepEvery = defaultSweepEvery
	}
	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}
	return &Host{
		reg:    reg,
		client: client,
		opts:   opts,
		log:    l.With("channel", opts.ChannelName),
	}
}

func (h *Host) Start(ctx context.Context) error {
	if h.reg == nil || h.client == nil {
		return fmt.Errorf("%w: registrar and client are required", bungee.ErrMissingArgument)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return ErrAlreadyStarted
	}

	ch, err := h.reg.Bind(h.opts.ChannelName, h.client.HandleFrame)
	if err != nil {
		return fmt.Errorf("bind channel %q: %w", h.opts.ChannelName, err)
	}
	if err := h.client.Bind(ch); err != nil {
		_ = h.reg.Unbind(ch)
		return err
	}

	ctx, cancel := context.WithCancel(ctx)

	if h.opts.StatusAddr != "" {
		s, err := status.Start(ctx, h.opts.StatusAddr, h.statusData, h.opts.Gatherer)
		if err != nil {
			cancel()
			h.client.Release()
			_ = h.reg.Unbind(ch)
			return err
		}
		h.status = s
		h.log.Info("status server listening", "addr", s.Addr())
	}

	if h.opts.PendingMaxAge > 0 {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.pendingSweeper(ctx)
		}()
	}

	h.ch = ch
	h.cancel = cancel
	h.started = true

	h.log.Info("channel bound", "pending_max_age", h.opts.PendingMaxAge, "status_addr", h.opts.StatusAddr)
	h.event("startup", fmt.Sprintf("bound channel=%s pending_max_age=%s", h.opts.ChannelName, h.opts.PendingMaxAge))
	return nil
}

// Stop waits for the status server to exit, releases the client so new
// operations fail, then unbinds the channel. Pending requests stay registered.
func (h *Host) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started {
		return ErrNotStarted
	}
	h.cancel()
	h.wg.Wait()

	var statusErr error
	if h.status != nil {
		ctx, cancel := context.WithTimeout(context.Background(), statusStopTimeout)
		statusErr = h.status.Shutdown(ctx)
		cancel()
		if statusErr != nil {
			h.log.Warn("status server shutdown", "err", statusErr)
		}
	}

	h.client.Release()
	err := h.reg.Unbind(h.ch)

	h.started = false
	h.ch = nil
	h.cancel = nil
	h.status = nil

	h.log.Info("channel released", "pending", h.client.Pending())
	h.event("shutdown", fmt.Sprintf("released channel=%s pending=%d", h.opts.ChannelName, h.client.Pending()))
	if err != nil {
		return fmt.Errorf("unbind channel %q: %w", h.opts.ChannelName, err)
	}
	if statusErr != nil {
		return fmt.Errorf("stop status server: %w", statusErr)
	}
	return nil
}

func (h *Host) Started() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.started
}

// StatusAddr is the status server's listen address, or "" when not running.
func (h *Host) StatusAddr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status == nil {
		return ""
	}
	return h.status.Addr()
}

func (h *Host) pendingSweeper(ctx context.Context) {
	t := time.NewTicker(h.opts.SweepEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			expired := h.client.Registry().SweepExpired(now, h.opts.PendingMaxAge)
			for _, m := range expired {
				h.log.Warn("pending request expired", "tag", m.Tag, "key", m.Key, "max_age", h.opts.PendingMaxAge)
			}
			if len(expired) > 0 {
				h.lastExpiry.Store(fmt.Sprintf("last expiry: %d request(s) at %s", len(expired), now.UTC().Format(time.RFC3339)))
				h.event("expiry", fmt.Sprintf("expired=%d", len(expired)))
			}
		}
	}
}

func (h *Host) statusData() status.Data {
	st := h.client.Stats()
	return status.Data{
		Channel:    h.opts.ChannelName,
		Bound:      h.client.Bound(),
		Pending:    st.Pending,
		FramesIn:   st.FramesIn,
		FramesOut:  st.FramesOut,
		RunID:      h.opts.RunID,
		ServerTime: time.Now().UTC().Format(time.RFC3339),
		Message:    h.lastExpiry.Load(),
	}
}

func (h *Host) event(kind, msg string) {
	if h.opts.Events != nil {
		h.opts.Events.Event(kind, msg)
	}
}
