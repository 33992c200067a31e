// Package status serves a plain-text status page and Prometheus metrics for a
// running host.
package status

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"text/template"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownGrace = 2 * time.Second

type Server struct {
	srv  *http.Server
	ln   net.Listener
	done chan struct{}

	once sync.Once
	err  error
}

type page struct {
	tmpl     *template.Template
	provider func() Data
}

func (p page) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path != "/":
		http.NotFound(w, r)
	case r.Method == http.MethodGet || r.Method == http.MethodHead:
		p.render(w)
	default:
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

// render executes into a buffer first so a template failure never leaves a
// half-written 200 behind.
func (p page) render(w http.ResponseWriter) {
	var d Data
	if p.provider != nil {
		d = p.provider()
	}
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, d); err != nil {
		slog.Warn("status template failed", "err", err)
		http.Error(w, "status unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// Handler builds the status mux. gatherer may be nil, in which case /metrics
// is not served.
func Handler(provider func() Data, gatherer prometheus.Gatherer) (http.Handler, error) {
	tmpl, err := loadTemplate()
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/", page{tmpl: tmpl, provider: provider})
	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return mux, nil
}

// Start listens on addr and serves until ctx is done or Shutdown is called.
func Start(ctx context.Context, addr string, provider func() Data, gatherer prometheus.Gatherer) (*Server, error) {
	if addr == "" {
		return nil, fmt.Errorf("status addr is empty")
	}
	h, err := Handler(provider, gatherer)
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("status listen %s: %w", addr, err)
	}

	s := &Server{
		srv: &http.Server{
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ln:   ln,
		done: make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("status server stopped", "addr", addr, "err", err)
		}
	}()
	go func() {
		select {
		case <-ctx.Done():
			sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			_ = s.Shutdown(sctx)
		case <-s.done:
		}
	}()
	return s, nil
}

// Shutdown stops accepting connections, drains in-flight requests and waits
// for the serve loop to exit, so the listen address is free on return. Safe
// to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	s.once.Do(func() {
		s.err = s.srv.Shutdown(ctx)
	})
	select {
	case <-s.done:
		return s.err
	case <-ctx.Done():
		return errors.Join(s.err, ctx.Err())
	}
}

// Addr is the bound listen address, useful when addr used port 0.
func (s *Server) Addr() string { return s.ln.Addr().String() }
