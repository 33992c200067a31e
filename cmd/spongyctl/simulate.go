package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"spongycord/bungee"
	"spongycord/host"
	"spongycord/internal/config"
	"spongycord/internal/loopback"
	"spongycord/internal/packetlog"
	"spongycord/internal/registry"
)

const replyTimeout = 2 * time.Second

var (
	flagServers []string
	flagSelf    string
	flagHold    bool
)

func newSimulateCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "simulate",
		Short: "Run a backend against an in-memory proxy and print every reply",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if flagLogLevel == "" {
				if err := setupLogging(cfg.LogLevel.String()); err != nil {
					return err
				}
			}
			servers, err := parseServers(flagServers)
			if err != nil {
				return err
			}
			if _, ok := servers[flagSelf]; !ok {
				return fmt.Errorf("--self %q is not one of the --server names", flagSelf)
			}

			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return simulate(ctx, c.OutOrStdout(), cfg, loopback.NewProxy(flagSelf, servers), flagHold)
		},
	}
	c.Flags().StringArrayVar(&flagServers, "server", []string{"lobby=alice,bob", "survival=carol", "creative="}, "backend and its players, 'name=p1,p2'")
	c.Flags().StringVar(&flagSelf, "self", "lobby", "name of the simulated backend")
	c.Flags().BoolVar(&flagHold, "hold", false, "keep running (status endpoint up) until interrupted")
	return c
}

func parseServers(specs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(specs))
	for _, s := range specs {
		name, players, ok := strings.Cut(s, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --server %q, want 'name=p1,p2'", s)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("duplicated --server %q", name)
		}
		list := []string{}
		for _, p := range strings.Split(players, ",") {
			if p = strings.TrimSpace(p); p != "" {
				list = append(list, p)
			}
		}
		out[name] = list
	}
	return out, nil
}

type query struct {
	name string
	run  func(c *bungee.Client, ref bungee.Endpoint, done func(string)) error
}

func requestOnly(_ bungee.RequestID, err error) error { return err }

var queries = []query{
	{"IP", func(c *bungee.Client, ref bungee.Endpoint, done func(string)) error {
		return requestOnly(c.IP(ref, func(a bungee.Addr) { done(a.String()) }))
	}},
	{"PlayerCount ALL", func(c *bungee.Client, ref bungee.Endpoint, done func(string)) error {
		return requestOnly(c.GlobalPlayerCount(func(n int32) { done(fmt.Sprint(n)) }, ref))
	}},
	{"PlayerList ALL", func(c *bungee.Client, ref bungee.Endpoint, done func(string)) error {
		return requestOnly(c.AllPlayers(func(p []string) { done(fmt.Sprintf("%q", p)) }, ref))
	}},
	{"GetServers", func(c *bungee.Client, ref bungee.Endpoint, done func(string)) error {
		return requestOnly(c.ServerList(func(s []string) { done(fmt.Sprintf("%q", s)) }, ref))
	}},
	{"GetServer", func(c *bungee.Client, ref bungee.Endpoint, done func(string)) error {
		return requestOnly(c.ServerName(done, ref))
	}},
	{"UUID", func(c *bungee.Client, ref bungee.Endpoint, done func(string)) error {
		return requestOnly(c.UUID(ref, func(u uuid.UUID) { done(u.String()) }))
	}},
}

func perServerQueries(servers []string) []query {
	var out []query
	for _, s := range servers {
		s := s
		out = append(out,
			query{"PlayerCount " + s, func(c *bungee.Client, ref bungee.Endpoint, done func(string)) error {
				return requestOnly(c.PlayerCount(s, func(n int32) { done(fmt.Sprint(n)) }, ref))
			}},
			query{"ServerIP " + s, func(c *bungee.Client, ref bungee.Endpoint, done func(string)) error {
				return requestOnly(c.ServerIP(s, func(a bungee.Addr) { done(a.String()) }, ref))
			}},
		)
	}
	return out
}

func simulate(ctx context.Context, out io.Writer, cfg config.Config, proxy *loopback.Proxy, hold bool) error {
	var tap *packetlog.Tap
	opts := []bungee.Option{bungee.WithLogger(slog.Default())}
	if cfg.NDJSONPath != "" {
		pl, err := packetlog.New(cfg.NDJSONPath)
		if err != nil {
			return fmt.Errorf("open ndjson telemetry file: %w", err)
		}
		defer func() { _ = pl.Close() }()
		tap = packetlog.NewTap(pl, runID, cfg.ChannelName)
		opts = append(opts, bungee.WithTap(tap))
		slog.Info("ndjson telemetry enabled", "path", cfg.NDJSONPath)
	}

	preg := prometheus.NewRegistry()
	preg.MustRegister(collectors.NewGoCollector())
	opts = append(opts, bungee.WithRegistry(registry.New(registry.WithMetrics(registry.NewMetrics(preg)))))
	client := bungee.New(opts...)

	hostOpts := host.Options{
		ChannelName:   cfg.ChannelName,
		PendingMaxAge: cfg.PendingMaxAge,
		SweepEvery:    cfg.PendingSweepEvery,
		StatusAddr:    cfg.StatusAddr,
		Gatherer:      preg,
		RunID:         runID,
	}
	if tap != nil {
		hostOpts.Events = tap
	}

	reg := loopback.NewRegistrar()
	h := host.New(reg, client, hostOpts)
	if err := h.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := h.Stop(); err != nil {
			slog.Warn("host stop failed", "err", err)
		}
	}()
	reg.Channel(cfg.ChannelName).RespondWith(proxy.Respond)

	ref := loopback.Player("console")
	if players := proxy.Servers[proxy.Self]; len(players) > 0 {
		ref = loopback.Player(players[0])
	}

	serversCh := make(chan []string, 1)
	if err := requestOnly(client.ServerList(func(s []string) { serversCh <- s }, ref)); err != nil {
		return err
	}
	var servers []string
	select {
	case servers = <-serversCh:
	case <-time.After(replyTimeout):
		return errors.New("GetServers: no reply from proxy")
	case <-ctx.Done():
		return ctx.Err()
	}
	all := append(append([]query{}, queries...), perServerQueries(servers)...)

	results := make([]string, len(all))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range all {
		i, q := i, q
		g.Go(func() error {
			res := make(chan string, 1)
			if err := q.run(client, ref, func(s string) { res <- s }); err != nil {
				return fmt.Errorf("%s: %w", q.name, err)
			}
			select {
			case s := <-res:
				results[i] = s
			case <-time.After(replyTimeout):
				results[i] = "(no reply)"
			case <-gctx.Done():
				return gctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, q := range all {
		fmt.Fprintf(out, "%-22s %s\n", q.name, results[i])
	}
	st := client.Stats()
	fmt.Fprintf(out, "frames in=%d out=%d pending=%d\n", st.FramesIn, st.FramesOut, st.Pending)

	if hold {
		slog.Info("holding; interrupt to exit", "status_addr", h.StatusAddr())
		<-ctx.Done()
		if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return nil
}
