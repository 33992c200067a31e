package host_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"spongycord/bungee"
	"spongycord/host"
	"spongycord/internal/loopback"
	"spongycord/internal/proto"
	"spongycord/internal/registry"
)

type events struct {
	mu    sync.Mutex
	kinds []string
}

func (e *events) Event(kind, _ string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.kinds = append(e.kinds, kind)
}

func (e *events) snapshot() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.kinds...)
}

func TestHost_StartStop(t *testing.T) {
	reg := loopback.NewRegistrar()
	client := bungee.New()
	ev := &events{}
	h := host.New(reg, client, host.Options{Events: ev})

	require.ErrorIs(t, h.Stop(), host.ErrNotStarted)
	require.NoError(t, h.Start(context.Background()))
	require.True(t, h.Started())
	require.True(t, client.Bound())
	require.ErrorIs(t, h.Start(context.Background()), host.ErrAlreadyStarted)

	ch := reg.Channel(host.DefaultChannelName)
	require.NotNil(t, ch)

	steve := loopback.Player("steve")
	var got string
	_, err := client.ServerName(func(s string) { got = s }, steve)
	require.NoError(t, err)
	require.Len(t, ch.Sent(), 1)

	b, err := proto.EncodeReply(proto.GetServerReply{Name: "lobby"})
	require.NoError(t, err)
	require.NoError(t, ch.Deliver(b, steve))
	require.Equal(t, "lobby", got)

	require.NoError(t, h.Stop())
	require.False(t, client.Bound())
	require.Nil(t, reg.Channel(host.DefaultChannelName))
	require.ErrorIs(t, client.ConnectPlayer(steve, "lobby"), bungee.ErrChannelUnavailable)
	require.ErrorIs(t, h.Stop(), host.ErrNotStarted)

	// A stopped host can be started again.
	require.NoError(t, h.Start(context.Background()))
	require.NoError(t, client.ConnectPlayer(steve, "lobby"))
	require.NoError(t, h.Stop())

	require.Equal(t, []string{"startup", "shutdown", "startup", "shutdown"}, ev.snapshot())
}

func TestHost_BindConflict(t *testing.T) {
	reg := loopback.NewRegistrar()
	_, err := reg.Bind("BungeeCord", func([]byte, bungee.Endpoint) error { return nil })
	require.NoError(t, err)

	client := bungee.New()
	h := host.New(reg, client, host.Options{})
	require.ErrorIs(t, h.Start(context.Background()), loopback.ErrAlreadyBound)
	require.False(t, h.Started())
	require.False(t, client.Bound())
}

func TestHost_ClientAlreadyBound(t *testing.T) {
	reg := loopback.NewRegistrar()
	client := bungee.New()
	first := host.New(reg, client, host.Options{ChannelName: "first"})
	require.NoError(t, first.Start(context.Background()))
	defer first.Stop()

	second := host.New(reg, client, host.Options{ChannelName: "second"})
	require.ErrorIs(t, second.Start(context.Background()), bungee.ErrChannelBound)
	require.Nil(t, reg.Channel("second"))
}

func TestHost_ExpirySweeper(t *testing.T) {
	reg := loopback.NewRegistrar()
	client := bungee.New()
	h := host.New(reg, client, host.Options{
		PendingMaxAge: 20 * time.Millisecond,
		SweepEvery:    5 * time.Millisecond,
	})
	require.NoError(t, h.Start(context.Background()))
	defer h.Stop()

	_, err := client.PlayerCount("lobby", func(int32) { t.Error("expired request fired") }, loopback.Player("steve"))
	require.NoError(t, err)
	require.Equal(t, 1, client.Pending())

	require.Eventually(t, func() bool { return client.Pending() == 0 }, 2*time.Second, 5*time.Millisecond)

	b, err := proto.EncodeReply(proto.PlayerCountReply{Server: "lobby", Count: 1})
	require.NoError(t, err)
	require.NoError(t, reg.Channel(host.DefaultChannelName).Deliver(b, loopback.Player("proxy")))
}

func TestHost_StatusServer(t *testing.T) {
	preg := prometheus.NewRegistry()
	client := bungee.New(bungee.WithRegistry(registry.New(registry.WithMetrics(registry.NewMetrics(preg)))))
	reg := loopback.NewRegistrar()
	h := host.New(reg, client, host.Options{
		ChannelName: "bungeecord:main",
		StatusAddr:  "127.0.0.1:0",
		Gatherer:    preg,
		RunID:       "run-test",
	})
	require.NoError(t, h.Start(context.Background()))
	defer h.Stop()

	_, err := client.AllPlayers(func([]string) {}, loopback.Player("steve"))
	require.NoError(t, err)

	get := func(path string) string {
		resp, err := http.Get("http://" + h.StatusAddr() + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		b, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(b)
	}

	page := get("/")
	require.Contains(t, page, "bungeecord:main")
	require.Contains(t, page, "bound:    yes")
	require.Contains(t, page, "pending:  1")
	require.Contains(t, page, "run-test")

	metrics := get("/metrics")
	require.Contains(t, metrics, "spongycord_registry_registered_total 1")
	require.Contains(t, metrics, "spongycord_registry_pending 1")
}

func TestHost_RestartKeepsStatusAddr(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	reg := loopback.NewRegistrar()
	client := bungee.New()
	h := host.New(reg, client, host.Options{StatusAddr: addr})

	for i := 0; i < 5; i++ {
		require.NoError(t, h.Start(context.Background()), "start %d", i)
		require.Equal(t, addr, h.StatusAddr())

		resp, err := http.Get("http://" + addr + "/")
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		require.NoError(t, h.Stop(), "stop %d", i)
		require.Empty(t, h.StatusAddr())
	}
}

func TestHost_StatusShowsLastExpiry(t *testing.T) {
	reg := loopback.NewRegistrar()
	client := bungee.New()
	h := host.New(reg, client, host.Options{
		StatusAddr:    "127.0.0.1:0",
		PendingMaxAge: 20 * time.Millisecond,
		SweepEvery:    5 * time.Millisecond,
	})
	require.NoError(t, h.Start(context.Background()))
	defer h.Stop()

	_, err := client.ServerList(func([]string) {}, loopback.Player("steve"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + h.StatusAddr() + "/")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		return err == nil && strings.Contains(string(b), "last expiry: 1 request(s)")
	}, 2*time.Second, 10*time.Millisecond)
}
