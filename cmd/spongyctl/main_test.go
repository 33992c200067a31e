package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"spongycord/internal/config"
	"spongycord/internal/loopback"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestEncodeDecodeRequest(t *testing.T) {
	out, err := run(t, "encode", "Connect", "lobby")
	require.NoError(t, err)
	require.Equal(t, "0007436f6e6e65637400056c6f626279\n", out)

	out, err = run(t, "decode-request", "00 07 43 6F 6E 6E 65 63 74 00 05 6C 6F 62 62 79")
	require.NoError(t, err)
	require.Contains(t, out, "tag: Connect")
	require.Contains(t, out, "Server:lobby")

	out, err = run(t, "encode", "--data-hex", "Forward", "ALL", "chat", "0102")
	require.NoError(t, err)
	hexFrame := strings.TrimSpace(out)
	require.True(t, strings.HasSuffix(hexFrame, "00020102"), hexFrame)

	out, err = run(t, "decode-request", hexFrame)
	require.NoError(t, err)
	require.Contains(t, out, "tag: Forward")
	require.Contains(t, out, "SubChannel:chat")
}

func TestEncodeErrors(t *testing.T) {
	_, err := run(t, "encode", "Nope")
	require.Error(t, err)
	_, err = run(t, "encode", "ConnectOther", "alex")
	require.ErrorContains(t, err, "takes 2 argument(s)")
	_, err = run(t, "encode", "--data-hex", "Forward", "ALL", "chat", "zz")
	require.Error(t, err)
	_, err = run(t, "decode-request", "0007436f6e6e656374")
	require.Error(t, err)
}

func TestDecodeReply(t *testing.T) {
	// PlayerCount reply for lobby with count 42.
	frame := "000b506c61796572436f756e7400056c6f6262790000002a"
	out, err := run(t, "decode-reply", frame)
	require.NoError(t, err)
	require.Contains(t, out, "tag: PlayerCount")
	require.Contains(t, out, "Count:42")
	require.Contains(t, out, `key: "lobby"`)
}

func TestSplit(t *testing.T) {
	out, err := run(t, "split", "alice, bob, carol")
	require.NoError(t, err)
	require.Contains(t, out, "3 name(s)")
	require.Contains(t, out, "2\t\"carol\"")

	out, err = run(t, "split", "")
	require.NoError(t, err)
	require.Contains(t, out, "0 name(s)")
}

func TestConfigCmd(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SC_CHANNEL_NAME", "bungeecord:main")
	out, err := run(t, "config")
	require.NoError(t, err)
	require.Contains(t, out, "# file: none")
	require.Contains(t, out, "channel.name = bungeecord:main")
	require.Contains(t, out, "pending.sweep_every = 1m")
}

func TestParseServers(t *testing.T) {
	got, err := parseServers([]string{"lobby=alice, bob", "empty="})
	require.NoError(t, err)
	require.Equal(t, map[string][]string{"lobby": {"alice", "bob"}, "empty": {}}, got)

	_, err = parseServers([]string{"nope"})
	require.Error(t, err)
	_, err = parseServers([]string{"a=x", "a=y"})
	require.Error(t, err)
}

func TestSimulate(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := config.Load()
	require.NoError(t, err)

	proxy := loopback.NewProxy("lobby", map[string][]string{
		"lobby":    {"alice", "bob"},
		"survival": {"carol"},
	})
	var out bytes.Buffer
	require.NoError(t, simulate(context.Background(), &out, cfg, proxy, false))

	s := out.String()
	require.Contains(t, s, "PlayerCount ALL        3")
	require.Contains(t, s, `PlayerList ALL         ["alice" "bob" "carol"]`)
	require.Contains(t, s, "GetServer              lobby")
	require.Contains(t, s, "ServerIP survival      127.0.0.1:25566")
	require.Contains(t, s, "pending=0")
}

// chdir is a Go 1.21-compatible stand-in for testing.T.Chdir (Go 1.24+):
// it changes the working directory and restores it when the test ends.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
