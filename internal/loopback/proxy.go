package loopback

import (
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"spongycord/bungee"
	"spongycord/internal/proto"
)

const basePort = 25565

// Proxy answers request frames the way a BungeeCord proxy with a fixed network
// layout would. Requests about unknown servers get no reply, as on a real
// proxy.
type Proxy struct {
	mu sync.Mutex

	// Self is the name the proxy knows the calling backend by.
	Self string
	// Servers maps backend name to the players on it.
	Servers map[string][]string
	// Kicked and Moved record fire-and-forget requests by player name.
	Kicked map[string]string
	Moved  map[string]string
}

func NewProxy(self string, servers map[string][]string) *Proxy {
	return &Proxy{
		Self:    self,
		Servers: servers,
		Kicked:  map[string]string{},
		Moved:   map[string]string{},
	}
}

// OfflineUUID is the stable UUID the proxy reports for a player name.
func OfflineUUID(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("OfflinePlayer:"+name))
}

func (p *Proxy) Respond(to bungee.Endpoint, frame []byte) []byte {
	req, err := proto.DecodeRequest(frame)
	if err != nil {
		slog.Warn("loopback proxy: bad request frame", "err", err, "hex", proto.ToHex(frame, 32))
		return nil
	}
	rep := p.reply(to, req)
	if rep == nil {
		return nil
	}
	b, err := proto.EncodeReply(rep)
	if err != nil {
		slog.Warn("loopback proxy: encode reply failed", "tag", rep.Tag(), "err", err)
		return nil
	}
	return b
}

func (p *Proxy) reply(to bungee.Endpoint, req proto.Request) proto.Reply {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch m := req.(type) {
	case proto.IPRequest:
		return proto.IPReply{Host: "127.0.0.1", Port: 50000}
	case proto.PlayerCountRequest:
		players, ok := p.players(m.Server)
		if !ok {
			return nil
		}
		return proto.PlayerCountReply{Server: m.Server, Count: int32(len(players))}
	case proto.PlayerListRequest:
		players, ok := p.players(m.Server)
		if !ok {
			return nil
		}
		return proto.PlayerListReply{Server: m.Server, Players: players}
	case proto.GetServersRequest:
		return proto.GetServersReply{Servers: p.serverNames()}
	case proto.GetServerRequest:
		return proto.GetServerReply{Name: p.Self}
	case proto.UUIDRequest:
		return proto.UUIDReply{UUID: OfflineUUID(to.ID())}
	case proto.UUIDOtherRequest:
		if _, online := p.locate(m.Player); !online {
			return nil
		}
		return proto.UUIDOtherReply{Player: m.Player, UUID: OfflineUUID(m.Player)}
	case proto.ServerIPRequest:
		i := slices.Index(p.serverNames(), m.Server)
		if i < 0 {
			return nil
		}
		return proto.ServerIPReply{Server: m.Server, Host: "127.0.0.1", Port: uint16(basePort + i)}
	case proto.Connect:
		p.Moved[to.ID()] = m.Server
	case proto.ConnectOther:
		p.Moved[m.Player] = m.Server
	case proto.KickPlayer:
		p.Kicked[m.Player] = m.Reason
	}
	return nil
}

func (p *Proxy) players(server string) ([]string, bool) {
	if server == proto.AllServers {
		all := []string{}
		for _, name := range p.serverNames() {
			all = append(all, p.Servers[name]...)
		}
		return all, true
	}
	players, ok := p.Servers[server]
	if !ok {
		return nil, false
	}
	if players == nil {
		players = []string{}
	}
	return players, true
}

func (p *Proxy) serverNames() []string {
	names := make([]string, 0, len(p.Servers))
	for name := range p.Servers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (p *Proxy) locate(player string) (string, bool) {
	for server, players := range p.Servers {
		if slices.Contains(players, player) {
			return server, true
		}
	}
	return "", false
}

// Snapshot returns copies of the Moved and Kicked records.
func (p *Proxy) Snapshot() (moved, kicked map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return maps.Clone(p.Moved), maps.Clone(p.Kicked)
}
