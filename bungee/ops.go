package bungee

import (
	"fmt"

	"github.com/google/uuid"

	"spongycord/internal/proto"
)

// Fire-and-forget operations return once the frame is handed to the channel.

// ConnectPlayer moves player to server.
func (c *Client) ConnectPlayer(player Endpoint, server string) error {
	ch, err := c.bound()
	if err != nil {
		return err
	}
	if player == nil {
		return missing("player")
	}
	return c.send(ch, player, proto.Connect{Server: server})
}

// ConnectOther moves a player, who may be on another backend, to server.
func (c *Client) ConnectOther(player, server string, ref Endpoint) error {
	ch, err := c.bound()
	if err != nil {
		return err
	}
	if ref == nil {
		return missing("reference")
	}
	return c.send(ch, ref, proto.ConnectOther{Player: player, Server: server})
}

// SendMessage sends chat text to a player anywhere on the network. message
// must already be in the proxy's legacy formatting-code form.
func (c *Client) SendMessage(player, message string, ref Endpoint) error {
	ch, err := c.bound()
	if err != nil {
		return err
	}
	if ref == nil {
		return missing("reference")
	}
	return c.send(ch, ref, proto.Message{Player: player, Text: message})
}

// KickPlayer disconnects a player from the network with reason.
func (c *Client) KickPlayer(player, reason string, ref Endpoint) error {
	ch, err := c.bound()
	if err != nil {
		return err
	}
	if ref == nil {
		return missing("reference")
	}
	return c.send(ch, ref, proto.KickPlayer{Player: player, Reason: reason})
}

// ForwardToServer relays data on subChannel to the backends named server.
func (c *Client) ForwardToServer(data []byte, subChannel, server string, ref Endpoint) error {
	ch, err := c.bound()
	if err != nil {
		return err
	}
	if err := checkForward(data, ref); err != nil {
		return err
	}
	return c.send(ch, ref, proto.Forward{Server: server, SubChannel: subChannel, Data: data})
}

// ForwardToAll relays data on subChannel to every backend.
func (c *Client) ForwardToAll(data []byte, subChannel string, ref Endpoint) error {
	return c.ForwardToServer(data, subChannel, AllServers, ref)
}

// ForwardToPlayer relays data on subChannel to the backend player is on.
func (c *Client) ForwardToPlayer(data []byte, subChannel, player string, ref Endpoint) error {
	ch, err := c.bound()
	if err != nil {
		return err
	}
	if err := checkForward(data, ref); err != nil {
		return err
	}
	return c.send(ch, ref, proto.ForwardToPlayer{Player: player, SubChannel: subChannel, Data: data})
}

func checkForward(data []byte, ref Endpoint) error {
	if data == nil {
		return missing("data")
	}
	if ref == nil {
		return missing("reference")
	}
	if len(data) > proto.MaxPayloadBytes {
		return fmt.Errorf("%w: %d bytes", proto.ErrPayloadTooLarge, len(data))
	}
	return nil
}

// Request/reply operations return as soon as the request is sent. fn runs
// later, once, on the goroutine that calls HandleFrame with the reply. If the
// proxy never answers, fn never runs.

// IP asks for the address player connected to the proxy from.
func (c *Client) IP(player Endpoint, fn func(Addr)) (RequestID, error) {
	ch, err := c.bound()
	if err != nil {
		return 0, err
	}
	if player == nil {
		return 0, missing("player")
	}
	if fn == nil {
		return 0, missing("handler")
	}
	return c.request(ch, player, proto.IPRequest{}, "", false, func(r proto.Reply) {
		rep := r.(proto.IPReply)
		fn(Addr{Host: rep.Host, Port: int(rep.Port)})
	})
}

// PlayerCount asks how many players are on server.
func (c *Client) PlayerCount(server string, fn func(int32), ref Endpoint) (RequestID, error) {
	ch, err := c.bound()
	if err != nil {
		return 0, err
	}
	if ref == nil {
		return 0, missing("reference")
	}
	if fn == nil {
		return 0, missing("handler")
	}
	return c.request(ch, ref, proto.PlayerCountRequest{Server: server}, server, true, func(r proto.Reply) {
		fn(r.(proto.PlayerCountReply).Count)
	})
}

// GlobalPlayerCount asks how many players are on the whole network.
func (c *Client) GlobalPlayerCount(fn func(int32), ref Endpoint) (RequestID, error) {
	return c.PlayerCount(AllServers, fn, ref)
}

// PlayerList asks for the names of the players on server.
func (c *Client) PlayerList(server string, fn func([]string), ref Endpoint) (RequestID, error) {
	ch, err := c.bound()
	if err != nil {
		return 0, err
	}
	if ref == nil {
		return 0, missing("reference")
	}
	if fn == nil {
		return 0, missing("handler")
	}
	return c.request(ch, ref, proto.PlayerListRequest{Server: server}, server, true, func(r proto.Reply) {
		fn(r.(proto.PlayerListReply).Players)
	})
}

// AllPlayers asks for the names of every player on the network.
func (c *Client) AllPlayers(fn func([]string), ref Endpoint) (RequestID, error) {
	return c.PlayerList(AllServers, fn, ref)
}

// ServerList asks for the names of every backend behind the proxy.
func (c *Client) ServerList(fn func([]string), ref Endpoint) (RequestID, error) {
	ch, err := c.bound()
	if err != nil {
		return 0, err
	}
	if ref == nil {
		return 0, missing("reference")
	}
	if fn == nil {
		return 0, missing("handler")
	}
	return c.request(ch, ref, proto.GetServersRequest{}, "", false, func(r proto.Reply) {
		fn(r.(proto.GetServersReply).Servers)
	})
}

// ServerName asks for the name the proxy knows this backend by.
func (c *Client) ServerName(fn func(string), ref Endpoint) (RequestID, error) {
	ch, err := c.bound()
	if err != nil {
		return 0, err
	}
	if ref == nil {
		return 0, missing("reference")
	}
	if fn == nil {
		return 0, missing("handler")
	}
	return c.request(ch, ref, proto.GetServerRequest{}, "", false, func(r proto.Reply) {
		fn(r.(proto.GetServerReply).Name)
	})
}

// UUID asks for the proxy-side UUID of a connected player.
func (c *Client) UUID(player Endpoint, fn func(uuid.UUID)) (RequestID, error) {
	ch, err := c.bound()
	if err != nil {
		return 0, err
	}
	if player == nil {
		return 0, missing("player")
	}
	if fn == nil {
		return 0, missing("handler")
	}
	return c.request(ch, player, proto.UUIDRequest{}, "", false, func(r proto.Reply) {
		fn(r.(proto.UUIDReply).UUID)
	})
}

// UUIDOf asks for the proxy-side UUID of a player by name. The player may be
// on another backend.
func (c *Client) UUIDOf(player string, fn func(uuid.UUID), ref Endpoint) (RequestID, error) {
	ch, err := c.bound()
	if err != nil {
		return 0, err
	}
	if ref == nil {
		return 0, missing("reference")
	}
	if fn == nil {
		return 0, missing("handler")
	}
	return c.request(ch, ref, proto.UUIDOtherRequest{Player: player}, player, true, func(r proto.Reply) {
		fn(r.(proto.UUIDOtherReply).UUID)
	})
}

// ServerIP asks for the address of backend server.
func (c *Client) ServerIP(server string, fn func(Addr), ref Endpoint) (RequestID, error) {
	ch, err := c.bound()
	if err != nil {
		return 0, err
	}
	if ref == nil {
		return 0, missing("reference")
	}
	if fn == nil {
		return 0, missing("handler")
	}
	return c.request(ch, ref, proto.ServerIPRequest{Server: server}, server, true, func(r proto.Reply) {
		rep := r.(proto.ServerIPReply)
		fn(Addr{Host: rep.Host, Port: int(rep.Port)})
	})
}
