package bungee

import (
	"net"
	"strconv"

	"spongycord/internal/proto"
	"spongycord/internal/registry"
)

// AllServers is the server name the proxy reads as "the whole network".
const AllServers = proto.AllServers

// Endpoint is a connected player used to route a frame through the channel.
// It need not be the subject of the request.
type Endpoint interface {
	ID() string
}

// Channel is the bound plugin-messaging channel. SendTo delivers one opaque
// frame to the proxy through the given endpoint's connection.
type Channel interface {
	SendTo(to Endpoint, payload []byte) error
}

// FrameHandler receives inbound frames from the channel.
type FrameHandler func(payload []byte, from Endpoint) error

// Tap observes raw frames in both directions. Used for telemetry.
type Tap interface {
	Outbound(to Endpoint, payload []byte)
	Inbound(from Endpoint, payload []byte)
}

// RequestID identifies a pending request/reply call.
type RequestID = registry.ID

// Addr is a host/port pair as reported by the proxy. Host is whatever string
// the proxy sent, normally an IP literal.
type Addr struct {
	Host string
	Port int
}

func (a Addr) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}
