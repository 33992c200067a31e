package proto

import "fmt"

// Tags shared by requests and their replies.
const (
	TagConnect         = "Connect"
	TagConnectOther    = "ConnectOther"
	TagIP              = "IP"
	TagPlayerCount     = "PlayerCount"
	TagPlayerList      = "PlayerList"
	TagGetServers      = "GetServers"
	TagMessage         = "Message"
	TagGetServer       = "GetServer"
	TagForward         = "Forward"
	TagForwardToPlayer = "ForwardToPlayer"
	TagUUID            = "UUID"
	TagUUIDOther       = "UUIDOther"
	TagServerIP        = "ServerIP"
	TagKickPlayer      = "KickPlayer"
)

// AllServers is the server name the proxy reads as "the whole network".
const AllServers = "ALL"

// Request is one outbound frame kind.
type Request interface {
	Tag() string
	writeFields(w *Writer)
}

type Connect struct{ Server string }

type ConnectOther struct{ Player, Server string }

type IPRequest struct{}

type PlayerCountRequest struct{ Server string }

type PlayerListRequest struct{ Server string }

type GetServersRequest struct{}

type Message struct{ Player, Text string }

type GetServerRequest struct{}

// Forward relays Data to SubChannel on Server (or AllServers).
type Forward struct {
	Server     string
	SubChannel string
	Data       []byte
}

type ForwardToPlayer struct {
	Player     string
	SubChannel string
	Data       []byte
}

type UUIDRequest struct{}

type UUIDOtherRequest struct{ Player string }

type ServerIPRequest struct{ Server string }

type KickPlayer struct{ Player, Reason string }

func (Connect) Tag() string            { return TagConnect }
func (ConnectOther) Tag() string       { return TagConnectOther }
func (IPRequest) Tag() string          { return TagIP }
func (PlayerCountRequest) Tag() string { return TagPlayerCount }
func (PlayerListRequest) Tag() string  { return TagPlayerList }
func (GetServersRequest) Tag() string  { return TagGetServers }
func (Message) Tag() string            { return TagMessage }
func (GetServerRequest) Tag() string   { return TagGetServer }
func (Forward) Tag() string            { return TagForward }
func (ForwardToPlayer) Tag() string    { return TagForwardToPlayer }
func (UUIDRequest) Tag() string        { return TagUUID }
func (UUIDOtherRequest) Tag() string   { return TagUUIDOther }
func (ServerIPRequest) Tag() string    { return TagServerIP }
func (KickPlayer) Tag() string         { return TagKickPlayer }

func (m Connect) writeFields(w *Writer)            { w.WriteUTF(m.Server) }
func (m ConnectOther) writeFields(w *Writer)       { w.WriteUTF(m.Player).WriteUTF(m.Server) }
func (IPRequest) writeFields(*Writer)              {}
func (m PlayerCountRequest) writeFields(w *Writer) { w.WriteUTF(m.Server) }
func (m PlayerListRequest) writeFields(w *Writer)  { w.WriteUTF(m.Server) }
func (GetServersRequest) writeFields(*Writer)      {}
func (m Message) writeFields(w *Writer)            { w.WriteUTF(m.Player).WriteUTF(m.Text) }
func (GetServerRequest) writeFields(*Writer)       {}
func (m Forward) writeFields(w *Writer) {
	w.WriteUTF(m.Server).WriteUTF(m.SubChannel).WritePayload(m.Data)
}
func (m ForwardToPlayer) writeFields(w *Writer) {
	w.WriteUTF(m.Player).WriteUTF(m.SubChannel).WritePayload(m.Data)
}
func (UUIDRequest) writeFields(*Writer)          {}
func (m UUIDOtherRequest) writeFields(w *Writer) { w.WriteUTF(m.Player) }
func (m ServerIPRequest) writeFields(w *Writer)  { w.WriteUTF(m.Server) }
func (m KickPlayer) writeFields(w *Writer)       { w.WriteUTF(m.Player).WriteUTF(m.Reason) }

// Encode builds the wire frame for req. Nothing is returned on error, so a
// caller never transmits a partial frame.
func Encode(req Request) ([]byte, error) {
	if req == nil {
		return nil, fmt.Errorf("proto: nil request")
	}
	w := NewWriter(req.Tag())
	req.writeFields(w)
	return w.Bytes()
}

// DecodeRequest parses an outbound frame back into its request variant.
func DecodeRequest(b []byte) (Request, error) {
	r := NewReader(b)
	tag, err := r.ReadUTF()
	if err != nil {
		return nil, err
	}

	var req Request
	switch tag {
	case TagConnect:
		var m Connect
		m.Server, err = r.ReadUTF()
		req = m
	case TagConnectOther:
		var m ConnectOther
		if m.Player, err = r.ReadUTF(); err == nil {
			m.Server, err = r.ReadUTF()
		}
		req = m
	case TagIP:
		req = IPRequest{}
	case TagPlayerCount:
		var m PlayerCountRequest
		m.Server, err = r.ReadUTF()
		req = m
	case TagPlayerList:
		var m PlayerListRequest
		m.Server, err = r.ReadUTF()
		req = m
	case TagGetServers:
		req = GetServersRequest{}
	case TagMessage:
		var m Message
		if m.Player, err = r.ReadUTF(); err == nil {
			m.Text, err = r.ReadUTF()
		}
		req = m
	case TagGetServer:
		req = GetServerRequest{}
	case TagForward:
		var m Forward
		m.Server, m.SubChannel, m.Data, err = readForward(r)
		req = m
	case TagForwardToPlayer:
		var m ForwardToPlayer
		m.Player, m.SubChannel, m.Data, err = readForward(r)
		req = m
	case TagUUID:
		req = UUIDRequest{}
	case TagUUIDOther:
		var m UUIDOtherRequest
		m.Player, err = r.ReadUTF()
		req = m
	case TagServerIP:
		var m ServerIPRequest
		m.Server, err = r.ReadUTF()
		req = m
	case TagKickPlayer:
		var m KickPlayer
		if m.Player, err = r.ReadUTF(); err == nil {
			m.Reason, err = r.ReadUTF()
		}
		req = m
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s request: %w", tag, err)
	}
	if err := r.Done(); err != nil {
		return nil, fmt.Errorf("decode %s request: %w", tag, err)
	}
	return req, nil
}

func readForward(r *Reader) (target, sub string, data []byte, err error) {
	if target, err = r.ReadUTF(); err != nil {
		return
	}
	if sub, err = r.ReadUTF(); err != nil {
		return
	}
	data, err = r.ReadPayload()
	return
}
