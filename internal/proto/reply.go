package proto

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Reply is one inbound reply frame kind. The set is closed: Key reports the
// echoed field the proxy copies back from the request, when the kind has one.
type Reply interface {
	Tag() string
	Key() (string, bool)
	writeFields(w *Writer)
}

type IPReply struct {
	Host string
	Port int32
}

type PlayerCountReply struct {
	Server string
	Count  int32
}

type PlayerListReply struct {
	Server  string
	Players []string
}

type GetServersReply struct{ Servers []string }

type GetServerReply struct{ Name string }

type UUIDReply struct{ UUID uuid.UUID }

type UUIDOtherReply struct {
	Player string
	UUID   uuid.UUID
}

type ServerIPReply struct {
	Server string
	Host   string
	Port   uint16
}

func (IPReply) Tag() string          { return TagIP }
func (PlayerCountReply) Tag() string { return TagPlayerCount }
func (PlayerListReply) Tag() string  { return TagPlayerList }
func (GetServersReply) Tag() string  { return TagGetServers }
func (GetServerReply) Tag() string   { return TagGetServer }
func (UUIDReply) Tag() string        { return TagUUID }
func (UUIDOtherReply) Tag() string   { return TagUUIDOther }
func (ServerIPReply) Tag() string    { return TagServerIP }

func (IPReply) Key() (string, bool)            { return "", false }
func (m PlayerCountReply) Key() (string, bool) { return m.Server, true }
func (m PlayerListReply) Key() (string, bool)  { return m.Server, true }
func (GetServersReply) Key() (string, bool)    { return "", false }
func (GetServerReply) Key() (string, bool)     { return "", false }
func (UUIDReply) Key() (string, bool)          { return "", false }
func (m UUIDOtherReply) Key() (string, bool)   { return m.Player, true }
func (m ServerIPReply) Key() (string, bool)    { return m.Server, true }

func (m IPReply) writeFields(w *Writer)          { w.WriteUTF(m.Host).WriteInt(m.Port) }
func (m PlayerCountReply) writeFields(w *Writer) { w.WriteUTF(m.Server).WriteInt(m.Count) }
func (m PlayerListReply) writeFields(w *Writer) {
	w.WriteUTF(m.Server).WriteUTF(JoinList(m.Players))
}
func (m GetServersReply) writeFields(w *Writer) { w.WriteUTF(JoinList(m.Servers)) }
func (m GetServerReply) writeFields(w *Writer)  { w.WriteUTF(m.Name) }
func (m UUIDReply) writeFields(w *Writer)       { w.WriteUTF(m.UUID.String()) }
func (m UUIDOtherReply) writeFields(w *Writer) {
	w.WriteUTF(m.Player).WriteUTF(m.UUID.String())
}
func (m ServerIPReply) writeFields(w *Writer) {
	w.WriteUTF(m.Server).WriteUTF(m.Host).WriteUnsignedShort(m.Port)
}

// keyedReplies lists the reply kinds whose second field echoes the request key.
var keyedReplies = map[string]bool{
	TagPlayerCount: true,
	TagPlayerList:  true,
	TagUUIDOther:   true,
	TagServerIP:    true,
}

var knownReplies = map[string]bool{
	TagIP:          true,
	TagPlayerCount: true,
	TagPlayerList:  true,
	TagGetServers:  true,
	TagGetServer:   true,
	TagUUID:        true,
	TagUUIDOther:   true,
	TagServerIP:    true,
}

// KnownReply reports whether tag names a reply kind this package decodes.
func KnownReply(tag string) bool { return knownReplies[tag] }

// Header is the part of a reply frame needed to pick its waiter.
type Header struct {
	Tag   string
	Key   string
	Keyed bool
}

// ReadHeader reads the tag and, for keyed reply kinds, the echoed key. The
// body is not touched, so a reply with a malformed body still has a header.
func ReadHeader(b []byte) (Header, error) {
	r := NewReader(b)
	tag, err := r.ReadUTF()
	if err != nil {
		return Header{}, err
	}
	h := Header{Tag: tag}
	if keyedReplies[tag] {
		if h.Key, err = r.ReadUTF(); err != nil {
			return Header{}, fmt.Errorf("read %s key: %w", tag, err)
		}
		h.Keyed = true
	}
	return h, nil
}

// EncodeReply builds the wire frame the proxy would send for rep.
func EncodeReply(rep Reply) ([]byte, error) {
	if rep == nil {
		return nil, fmt.Errorf("proto: nil reply")
	}
	w := NewWriter(rep.Tag())
	rep.writeFields(w)
	return w.Bytes()
}

// DecodeReply parses an inbound frame from offset 0 into its reply variant.
func DecodeReply(b []byte) (Reply, error) {
	r := NewReader(b)
	tag, err := r.ReadUTF()
	if err != nil {
		return nil, err
	}

	var rep Reply
	switch tag {
	case TagIP:
		var m IPReply
		if m.Host, err = r.ReadUTF(); err == nil {
			m.Port, err = r.ReadInt()
		}
		rep = m
	case TagPlayerCount:
		var m PlayerCountReply
		if m.Server, err = r.ReadUTF(); err == nil {
			m.Count, err = r.ReadInt()
		}
		rep = m
	case TagPlayerList:
		var m PlayerListReply
		var joined string
		if m.Server, err = r.ReadUTF(); err == nil {
			joined, err = r.ReadUTF()
		}
		m.Players = SplitList(joined)
		rep = m
	case TagGetServers:
		var joined string
		joined, err = r.ReadUTF()
		rep = GetServersReply{Servers: SplitList(joined)}
	case TagGetServer:
		var m GetServerReply
		m.Name, err = r.ReadUTF()
		rep = m
	case TagUUID:
		var m UUIDReply
		m.UUID, err = readUUID(r)
		rep = m
	case TagUUIDOther:
		var m UUIDOtherReply
		if m.Player, err = r.ReadUTF(); err == nil {
			m.UUID, err = readUUID(r)
		}
		rep = m
	case TagServerIP:
		var m ServerIPReply
		if m.Server, err = r.ReadUTF(); err == nil {
			if m.Host, err = r.ReadUTF(); err == nil {
				m.Port, err = r.ReadUnsignedShort()
			}
		}
		rep = m
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s reply: %w", tag, err)
	}
	if err := r.Done(); err != nil {
		return nil, fmt.Errorf("decode %s reply: %w", tag, err)
	}
	return rep, nil
}

// readUUID accepts only the canonical 8-4-4-4-12 form; uuid.Parse alone would
// also take urn: and braced variants.
func readUUID(r *Reader) (uuid.UUID, error) {
	s, err := r.ReadUTF()
	if err != nil {
		return uuid.Nil, err
	}
	if len(s) != 36 || strings.Count(s, "-") != 4 {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrMalformedUUID, s)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q: %v", ErrMalformedUUID, s, err)
	}
	return id, nil
}
