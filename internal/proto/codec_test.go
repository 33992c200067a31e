package proto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestEncode_ConnectLayout(t *testing.T) {
	b, err := Encode(Connect{Server: "lobby"})
	require.NoError(t, err)
	want := []byte{
		0x00, 0x07, 'C', 'o', 'n', 'n', 'e', 'c', 't',
		0x00, 0x05, 'l', 'o', 'b', 'b', 'y',
	}
	require.Equal(t, want, b)
}

func TestEncode_ForwardLayout(t *testing.T) {
	b, err := Encode(Forward{Server: "ALL", SubChannel: "sc", Data: []byte{0xAA, 0xBB}})
	require.NoError(t, err)

	r := NewReader(b)
	tag, _ := r.ReadUTF()
	srv, _ := r.ReadUTF()
	sub, _ := r.ReadUTF()
	n, _ := r.ReadUnsignedShort()
	require.Equal(t, "Forward", tag)
	require.Equal(t, "ALL", srv)
	require.Equal(t, "sc", sub)
	require.Equal(t, uint16(2), n)
	require.Equal(t, 2, r.Remaining())
}

func TestEncode_PayloadBoundaries(t *testing.T) {
	for _, n := range []int{0, 1, MaxPayloadBytes} {
		data := bytes.Repeat([]byte{0x5A}, n)
		b, err := Encode(ForwardToPlayer{Player: "alice", SubChannel: "x", Data: data})
		require.NoError(t, err, "len=%d", n)

		got, err := DecodeRequest(b)
		require.NoError(t, err, "len=%d", n)
		require.Equal(t, data, got.(ForwardToPlayer).Data, "len=%d", n)
	}

	_, err := Encode(Forward{Server: "s", SubChannel: "x", Data: make([]byte, MaxPayloadBytes+1)})
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestRequest_RoundTrip(t *testing.T) {
	cases := []Request{
		Connect{Server: "lobby"},
		Connect{Server: ""},
		ConnectOther{Player: "alice", Server: "survival"},
		IPRequest{},
		PlayerCountRequest{Server: AllServers},
		PlayerListRequest{Server: "lobby"},
		GetServersRequest{},
		Message{Player: "bob", Text: "§ahello"},
		GetServerRequest{},
		Forward{Server: "lobby", SubChannel: "MyChannel", Data: []byte{}},
		Forward{Server: AllServers, SubChannel: "", Data: []byte{1, 2, 3}},
		ForwardToPlayer{Player: "carol", SubChannel: "sub", Data: []byte("payload")},
		UUIDRequest{},
		UUIDOtherRequest{Player: "dave"},
		ServerIPRequest{Server: "minigames"},
		KickPlayer{Player: "eve", Reason: ""},
	}
	for _, want := range cases {
		b, err := Encode(want)
		require.NoError(t, err, "%#v", want)
		got, err := DecodeRequest(b)
		require.NoError(t, err, "%#v", want)
		require.Equal(t, want, got)
	}
}

func TestReply_RoundTrip(t *testing.T) {
	id := uuid.MustParse("069a79f4-44e9-4726-a5be-fca90e38aaf5")
	cases := []Reply{
		IPReply{Host: "203.0.113.5", Port: 25577},
		PlayerCountReply{Server: "lobby", Count: 42},
		PlayerCountReply{Server: "", Count: 0},
		PlayerListReply{Server: AllServers, Players: []string{"alice", "bob"}},
		PlayerListReply{Server: "empty", Players: []string{}},
		GetServersReply{Servers: []string{"lobby", "survival", "creative"}},
		GetServerReply{Name: "lobby"},
		UUIDReply{UUID: id},
		UUIDOtherReply{Player: "alice", UUID: id},
		ServerIPReply{Server: "lobby", Host: "10.0.0.2", Port: 65535},
	}
	for _, want := range cases {
		b, err := EncodeReply(want)
		require.NoError(t, err, "%#v", want)
		got, err := DecodeReply(b)
		require.NoError(t, err, "%#v", want)
		require.Equal(t, want, got)
	}
}

func TestReadHeader_KeyedAndUnkeyed(t *testing.T) {
	b, _ := EncodeReply(PlayerCountReply{Server: "lobby", Count: 3})
	h, err := ReadHeader(b)
	require.NoError(t, err)
	require.Equal(t, Header{Tag: TagPlayerCount, Key: "lobby", Keyed: true}, h)

	b, _ = EncodeReply(GetServerReply{Name: "hub"})
	h, err = ReadHeader(b)
	require.NoError(t, err)
	require.Equal(t, Header{Tag: TagGetServer}, h)
}

func TestReadHeader_IgnoresMalformedBody(t *testing.T) {
	b, err := NewWriter(TagUUIDOther).WriteUTF("alice").WriteUTF("not-a-uuid").Bytes()
	require.NoError(t, err)

	h, err := ReadHeader(b)
	require.NoError(t, err)
	require.Equal(t, "alice", h.Key)

	_, err = DecodeReply(b)
	require.ErrorIs(t, err, ErrMalformedUUID)
}

func TestDecodeReply_StrictUUID(t *testing.T) {
	bad := []string{
		"",
		"069a79f444e94726a5befca90e38aaf5",
		"{069a79f4-44e9-4726-a5be-fca90e38aaf5}",
		"urn:uuid:069a79f4-44e9-4726-a5be-fca90e38aaf5",
		"069a79f4-44e9-4726-a5be-fca90e38aafz",
	}
	for _, s := range bad {
		b, _ := NewWriter(TagUUID).WriteUTF(s).Bytes()
		_, err := DecodeReply(b)
		require.ErrorIs(t, err, ErrMalformedUUID, "input %q", s)
	}
}

func TestDecodeReply_Errors(t *testing.T) {
	_, err := DecodeReply(nil)
	require.ErrorIs(t, err, ErrTruncated)

	b, _ := NewWriter("Nope").Bytes()
	_, err = DecodeReply(b)
	require.ErrorIs(t, err, ErrUnknownTag)

	b, _ = NewWriter(TagPlayerCount).WriteUTF("lobby").Bytes()
	_, err = DecodeReply(b)
	require.ErrorIs(t, err, ErrTruncated)

	b, _ = NewWriter(TagGetServer).WriteUTF("hub").WriteInt(1).Bytes()
	_, err = DecodeReply(b)
	require.ErrorIs(t, err, ErrTrailingBytes)
}

func TestReader_PayloadLengthMismatch(t *testing.T) {
	// Declares 10 bytes, carries 3.
	b := []byte{0x00, 0x0a, 1, 2, 3}
	_, err := NewReader(b).ReadPayload()
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("err=%v", err)
	}
}

func TestReader_Reset(t *testing.T) {
	b, _ := EncodeReply(GetServerReply{Name: "hub"})
	r := NewReader(b)
	first, _ := r.ReadUTF()
	r.Reset()
	again, _ := r.ReadUTF()
	if first != again || first != TagGetServer {
		t.Fatalf("first=%q again=%q", first, again)
	}
}

func TestWriter_StringTooLong(t *testing.T) {
	long := string(bytes.Repeat([]byte{'a'}, MaxStringBytes+1))
	_, err := Encode(Message{Player: "p", Text: long})
	require.ErrorIs(t, err, ErrStringTooLong)
}

func TestModifiedUTF8(t *testing.T) {
	in := "a\x00é€😀"
	enc := appendModifiedUTF8(nil, in)
	// NUL is C0 80, the emoji is a surrogate pair of three bytes each.
	require.Equal(t, []byte{'a', 0xc0, 0x80, 0xc3, 0xa9, 0xe2, 0x82, 0xac, 0xed, 0xa0, 0xbd, 0xed, 0xb8, 0x80}, enc)

	out, ok := decodeModifiedUTF8(enc)
	require.True(t, ok)
	require.Equal(t, in, out)

	_, ok = decodeModifiedUTF8([]byte{'a', 0x00})
	require.False(t, ok)
	_, ok = decodeModifiedUTF8([]byte{0xe2, 0x82})
	require.False(t, ok)
}

func TestSplitList(t *testing.T) {
	require.Equal(t, []string{"alice", "bob", "carol"}, SplitList("alice, bob, carol"))
	require.Equal(t, []string{}, SplitList(""))
	require.Equal(t, []string{"solo"}, SplitList("solo"))
	// Known format limitation: the separator is not escaped.
	require.Equal(t, []string{"odd", "name", "x"}, SplitList(JoinList([]string{"odd, name", "x"})))
}

func TestToHex(t *testing.T) {
	if got := ToHex([]byte{0x00, 0xab, 0x10}, 0); got != "00 AB 10" {
		t.Fatalf("got=%q", got)
	}
	if got := ToHex([]byte{1, 2, 3}, 2); got != "01 02 ..." {
		t.Fatalf("got=%q", got)
	}
}
