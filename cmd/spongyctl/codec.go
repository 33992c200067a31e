package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"spongycord/internal/proto"
)

var flagDataHex bool

type requestSpec struct {
	args  []string
	build func(a []string, data []byte) proto.Request
}

var requestSpecs = map[string]requestSpec{
	proto.TagConnect: {[]string{"server"}, func(a []string, _ []byte) proto.Request {
		return proto.Connect{Server: a[0]}
	}},
	proto.TagConnectOther: {[]string{"player", "server"}, func(a []string, _ []byte) proto.Request {
		return proto.ConnectOther{Player: a[0], Server: a[1]}
	}},
	proto.TagIP: {nil, func([]string, []byte) proto.Request { return proto.IPRequest{} }},
	proto.TagPlayerCount: {[]string{"server"}, func(a []string, _ []byte) proto.Request {
		return proto.PlayerCountRequest{Server: a[0]}
	}},
	proto.TagPlayerList: {[]string{"server"}, func(a []string, _ []byte) proto.Request {
		return proto.PlayerListRequest{Server: a[0]}
	}},
	proto.TagGetServers: {nil, func([]string, []byte) proto.Request { return proto.GetServersRequest{} }},
	proto.TagMessage: {[]string{"player", "text"}, func(a []string, _ []byte) proto.Request {
		return proto.Message{Player: a[0], Text: a[1]}
	}},
	proto.TagGetServer: {nil, func([]string, []byte) proto.Request { return proto.GetServerRequest{} }},
	proto.TagForward: {[]string{"server", "subchannel", "data"}, func(a []string, data []byte) proto.Request {
		return proto.Forward{Server: a[0], SubChannel: a[1], Data: data}
	}},
	proto.TagForwardToPlayer: {[]string{"player", "subchannel", "data"}, func(a []string, data []byte) proto.Request {
		return proto.ForwardToPlayer{Player: a[0], SubChannel: a[1], Data: data}
	}},
	proto.TagUUID: {nil, func([]string, []byte) proto.Request { return proto.UUIDRequest{} }},
	proto.TagUUIDOther: {[]string{"player"}, func(a []string, _ []byte) proto.Request {
		return proto.UUIDOtherRequest{Player: a[0]}
	}},
	proto.TagServerIP: {[]string{"server"}, func(a []string, _ []byte) proto.Request {
		return proto.ServerIPRequest{Server: a[0]}
	}},
	proto.TagKickPlayer: {[]string{"player", "reason"}, func(a []string, _ []byte) proto.Request {
		return proto.KickPlayer{Player: a[0], Reason: a[1]}
	}},
}

func buildRequest(tag string, args []string, dataHex bool) (proto.Request, error) {
	spec, ok := requestSpecs[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", proto.ErrUnknownTag, tag)
	}
	if len(args) != len(spec.args) {
		return nil, fmt.Errorf("%s takes %d argument(s) <%s>, got %d", tag, len(spec.args), strings.Join(spec.args, "> <"), len(args))
	}
	var data []byte
	if n := len(spec.args); n > 0 && spec.args[n-1] == "data" {
		data = []byte(args[n-1])
		if dataHex {
			b, err := parseHex(args[n-1])
			if err != nil {
				return nil, fmt.Errorf("data: %w", err)
			}
			data = b
		}
	}
	return spec.build(args, data), nil
}

// parseHex accepts plain or space-separated hex, any case.
func parseHex(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if b == nil {
		b = []byte{}
	}
	return b, nil
}

func newEncodeCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "encode <tag> [args...]",
		Short: "Encode a request frame and print it as hex",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			req, err := buildRequest(args[0], args[1:], flagDataHex)
			if err != nil {
				return err
			}
			b, err := proto.Encode(req)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), hex.EncodeToString(b))
			return nil
		},
	}
	c.Flags().BoolVar(&flagDataHex, "data-hex", false, "treat the Forward data argument as hex")
	return c
}

func newDecodeRequestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode-request <hex>",
		Short: "Decode a request frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			b, err := parseHex(args[0])
			if err != nil {
				return err
			}
			req, err := proto.DecodeRequest(b)
			if err != nil {
				return err
			}
			printVariant(c.OutOrStdout(), req.Tag(), req)
			return nil
		},
	}
}

func newDecodeReplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode-reply <hex>",
		Short: "Decode a reply frame and show how it would be matched",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			b, err := parseHex(args[0])
			if err != nil {
				return err
			}
			h, err := proto.ReadHeader(b)
			if err != nil {
				return err
			}
			rep, err := proto.DecodeReply(b)
			if err != nil {
				return err
			}
			printVariant(c.OutOrStdout(), rep.Tag(), rep)
			if h.Keyed {
				fmt.Fprintf(c.OutOrStdout(), "key: %q\n", h.Key)
			}
			return nil
		},
	}
}

func printVariant(w io.Writer, tag string, v any) {
	fmt.Fprintf(w, "tag: %s\n", tag)
	fmt.Fprintf(w, "value: %+v\n", v)
}

func newSplitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "split <joined>",
		Short: "Split a comma-space joined name list the way replies are decoded",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			names := proto.SplitList(args[0])
			fmt.Fprintf(c.OutOrStdout(), "%d name(s)\n", len(names))
			for i, n := range names {
				fmt.Fprintf(c.OutOrStdout(), "%d\t%q\n", i, n)
			}
			return nil
		},
	}
}
