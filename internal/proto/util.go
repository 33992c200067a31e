package proto

import (
	"fmt"
	"strings"
)

// ToHex renders b as space-separated upper-case byte pairs, truncated to max
// bytes when max > 0.
func ToHex(b []byte, max int) string {
	if len(b) == 0 {
		return ""
	}
	cut := false
	if max > 0 && len(b) > max {
		b = b[:max]
		cut = true
	}
	var sb strings.Builder
	sb.Grow(len(b)*3 + 4)
	for i, v := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", v)
	}
	if cut {
		sb.WriteString(" ...")
	}
	return sb.String()
}

// PeekTag returns the leading tag of a frame, or "" when it cannot be read.
// Used only for logging.
func PeekTag(b []byte) string {
	tag, err := NewReader(b).ReadUTF()
	if err != nil {
		return ""
	}
	return tag
}
