package proto

import (
	"unicode/utf16"
	"unicode/utf8"
)

// The proxy reads and writes strings with Java's DataInput/DataOutput, which use
// "modified UTF-8": U+0000 is two bytes (C0 80) and supplementary characters are
// written as a surrogate pair, three bytes per half.

func appendModifiedUTF8(dst []byte, s string) []byte {
	for _, r := range s {
		switch {
		case r == 0:
			dst = append(dst, 0xc0, 0x80)
		case r < 0x80:
			dst = append(dst, byte(r))
		case r < 0x10000:
			dst = utf8.AppendRune(dst, r)
		default:
			hi, lo := utf16.EncodeRune(r)
			dst = appendSurrogate(dst, hi)
			dst = appendSurrogate(dst, lo)
		}
	}
	return dst
}

func appendSurrogate(dst []byte, c rune) []byte {
	return append(dst,
		byte(0xe0|(c>>12)),
		byte(0x80|((c>>6)&0x3f)),
		byte(0x80|(c&0x3f)),
	)
}

func decodeModifiedUTF8(b []byte) (string, bool) {
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			if c == 0 {
				return "", false
			}
			units = append(units, uint16(c))
			i++
		case c&0xe0 == 0xc0:
			if i+1 >= len(b) || b[i+1]&0xc0 != 0x80 {
				return "", false
			}
			units = append(units, uint16(c&0x1f)<<6|uint16(b[i+1]&0x3f))
			i += 2
		case c&0xf0 == 0xe0:
			if i+2 >= len(b) || b[i+1]&0xc0 != 0x80 || b[i+2]&0xc0 != 0x80 {
				return "", false
			}
			units = append(units, uint16(c&0x0f)<<12|uint16(b[i+1]&0x3f)<<6|uint16(b[i+2]&0x3f))
			i += 3
		default:
			return "", false
		}
	}
	return string(utf16.Decode(units)), true
}
