package proto

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MaxStringBytes is the largest encoded string a frame can carry (uint16 length prefix).
const MaxStringBytes = 0xffff

// MaxPayloadBytes is the largest raw run a Forward frame can carry (16-bit count).
const MaxPayloadBytes = 0xffff

var (
	ErrTruncated       = errors.New("proto: truncated frame")
	ErrStringTooLong   = errors.New("proto: string too long")
	ErrMalformedString = errors.New("proto: malformed string")
	ErrPayloadTooLarge = errors.New("proto: payload too large")
	ErrTrailingBytes   = errors.New("proto: trailing bytes after frame")
	ErrUnknownTag      = errors.New("proto: unknown tag")
	ErrMalformedUUID   = errors.New("proto: malformed uuid")
)

// Writer appends typed fields to a frame in wire order.
// The first error sticks; later writes are no-ops.
type Writer struct {
	buf []byte
	err error
}

func NewWriter(tag string) *Writer {
	w := &Writer{buf: make([]byte, 0, 64)}
	return w.WriteUTF(tag)
}

func (w *Writer) WriteUTF(s string) *Writer {
	if w.err != nil {
		return w
	}
	enc := appendModifiedUTF8(nil, s)
	if len(enc) > MaxStringBytes {
		w.err = fmt.Errorf("%w: %d bytes", ErrStringTooLong, len(enc))
		return w
	}
	w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(len(enc)))
	w.buf = append(w.buf, enc...)
	return w
}

func (w *Writer) WriteUnsignedShort(v uint16) *Writer {
	if w.err != nil {
		return w
	}
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
	return w
}

func (w *Writer) WriteInt(v int32) *Writer {
	if w.err != nil {
		return w
	}
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(v))
	return w
}

// WritePayload writes a 16-bit length followed by the raw bytes.
func (w *Writer) WritePayload(b []byte) *Writer {
	if w.err != nil {
		return w
	}
	if len(b) > MaxPayloadBytes {
		w.err = fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(b))
		return w
	}
	w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(len(b)))
	w.buf = append(w.buf, b...)
	return w
}

// Bytes returns the encoded frame or the first write error.
func (w *Writer) Bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf, nil
}

// Reader is a read cursor over an immutable frame.
type Reader struct {
	b   []byte
	off int
}

func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

// Reset rewinds the cursor to offset 0.
func (r *Reader) Reset() { r.off = 0 }

func (r *Reader) Remaining() int { return len(r.b) - r.off }

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, ErrTruncated
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *Reader) ReadUTF() (string, error) {
	lb, err := r.take(2)
	if err != nil {
		return "", err
	}
	raw, err := r.take(int(binary.BigEndian.Uint16(lb)))
	if err != nil {
		return "", err
	}
	s, ok := decodeModifiedUTF8(raw)
	if !ok {
		return "", ErrMalformedString
	}
	return s, nil
}

func (r *Reader) ReadUnsignedShort() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *Reader) ReadInt() (int32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// ReadPayload reads a 16-bit length (unsigned, so 65535 round-trips) and
// returns a copy of that many raw bytes.
func (r *Reader) ReadPayload() ([]byte, error) {
	n, err := r.ReadUnsignedShort()
	if err != nil {
		return nil, err
	}
	raw, err := r.take(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

// Done reports ErrTrailingBytes when the cursor has not consumed the frame.
func (r *Reader) Done() error {
	if n := r.Remaining(); n != 0 {
		return fmt.Errorf("%w: %d", ErrTrailingBytes, n)
	}
	return nil
}
