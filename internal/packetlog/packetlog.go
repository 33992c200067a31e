package packetlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"spongycord/bungee"
	"spongycord/internal/proto"
)

const previewBytes = 64

var ErrClosed = errors.New("packetlog: closed")

// NewRunID returns a time-ordered id so runs sort by start time in the
// telemetry files.
func NewRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

type Record struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"ts"`
	Type      string `json:"type"`
	Direction string `json:"direction,omitempty"`
	Channel   string `json:"channel,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	Length    int    `json:"len,omitempty"`
	Tag       string `json:"tag,omitempty"`
	Hex       string `json:"hex,omitempty"`
	Message   string `json:"message,omitempty"`
}

type Logger struct {
	mu sync.Mutex
	c  io.Closer
	w  *bufio.Writer
}

func New(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Logger{
		c: f,
		w: bufio.NewWriterSize(f, 256*1024),
	}, nil
}

// NewWriter logs to w; Close flushes but does not close it.
func NewWriter(w io.Writer) *Logger {
	return &Logger{w: bufio.NewWriter(w)}
}

func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w != nil {
		_ = l.w.Flush()
		l.w = nil
	}
	if l.c != nil {
		return l.c.Close()
	}
	return nil
}

// Log writes rec as one line and flushes it. A nil Logger discards; a closed
// one returns ErrClosed.
func (l *Logger) Log(rec Record) error {
	if l == nil {
		return nil
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", rec.Type, err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return ErrClosed
	}
	if _, err := l.w.Write(line); err != nil {
		return err
	}
	return l.w.Flush()
}

// Tap records every frame the client sends or receives on one channel.
type Tap struct {
	log     *Logger
	runID   string
	channel string
	now     func() time.Time
}

var _ bungee.Tap = (*Tap)(nil)

func NewTap(l *Logger, runID, channel string) *Tap {
	return &Tap{log: l, runID: runID, channel: channel, now: time.Now}
}

func (t *Tap) Outbound(to bungee.Endpoint, payload []byte) { t.frame("out", to, payload) }

func (t *Tap) Inbound(from bungee.Endpoint, payload []byte) { t.frame("in", from, payload) }

func (t *Tap) frame(dir string, e bungee.Endpoint, payload []byte) {
	rec := Record{
		RunID:     t.runID,
		Timestamp: t.now().UTC(),
		Type:      "frame",
		Direction: dir,
		Channel:   t.channel,
		Length:    len(payload),
		Tag:       proto.PeekTag(payload),
		Hex:       proto.ToHex(payload, previewBytes),
	}
	if e != nil {
		rec.Endpoint = e.ID()
	}
	t.write(rec)
}

// Event records a lifecycle line (startup, shutdown, expiry).
func (t *Tap) Event(kind, msg string) {
	t.write(Record{
		RunID:     t.runID,
		Timestamp: t.now().UTC(),
		Type:      kind,
		Channel:   t.channel,
		Message:   msg,
	})
}

// write never fails the caller: a broken telemetry file must not stop frames.
func (t *Tap) write(rec Record) {
	if err := t.log.Log(rec); err != nil {
		slog.Warn("packetlog write failed", "type", rec.Type, "channel", t.channel, "err", err)
	}
}
