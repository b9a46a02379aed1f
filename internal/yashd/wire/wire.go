// Package wire implements the yashd client/server message framing described
// in the wire protocol: a framed form delimited by STX/ETX byte pairs for
// request/response messages, and an unframed form used for the prompt and
// for streaming a child process's stdout/stderr straight to the socket.
package wire

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"yashd/internal/log"
)

// logger is an object for logging package events to stdout.
var logger = log.New(os.Stdout, "wire")

const (
	stx = 0x02
	etx = 0x03
)

// ErrMalformed indicates a payload was too short or had no argument to split
// off, and should be silently dropped by the caller per §4.1.
var ErrMalformed = errors.New("malformed message")

// Type is the three-letter message type prefix.
type Type string

const (
	// Cmd is a user-submitted command line.
	Cmd Type = "CMD"
	// Ctl is a job-control signal directive (c, z, or d).
	Ctl Type = "CTL"
)

// Message is a decoded client->server payload.
type Message struct {
	Type Type
	Arg  string
}

// Parse splits a raw payload into its Type and argument, per §4.1: split on
// the first space; the three-letter type and the remainder. Reader has
// already stripped the trailing newline, so a payload shorter than 5 bytes
// (at most 5 bytes with its newline) or with no argument is malformed and
// must be silently dropped by the caller.
func Parse(payload []byte) (Message, error) {
	if len(payload) < 5 {
		logger.Infof("dropping malformed payload; len: %d", len(payload))
		return Message{}, ErrMalformed
	}

	s := string(payload)
	idx := strings.IndexByte(s, ' ')
	if idx < 0 {
		logger.Infof("dropping malformed payload; no argument separator")
		return Message{}, ErrMalformed
	}

	typ := s[:idx]
	arg := s[idx+1:]
	if arg == "" {
		logger.Infof("dropping malformed payload; empty argument")
		return Message{}, ErrMalformed
	}

	switch Type(typ) {
	case Cmd, Ctl:
		return Message{Type: Type(typ), Arg: arg}, nil
	default:
		logger.Infof("dropping malformed payload; unknown type: %s", typ)
		return Message{}, ErrMalformed
	}
}

// Frame wraps payload in the STX/ETX delimiters used by the framed form of
// the protocol.
func Frame(payload []byte) []byte {
	b := make([]byte, 0, len(payload)+4)
	b = append(b, stx, stx)
	b = append(b, payload...)
	b = append(b, etx, etx)
	return b
}

// WriteFramed wraps payload in STX/ETX and writes it to w.
func WriteFramed(w io.Writer, payload []byte) error {
	if _, err := w.Write(Frame(payload)); err != nil {
		return fmt.Errorf("write framed payload: %w", err)
	}
	return nil
}

// WriteRaw writes payload directly to w with no framing, used for the
// prompt and for relaying a child's stdout/stderr.
func WriteRaw(w io.Writer, payload []byte) error {
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write raw payload: %w", err)
	}
	return nil
}

// Reader incrementally decodes framed and unframed messages off a byte
// stream. It tolerates both encodings on the same connection: bytes that
// never form an STX/ETX pair are treated as an unframed, newline-terminated
// line (the form the reference client in this repository actually sends).
type Reader struct {
	br *bufio.Reader
}

// NewReader creates a Reader that pulls bytes from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReader(r)}
}

// ReadMessage reads one message from the stream. It first looks for a
// framed payload (STX STX ... ETX ETX); failing that within the bytes
// available up to the next newline, it falls back to treating the line as
// an unframed raw payload. io.EOF is returned verbatim when the peer has
// closed the connection.
func (r *Reader) ReadMessage() ([]byte, error) {
	first, err := r.br.ReadByte()
	if err != nil {
		return nil, err
	}

	if first == stx {
		second, err := r.br.ReadByte()
		if err != nil {
			return nil, err
		}
		if second == stx {
			return r.readFramedPayload()
		}
		// Single STX not followed by a second: treat it and the byte after
		// it as the start of an unframed line.
		line, err := r.readUnframedLine(second)
		return line, err
	}

	return r.readUnframedLine(first)
}

// readFramedPayload accumulates bytes until the ETX ETX terminator is seen.
func (r *Reader) readFramedPayload() ([]byte, error) {
	var buf bytes.Buffer
	for {
		b, err := r.br.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == etx {
			next, err := r.br.ReadByte()
			if err != nil {
				return nil, err
			}
			if next == etx {
				return buf.Bytes(), nil
			}
			buf.WriteByte(b)
			buf.WriteByte(next)
			continue
		}
		buf.WriteByte(b)
	}
}

// readUnframedLine reads bytes (prefixed by already-consumed leading) up to
// and including a trailing newline, which is stripped.
func (r *Reader) readUnframedLine(leading byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(leading)
	for {
		b, err := r.br.ReadByte()
		if errors.Is(err, io.EOF) && buf.Len() > 0 {
			return trimNewline(buf.Bytes()), nil
		}
		if err != nil {
			return nil, err
		}
		if b == '\n' {
			return trimNewline(buf.Bytes()), nil
		}
		buf.WriteByte(b)
	}
}

func trimNewline(b []byte) []byte {
	return bytes.TrimRight(b, "\r\n")
}
