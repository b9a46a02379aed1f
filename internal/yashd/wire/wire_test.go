package wire_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"yashd/internal/yashd/wire"
)

func TestParse(t *testing.T) {
	tests := map[string]struct {
		payload []byte
		exp     wire.Message
		expErr  error
	}{
		"cmd": {
			payload: []byte("CMD echo hi"),
			exp:     wire.Message{Type: wire.Cmd, Arg: "echo hi"},
		},
		"ctl c": {
			payload: []byte("CTL c"),
			exp:     wire.Message{Type: wire.Ctl, Arg: "c"},
		},
		"too short": {
			payload: []byte("CTL "),
			expErr:  wire.ErrMalformed,
		},
		"no argument": {
			payload: []byte("CMDCMDCMD"),
			expErr:  wire.ErrMalformed,
		},
		"unknown type": {
			payload: []byte("FOO hello"),
			expErr:  wire.ErrMalformed,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			msg, err := wire.Parse(test.payload)
			if !errors.Is(err, test.expErr) {
				t.Fatalf("unexpected error; actual: %v, expected: %v", err, test.expErr)
			}
			if err != nil {
				return
			}
			if msg != test.exp {
				t.Fatalf("unexpected message; actual: %+v, expected: %+v", msg, test.exp)
			}
		})
	}
}

func TestFrame(t *testing.T) {
	got := wire.Frame([]byte("CMD ls"))
	want := append([]byte{0x02, 0x02}, append([]byte("CMD ls"), 0x03, 0x03)...)
	if !bytes.Equal(got, want) {
		t.Fatalf("unexpected frame; actual: %v, expected: %v", got, want)
	}
}

func TestReaderFramed(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(wire.Frame([]byte("CMD echo hi")))
	buf.Write(wire.Frame([]byte("CTL c")))

	r := wire.NewReader(&buf)

	first, err := r.ReadMessage()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(first) != "CMD echo hi" {
		t.Fatalf("unexpected payload: %s", first)
	}

	second, err := r.ReadMessage()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(second) != "CTL c" {
		t.Fatalf("unexpected payload: %s", second)
	}
}

func TestReaderUnframed(t *testing.T) {
	buf := bytes.NewBufferString("CMD echo hi\n")

	r := wire.NewReader(buf)
	payload, err := r.ReadMessage()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != "CMD echo hi" {
		t.Fatalf("unexpected payload: %s", payload)
	}
}

func TestReaderEOF(t *testing.T) {
	r := wire.NewReader(bytes.NewReader(nil))
	_, err := r.ReadMessage()
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got: %v", err)
	}
}
