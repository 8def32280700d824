package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestFrame_RoundTripFlags(t *testing.T) {
	payload := bytes.Repeat([]byte(`{"type":"draw"}`), 200)

	tests := []struct {
		name  string
		flags uint8
	}{
		{"plain", 0},
		{"checksum", FlagChecksum},
		{"deflate", FlagDeflate},
		{"deflate and checksum", FlagDeflate | FlagChecksum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteFrame(&buf, tt.flags, payload); err != nil {
				t.Fatalf("WriteFrame() error: %v", err)
			}
			if tt.flags&FlagDeflate != 0 && buf.Len() >= len(payload) {
				t.Fatalf("deflated frame is %d bytes, payload %d", buf.Len(), len(payload))
			}
			got, err := ReadFrame(&buf)
			if err != nil {
				t.Fatalf("ReadFrame() error: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Fatal("payload mismatch")
			}
		})
	}
}

func TestReadFrame_Errors(t *testing.T) {
	frame := func(flags uint8) []byte {
		var buf bytes.Buffer
		if err := WriteFrame(&buf, flags, []byte("hello")); err != nil {
			t.Fatalf("WriteFrame() error: %v", err)
		}
		return buf.Bytes()
	}

	badMagic := frame(0)
	badMagic[0] ^= 0xff

	badVersion := frame(0)
	badVersion[4] = Version + 1

	corrupt := frame(FlagChecksum)
	corrupt[len(corrupt)-1] ^= 0xff

	truncated := frame(0)
	truncated = truncated[:len(truncated)-2]

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"magic", badMagic, ErrInvalidMagic},
		{"version", badVersion, ErrUnsupportedVer},
		{"checksum", corrupt, ErrChecksumMismatch},
		{"short payload", truncated, ErrShortPayload},
		{"empty stream", nil, io.EOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFrame(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.want) {
				t.Fatalf("ReadFrame() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReadFrame_Sequence(t *testing.T) {
	var buf bytes.Buffer
	for _, s := range []string{"one", "two", "three"} {
		if err := WriteFrame(&buf, FlagChecksum, []byte(s)); err != nil {
			t.Fatalf("WriteFrame() error: %v", err)
		}
	}
	for _, want := range []string{"one", "two", "three"} {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame() error: %v", err)
		}
		if string(got) != want {
			t.Fatalf("ReadFrame() = %q, want %q", got, want)
		}
	}
}
