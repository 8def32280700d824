// Package wire frames packet payloads on a byte stream.
//
// Every frame is a 16 byte little-endian header followed by the payload:
//
//	magic   uint32  "WMR\x01"
//	version uint8
//	flags   uint8   FlagChecksum | FlagDeflate
//	_       uint16
//	length  uint32  payload bytes as sent (after compression)
//	crc32   uint32  IEEE over header[4:12] and the payload, when FlagChecksum
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
)

const (
	magic      uint32 = 0x01524d57
	headerSize        = 16

	// MaxPayload bounds a single frame so a corrupt length cannot force a
	// huge allocation.
	MaxPayload = 64 << 20
)

// Flag bits for the header flags byte.
const (
	FlagChecksum uint8 = 0x01
	FlagDeflate  uint8 = 0x02
)

// Version is the framing version implemented by this package.
const Version uint8 = 1

var (
	ErrInvalidMagic     = errors.New("wire: invalid magic")
	ErrUnsupportedVer   = errors.New("wire: unsupported version")
	ErrShortPayload     = errors.New("wire: payload shorter than declared length")
	ErrChecksumMismatch = errors.New("wire: checksum mismatch")
	ErrFrameTooLarge    = errors.New("wire: frame exceeds maximum payload")
)

// WriteFrame writes payload as one frame. With FlagDeflate set the payload is
// compressed first; the caller's slice is never modified.
func WriteFrame(w io.Writer, flags uint8, payload []byte) error {
	if flags&FlagDeflate != 0 {
		compressed, err := deflate(payload)
		if err != nil {
			return err
		}
		payload = compressed
	}
	if len(payload) > MaxPayload {
		return ErrFrameTooLarge
	}

	buf := make([]byte, headerSize, headerSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], magic)
	buf[4] = Version
	buf[5] = flags
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(payload)))
	if flags&FlagChecksum != 0 {
		crc := crc32.NewIEEE()
		_, _ = crc.Write(buf[4:12])
		_, _ = crc.Write(payload)
		binary.LittleEndian.PutUint32(buf[12:16], crc.Sum32())
	}

	// One Write per frame keeps frames intact on a shared stream.
	_, err := w.Write(append(buf, payload...))
	return err
}

// ReadFrame reads one frame and returns its decompressed payload.
func ReadFrame(r io.Reader) ([]byte, error) {
	hdr := make([]byte, headerSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, err
	}
	if binary.LittleEndian.Uint32(hdr[0:4]) != magic {
		return nil, ErrInvalidMagic
	}
	if hdr[4] != Version {
		return nil, ErrUnsupportedVer
	}
	flags := hdr[5]
	length := binary.LittleEndian.Uint32(hdr[8:12])
	if length > MaxPayload {
		return nil, ErrFrameTooLarge
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || (errors.Is(err, io.EOF) && length > 0) {
			return nil, ErrShortPayload
		}
		return nil, err
	}

	if flags&FlagChecksum != 0 {
		crc := crc32.NewIEEE()
		_, _ = crc.Write(hdr[4:12])
		_, _ = crc.Write(payload)
		if crc.Sum32() != binary.LittleEndian.Uint32(hdr[12:16]) {
			return nil, ErrChecksumMismatch
		}
	}

	if flags&FlagDeflate != 0 {
		return inflate(payload)
	}
	return payload, nil
}

func deflate(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.BestSpeed)
	if err != nil {
		return nil, fmt.Errorf("failed to create deflate writer: %w", err)
	}
	if _, err := fw.Write(p); err != nil {
		return nil, fmt.Errorf("failed to deflate payload: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("failed to deflate payload: %w", err)
	}
	return buf.Bytes(), nil
}

func inflate(p []byte) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(p))
	defer fr.Close()
	out, err := io.ReadAll(io.LimitReader(fr, MaxPayload+1))
	if err != nil {
		return nil, fmt.Errorf("failed to inflate payload: %w", err)
	}
	if len(out) > MaxPayload {
		return nil, ErrFrameTooLarge
	}
	return out, nil
}
