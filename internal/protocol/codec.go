package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/winmirror/internal/platform"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode marshals p into its JSON envelope.
func Encode(p Packet) ([]byte, error) {
	if _, ok := p.(ConnectionLost); ok {
		return nil, fmt.Errorf("connection-lost is local only")
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", p.Type(), err)
	}
	return json.Marshal(envelope{Type: p.Type(), Payload: payload})
}

// Decode parses one JSON envelope. Malformed input, unknown packet types and
// out-of-range fields are reported as *ProtocolViolation.
func Decode(data []byte) (Packet, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &ProtocolViolation{Reason: fmt.Sprintf("malformed envelope: %v", err)}
	}

	var p Packet
	var err error
	switch env.Type {
	case TypeHello:
		p, err = decodeAs[Hello](env)
	case TypeNewWindow:
		p, err = decodeAs[NewWindow](env)
	case TypeWindowMetadata:
		p, err = decodeAs[WindowMetadata](env)
	case TypeLostWindow:
		p, err = decodeAs[LostWindow](env)
	case TypeDraw:
		p, err = decodeAs[Draw](env)
	case TypeMapWindow:
		p, err = decodeAs[MapWindow](env)
	case TypeUnmapWindow:
		p, err = decodeAs[UnmapWindow](env)
	case TypeMoveWindow:
		p, err = decodeAs[MoveWindow](env)
	case TypeResizeWindow:
		p, err = decodeAs[ResizeWindow](env)
	case TypeWindowOrder:
		p, err = decodeAs[WindowOrder](env)
	case TypeCloseWindow:
		p, err = decodeAs[CloseWindow](env)
	default:
		return nil, &ProtocolViolation{Packet: env.Type, Reason: "unknown packet type"}
	}
	if err != nil {
		return nil, err
	}
	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeAs[T Packet](env envelope) (Packet, error) {
	var v T
	if len(env.Payload) == 0 {
		return nil, &ProtocolViolation{Packet: env.Type, Reason: "missing payload"}
	}
	if err := json.Unmarshal(env.Payload, &v); err != nil {
		return nil, &ProtocolViolation{Packet: env.Type, Reason: fmt.Sprintf("malformed payload: %v", err)}
	}
	return v, nil
}

// Validate checks the field ranges of a decoded packet.
func Validate(p Packet) error {
	switch v := p.(type) {
	case NewWindow:
		return checkWindow(v.Type(), v.ID, v.Width, v.Height)
	case WindowMetadata:
		return checkID(v.Type(), v.ID)
	case LostWindow:
		return checkID(v.Type(), v.ID)
	case Draw:
		if err := checkWindow(v.Type(), v.ID, v.Width, v.Height); err != nil {
			return err
		}
		if v.X < 0 || v.Y < 0 {
			return Violationf(v.Type(), "negative origin %d,%d", v.X, v.Y)
		}
		if v.X > MaxDimension || v.Y > MaxDimension {
			return Violationf(v.Type(), "origin %d,%d out of range", v.X, v.Y)
		}
	case MapWindow:
		return checkWindow(v.Type(), v.ID, v.Width, v.Height)
	case UnmapWindow:
		return checkID(v.Type(), v.ID)
	case MoveWindow:
		return checkID(v.Type(), v.ID)
	case ResizeWindow:
		return checkWindow(v.Type(), v.ID, v.Width, v.Height)
	case WindowOrder:
		for _, id := range v.IDs {
			if err := checkID(v.Type(), id); err != nil {
				return err
			}
		}
	case CloseWindow:
		return checkID(v.Type(), v.ID)
	}
	return nil
}

func checkID(packet string, id platform.WindowID) error {
	if id == 0 {
		return Violationf(packet, "window id 0 is reserved")
	}
	return nil
}

func checkWindow(packet string, id platform.WindowID, w, h int) error {
	if err := checkID(packet, id); err != nil {
		return err
	}
	if w < 0 || h < 0 {
		return Violationf(packet, "negative size %dx%d", w, h)
	}
	if w > MaxDimension || h > MaxDimension {
		return Violationf(packet, "size %dx%d exceeds %d", w, h, MaxDimension)
	}
	return nil
}
