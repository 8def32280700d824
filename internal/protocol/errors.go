package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocolViolation matches every *ProtocolViolation via errors.Is.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrUnknownWindow reports a packet naming a window id that is not live.
	// Destruction races with in-flight packets, so callers ignore it.
	ErrUnknownWindow = errors.New("unknown window")
)

// ProtocolViolation describes a packet the peer should never have sent.
type ProtocolViolation struct {
	Packet string
	Reason string
}

func (e *ProtocolViolation) Error() string {
	if e.Packet == "" {
		return "protocol violation: " + e.Reason
	}
	return fmt.Sprintf("protocol violation in %s: %s", e.Packet, e.Reason)
}

func (e *ProtocolViolation) Is(target error) bool {
	return target == ErrProtocolViolation
}

// Violationf builds a *ProtocolViolation for the given packet type.
func Violationf(packet, format string, args ...any) error {
	return &ProtocolViolation{Packet: packet, Reason: fmt.Sprintf(format, args...)}
}
