package replica

import (
	"bytes"
	"errors"
	"testing"

	"github.com/1broseidon/winmirror/internal/platform"
	"github.com/1broseidon/winmirror/internal/protocol"
)

func patterned(w, h int) *Backing {
	b := NewBacking(w, h, White)
	for i := range b.Pix {
		b.Pix[i] = byte(i * 7)
	}
	return b
}

func TestBacking_ResizePreservesTopLeft(t *testing.T) {
	tests := []struct {
		name         string
		w, h, w2, h2 int
	}{
		{"grow both", 4, 3, 9, 7},
		{"grow width", 5, 5, 8, 5},
		{"grow height", 5, 5, 5, 8},
		{"shrink", 9, 7, 4, 3},
		{"mixed", 6, 2, 3, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := patterned(tt.w, tt.h)
			before := append([]byte(nil), b.Pix...)
			beforeW := b.Width

			b.Resize(tt.w2, tt.h2)
			if b.Width != tt.w2 || b.Height != tt.h2 || len(b.Pix) != tt.w2*tt.h2*3 {
				t.Fatalf("size after resize = %dx%d (%d bytes)", b.Width, b.Height, len(b.Pix))
			}

			keepW, keepH := min(tt.w, tt.w2), min(tt.h, tt.h2)
			for y := 0; y < tt.h2; y++ {
				for x := 0; x < tt.w2; x++ {
					got := b.At(x, y)
					if x < keepW && y < keepH {
						i := (y*beforeW + x) * 3
						want := Color{before[i], before[i+1], before[i+2]}
						if got != want {
							t.Fatalf("pixel %d,%d = %v, want preserved %v", x, y, got, want)
						}
					} else if got != White {
						t.Fatalf("exposed pixel %d,%d = %v, want fill", x, y, got)
					}
				}
			}
		})
	}
}

func TestBacking_MinimumSize(t *testing.T) {
	b := NewBacking(0, -3, White)
	if b.Width != 1 || b.Height != 1 {
		t.Fatalf("NewBacking(0,-3) = %dx%d, want 1x1", b.Width, b.Height)
	}
}

func TestBacking_WriteBadLengthDoesNotMutate(t *testing.T) {
	b := patterned(10, 10)
	before := append([]byte(nil), b.Pix...)

	for _, n := range []int{0, 11, 13, 4 * 3 * 3} {
		_, err := b.Write(platform.Rect{X: 1, Y: 1, Width: 2, Height: 2}, make([]byte, n))
		if !errors.Is(err, protocol.ErrProtocolViolation) {
			t.Fatalf("Write(%d bytes) error = %v, want protocol violation", n, err)
		}
		if !bytes.Equal(b.Pix, before) {
			t.Fatalf("Write(%d bytes) mutated the store", n)
		}
	}
}

func TestBacking_WriteOversizedRectIsViolation(t *testing.T) {
	b := patterned(10, 10)
	before := append([]byte(nil), b.Pix...)

	tests := []struct {
		name string
		r    platform.Rect
		data []byte
	}{
		// 1<<62 * 4 * 3 wraps to 0, matching the empty payload.
		{"product wraps to zero", platform.Rect{Width: 1 << 62, Height: 4}, nil},
		{"wide", platform.Rect{Width: protocol.MaxDimension + 1, Height: 1}, make([]byte, (protocol.MaxDimension+1)*3)},
		{"far origin", platform.Rect{X: 1 << 62, Width: 1, Height: 1}, make([]byte, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Write(tt.r, tt.data)
			if !errors.Is(err, protocol.ErrProtocolViolation) {
				t.Fatalf("Write(%v) error = %v, want protocol violation", tt.r, err)
			}
			if !bytes.Equal(b.Pix, before) {
				t.Fatal("Write mutated the store")
			}
		})
	}
}

func TestBacking_SizeClampedToMaxDimension(t *testing.T) {
	b := NewBacking(1, 1, White)
	b.Resize(protocol.MaxDimension+10, 2)
	if b.Width != protocol.MaxDimension || b.Height != 2 {
		t.Fatalf("Resize = %dx%d, want %dx2", b.Width, b.Height, protocol.MaxDimension)
	}
}

func TestBacking_WriteIsIdempotentAndClipped(t *testing.T) {
	b := NewBacking(4, 4, White)
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	r := platform.Rect{X: 3, Y: 2, Width: 2, Height: 2}

	written, err := b.Write(r, data)
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if written != (platform.Rect{X: 3, Y: 2, Width: 1, Height: 2}) {
		t.Fatalf("written = %v", written)
	}
	if got := b.At(3, 2); got != (Color{1, 2, 3}) {
		t.Fatalf("At(3,2) = %v", got)
	}
	if got := b.At(3, 3); got != (Color{7, 8, 9}) {
		t.Fatalf("At(3,3) = %v", got)
	}

	snapshot := append([]byte(nil), b.Pix...)
	if _, err := b.Write(r, data); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if !bytes.Equal(snapshot, b.Pix) {
		t.Fatal("second identical write changed the store")
	}
}
