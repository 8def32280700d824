package x11

import (
	"bytes"
	"testing"

	"github.com/BurntSushi/xgbutil/icccm"

	"github.com/1broseidon/winmirror/internal/platform"
)

func TestToRGB24(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		width  int
		height int
		layout pixelLayout
		want   []byte
	}{
		{
			name:   "bgrx little endian",
			data:   []byte{3, 2, 1, 0, 6, 5, 4, 0},
			width:  2,
			height: 1,
			layout: pixelLayout{bitsPerPixel: 32, scanlinePad: 32, lsbFirst: true},
			want:   []byte{1, 2, 3, 4, 5, 6},
		},
		{
			name:   "xrgb big endian",
			data:   []byte{0, 1, 2, 3},
			width:  1,
			height: 1,
			layout: pixelLayout{bitsPerPixel: 32, scanlinePad: 32},
			want:   []byte{1, 2, 3},
		},
		{
			name: "packed 24 bit rows are padded",
			data: []byte{
				3, 2, 1, 0,
				6, 5, 4, 0,
			},
			width:  1,
			height: 2,
			layout: pixelLayout{bitsPerPixel: 24, scanlinePad: 32, lsbFirst: true},
			want:   []byte{1, 2, 3, 4, 5, 6},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toRGB24(tt.data, tt.width, tt.height, tt.layout)
			if err != nil {
				t.Fatalf("toRGB24: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToRGB24Errors(t *testing.T) {
	if _, err := toRGB24(make([]byte, 4), 1, 1, pixelLayout{bitsPerPixel: 16}); err == nil {
		t.Fatalf("expected error for 16 bpp")
	}
	if _, err := toRGB24(make([]byte, 4), 2, 1, pixelLayout{bitsPerPixel: 32, lsbFirst: true}); err == nil {
		t.Fatalf("expected error for short data")
	}
}

func TestHintsRoundTripThroughNormalHints(t *testing.T) {
	h := platform.SizeHints{
		MaxSize:   &platform.Size{Width: 800, Height: 600},
		MinSize:   &platform.Size{Width: 100, Height: 50},
		Increment: &platform.Size{Width: 8, Height: 16},
		MinAspect: &platform.Ratio{Num: 1, Den: 2},
		MaxAspect: &platform.Ratio{Num: 2, Den: 1},
	}
	nh := normalFromHints(h)
	if nh.Flags&icccm.SizeHintPBaseSize != 0 {
		t.Fatalf("base size flag set without a base size")
	}
	got := hintsFromNormal(nh)
	if got.BaseSize != nil {
		t.Fatalf("BaseSize = %+v, want nil", got.BaseSize)
	}
	if *got.MaxSize != *h.MaxSize || *got.MinSize != *h.MinSize || *got.Increment != *h.Increment {
		t.Fatalf("sizes = %+v %+v %+v", got.MaxSize, got.MinSize, got.Increment)
	}
	if *got.MinAspect != *h.MinAspect || *got.MaxAspect != *h.MaxAspect {
		t.Fatalf("aspects = %+v %+v", got.MinAspect, got.MaxAspect)
	}
}

func TestHintsFromNormalIgnoresUnflaggedFields(t *testing.T) {
	nh := &icccm.NormalHints{MaxWidth: 10, MaxHeight: 10}
	if got := hintsFromNormal(nh); got.MaxSize != nil {
		t.Fatalf("MaxSize = %+v without flag", got.MaxSize)
	}
}

func TestUnionBounds(t *testing.T) {
	got := unionBounds([]Monitor{
		{Bounds: platform.Rect{Width: 1920, Height: 1080}},
		{Bounds: platform.Rect{X: 1920, Width: 1280, Height: 1440}},
	})
	want := platform.Rect{Width: 3200, Height: 1440}
	if got != want {
		t.Fatalf("unionBounds = %+v, want %+v", got, want)
	}
}
