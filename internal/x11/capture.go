package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/winmirror/internal/platform"
	"github.com/1broseidon/winmirror/internal/protocol"
)

// pixelLayout describes how the server lays out ZPixmap data for a depth.
type pixelLayout struct {
	bitsPerPixel int
	scanlinePad  int
	lsbFirst     bool
}

func (c *Connection) layoutFor(depth byte) (pixelLayout, error) {
	setup := c.XUtil.Setup()
	for _, f := range setup.PixmapFormats {
		if f.Depth == depth {
			return pixelLayout{
				bitsPerPixel: int(f.BitsPerPixel),
				scanlinePad:  int(f.ScanlinePad),
				lsbFirst:     setup.ImageByteOrder == xproto.ImageOrderLSBFirst,
			}, nil
		}
	}
	return pixelLayout{}, fmt.Errorf("no pixmap format for depth %d", depth)
}

// Capture reads r, in window coordinates, from win as RGB24. A redirected
// window is read from its composite pixmap so it need not be on screen.
func (c *Connection) Capture(win xproto.Window, redirected bool, r platform.Rect) ([]byte, error) {
	xc := c.XUtil.Conn()
	drawable := xproto.Drawable(win)
	if redirected {
		pix, err := xproto.NewPixmapId(xc)
		if err != nil {
			return nil, fmt.Errorf("allocate pixmap id: %w", err)
		}
		if err := composite.NameWindowPixmapChecked(xc, win, pix).Check(); err != nil {
			return nil, fmt.Errorf("name pixmap of 0x%x: %w", win, err)
		}
		defer xproto.FreePixmap(xc, pix)
		drawable = xproto.Drawable(pix)
	}

	img, err := xproto.GetImage(xc, xproto.ImageFormatZPixmap, drawable,
		int16(r.X), int16(r.Y), uint16(r.Width), uint16(r.Height), ^uint32(0)).Reply()
	if err != nil {
		return nil, fmt.Errorf("get image of 0x%x: %w", win, err)
	}
	layout, err := c.layoutFor(img.Depth)
	if err != nil {
		return nil, err
	}
	return toRGB24(img.Data, r.Width, r.Height, layout)
}

// toRGB24 converts 24 or 32 bits-per-pixel true-colour ZPixmap rows into
// packed RGB24.
func toRGB24(data []byte, width, height int, layout pixelLayout) ([]byte, error) {
	bpp := layout.bitsPerPixel
	if bpp != 24 && bpp != 32 {
		return nil, fmt.Errorf("unsupported pixel size %d bits", bpp)
	}
	pad := layout.scanlinePad
	if pad == 0 {
		pad = 32
	}
	stride := (width*bpp + pad - 1) / pad * pad / 8
	if len(data) < stride*height {
		return nil, fmt.Errorf("short image: %d bytes for %dx%d", len(data), width, height)
	}

	step := bpp / 8
	out := make([]byte, 0, width*height*protocol.BytesPerPixel)
	for y := 0; y < height; y++ {
		row := data[y*stride:]
		for x := 0; x < width; x++ {
			p := row[x*step : x*step+step]
			switch {
			case layout.lsbFirst:
				out = append(out, p[2], p[1], p[0])
			case step == 4:
				out = append(out, p[1], p[2], p[3])
			default:
				out = append(out, p[0], p[1], p[2])
			}
		}
	}
	return out, nil
}
