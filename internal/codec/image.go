package codec

import (
	"image"
)

// Image is a decoded TGA image. Pix holds Height rows of Width pixels, each
// BytesPerPixel bytes in Layout channel order, tightly packed.
type Image struct {
	Width         int
	Height        int
	Layout        Layout
	BytesPerPixel int
	Pix           []byte

	// TopDown is true when the first row of Pix is the top of the picture.
	TopDown bool

	Header Header
}

// Stride returns the number of bytes in one row.
func (m *Image) Stride() int {
	return m.Width * m.BytesPerPixel
}

// FlipVertical reverses the row order in place.
func (m *Image) FlipVertical() {
	FlipVertical(m.Pix, m.Width, m.Height, m.BytesPerPixel)
	m.TopDown = !m.TopDown
}

// ToRGBA returns a copy of the pixels widened to 4-byte RGBA.
func (m *Image) ToRGBA() []byte {
	n := m.Width * m.Height
	rgba := make([]byte, n*4)

	switch m.Layout {
	case LayoutLuminance:
		LuminanceToRGBA(m.Pix, rgba)
	case LayoutLuminanceAlpha:
		LuminanceAlphaToRGBA(m.Pix, rgba)
	case LayoutRGB:
		RGB24ToRGBA(m.Pix, rgba)
	case LayoutRGBA:
		copy(rgba, m.Pix)
	}

	return rgba
}

// Image converts m to a standard library image with a top-left origin.
// Rows are flipped when m is stored bottom-up.
func (m *Image) Image() image.Image {
	rect := image.Rect(0, 0, m.Width, m.Height)

	var out image.Image
	var pix []byte

	switch m.Layout {
	case LayoutLuminance:
		g := image.NewGray(rect)
		copy(g.Pix, m.Pix)
		out, pix = g, g.Pix
	case LayoutNone:
		return image.NewNRGBA(rect)
	default:
		n := image.NewNRGBA(rect)
		copy(n.Pix, m.ToRGBA())
		out, pix = n, n.Pix
	}

	if !m.TopDown {
		bpp := 4
		if m.Layout == LayoutLuminance {
			bpp = 1
		}
		FlipVertical(pix, m.Width, m.Height, bpp)
	}

	return out
}
