package codec

import (
	"fmt"
	"io"
)

// colormapEntryBytes is the stored size of one palette entry (B, G, R).
const colormapEntryBytes = 3

// Colormap is a palette of B,G,R triples indexed by the raw pixel byte.
type Colormap struct {
	entries []byte
}

// NewColormap builds a palette from packed B,G,R triples.
func NewColormap(bgr []byte) *Colormap {
	n := len(bgr) / colormapEntryBytes
	entries := make([]byte, n*colormapEntryBytes)
	copy(entries, bgr)
	return &Colormap{entries: entries}
}

// Len returns the number of palette entries.
func (c *Colormap) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries) / colormapEntryBytes
}

// lookup returns the B,G,R triple stored at index.
func (c *Colormap) lookup(index byte) ([]byte, error) {
	i := int(index) * colormapEntryBytes
	if c == nil || i+colormapEntryBytes > len(c.entries) {
		return nil, fmt.Errorf("%w: %d (palette has %d entries)", ErrColormapIndex, index, c.Len())
	}
	return c.entries[i : i+colormapEntryBytes], nil
}

// readColormap reads the palette declared by h. Headers without a palette
// produce an empty table.
func readColormap(src *source, h Header) (*Colormap, error) {
	if !h.HasColormap() {
		return &Colormap{}, nil
	}

	var expand func(dst, raw []byte)
	switch h.ColormapEntrySize {
	case 24:
		expand = func(dst, raw []byte) {
			copy(dst, raw[:3])
		}
	case 32:
		// alpha is dropped, color-mapped output is RGB
		expand = func(dst, raw []byte) {
			copy(dst, raw[:3])
		}
	case 15, 16:
		expand = func(dst, raw []byte) {
			color := uint16(raw[0]) | uint16(raw[1])<<8
			dst[0] = byte((color & 0x001F) << 3)
			dst[1] = byte(((color & 0x03E0) >> 5) << 3)
			dst[2] = byte(((color & 0x7C00) >> 10) << 3)
		}
	default:
		return nil, fmt.Errorf("%w: %d-bit colormap entries", ErrUnsupportedPixelDepth, h.ColormapEntrySize)
	}

	entrySize := (int(h.ColormapEntrySize) + 7) / 8
	length := int(h.ColormapLength)

	raw := make([]byte, length*entrySize)
	if err := src.readFull(raw); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: colormap of %d entries", ErrTruncatedInput, length)
		}
		return nil, err
	}

	entries := make([]byte, length*colormapEntryBytes)
	for i := 0; i < length; i++ {
		expand(entries[i*colormapEntryBytes:], raw[i*entrySize:])
	}

	return &Colormap{entries: entries}, nil
}

// skipColormap discards a palette that the image type never consults. The
// entry size is not checked.
func skipColormap(src *source, h Header) error {
	if !h.HasColormap() {
		return nil
	}

	size := int64(h.ColormapLength) * int64((int(h.ColormapEntrySize)+7)/8)
	if err := src.skip(size); err != nil {
		if err == io.ErrUnexpectedEOF {
			return fmt.Errorf("%w: colormap of %d entries", ErrTruncatedInput, h.ColormapLength)
		}
		return err
	}
	return nil
}
