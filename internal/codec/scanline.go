package codec

import (
	"bytes"
	"fmt"
	"io"
)

// PixelFormat describes how one encoded source pixel becomes one decoded
// pixel.
type PixelFormat struct {
	SourceBytes int
	DestBytes   int
	Expand      func(dst, src []byte) error
}

func (pf PixelFormat) validate() error {
	if pf.SourceBytes <= 0 || pf.DestBytes <= 0 || pf.Expand == nil {
		return fmt.Errorf("%w: pixel format %d->%d bytes", ErrUnsupportedPixelDepth, pf.SourceBytes, pf.DestBytes)
	}
	return nil
}

// Pixel16 expands a little-endian BGR555 word to RGB.
var Pixel16 = PixelFormat{
	SourceBytes: 2,
	DestBytes:   3,
	Expand: func(dst, src []byte) error {
		color := uint16(src[0]) | uint16(src[1])<<8
		dst[0] = byte(((color & 0x7C00) >> 10) << 3)
		dst[1] = byte(((color & 0x03E0) >> 5) << 3)
		dst[2] = byte((color & 0x001F) << 3)
		return nil
	},
}

// Pixel24 swaps BGR to RGB.
var Pixel24 = PixelFormat{
	SourceBytes: 3,
	DestBytes:   3,
	Expand: func(dst, src []byte) error {
		dst[0] = src[2]
		dst[1] = src[1]
		dst[2] = src[0]
		return nil
	},
}

// Pixel32 swaps BGRA to RGBA.
var Pixel32 = PixelFormat{
	SourceBytes: 4,
	DestBytes:   4,
	Expand: func(dst, src []byte) error {
		dst[0] = src[2]
		dst[1] = src[1]
		dst[2] = src[0]
		dst[3] = src[3]
		return nil
	},
}

// PixelGray8 copies a luminance byte.
var PixelGray8 = PixelFormat{
	SourceBytes: 1,
	DestBytes:   1,
	Expand: func(dst, src []byte) error {
		dst[0] = src[0]
		return nil
	},
}

// PixelGray16 copies a luminance and alpha byte pair.
var PixelGray16 = PixelFormat{
	SourceBytes: 2,
	DestBytes:   2,
	Expand: func(dst, src []byte) error {
		dst[0] = src[0]
		dst[1] = src[1]
		return nil
	},
}

// PixelIndexed8 looks up an 8-bit index in cm and emits RGB.
func PixelIndexed8(cm *Colormap) PixelFormat {
	return PixelFormat{
		SourceBytes: 1,
		DestBytes:   3,
		Expand: func(dst, src []byte) error {
			bgr, err := cm.lookup(src[0])
			if err != nil {
				return err
			}
			dst[0] = bgr[2]
			dst[1] = bgr[1]
			dst[2] = bgr[0]
			return nil
		},
	}
}

// pixelFormatFor picks the pixel expander for a resolved format.
func pixelFormatFor(f Format, cm *Colormap) (PixelFormat, error) {
	switch f.Mode {
	case ColorModeIndexed:
		if cm.Len() == 0 {
			return PixelFormat{}, ErrMissingColormap
		}
		return PixelIndexed8(cm), nil
	case ColorModeTrueColor:
		switch f.Depth {
		case 15, 16:
			return Pixel16, nil
		case 24:
			return Pixel24, nil
		case 32:
			return Pixel32, nil
		}
	case ColorModeGrayscale:
		switch f.Depth {
		case 8:
			return PixelGray8, nil
		case 16:
			return PixelGray16, nil
		}
	}
	return PixelFormat{}, fmt.Errorf("%w: %s %d-bit", ErrUnsupportedPixelDepth, f.Mode, f.Depth)
}

// decodeRaw reads uncompressed pixels row by row until dst is full.
func decodeRaw(src *source, pf PixelFormat, dst []byte, width int) error {
	if width <= 0 {
		width = 1
	}
	row := make([]byte, width*pf.SourceBytes)
	destIdx := 0

	for destIdx < len(dst) {
		pixels := (len(dst) - destIdx) / pf.DestBytes
		if pixels > width {
			pixels = width
		}
		if pixels == 0 {
			break
		}

		chunk := row[:pixels*pf.SourceBytes]
		if err := src.readFull(chunk); err != nil {
			if err == io.ErrUnexpectedEOF {
				return fmt.Errorf("%w: pixel data ended at byte %d of %d", ErrTruncatedInput, destIdx, len(dst))
			}
			return err
		}

		for i := 0; i < pixels; i++ {
			if err := pf.Expand(dst[destIdx:], chunk[i*pf.SourceBytes:]); err != nil {
				return err
			}
			destIdx += pf.DestBytes
		}
	}

	return nil
}

// DecodeRaw expands uncompressed pixel data from data into dst and returns
// the number of source bytes consumed.
func DecodeRaw(data []byte, pf PixelFormat, dst []byte) (int, error) {
	if err := pf.validate(); err != nil {
		return 0, err
	}
	src := newSource(bytes.NewReader(data))
	err := decodeRaw(src, pf, dst, len(dst)/pf.DestBytes)
	return int(src.n), err
}
