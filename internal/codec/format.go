package codec

import "fmt"

// ColorMode is the color model of the encoded pixels.
type ColorMode int

const (
	ColorModeNone ColorMode = iota
	ColorModeIndexed
	ColorModeTrueColor
	ColorModeGrayscale
)

func (m ColorMode) String() string {
	switch m {
	case ColorModeNone:
		return "none"
	case ColorModeIndexed:
		return "indexed"
	case ColorModeTrueColor:
		return "truecolor"
	case ColorModeGrayscale:
		return "grayscale"
	}
	return fmt.Sprintf("ColorMode(%d)", int(m))
}

// Compression is the pixel payload encoding.
type Compression int

const (
	CompressionRaw Compression = iota
	CompressionRLE
)

func (c Compression) String() string {
	if c == CompressionRLE {
		return "rle"
	}
	return "raw"
}

// Layout is the channel layout of the decoded buffer.
type Layout int

const (
	LayoutNone Layout = iota
	LayoutLuminance
	LayoutLuminanceAlpha
	LayoutRGB
	LayoutRGBA
)

var layoutChannels = map[Layout]int{
	LayoutNone:           0,
	LayoutLuminance:      1,
	LayoutLuminanceAlpha: 2,
	LayoutRGB:            3,
	LayoutRGBA:           4,
}

// Channels returns the number of bytes per decoded pixel.
func (l Layout) Channels() int {
	return layoutChannels[l]
}

func (l Layout) String() string {
	switch l {
	case LayoutNone:
		return "none"
	case LayoutLuminance:
		return "L"
	case LayoutLuminanceAlpha:
		return "LA"
	case LayoutRGB:
		return "RGB"
	case LayoutRGBA:
		return "RGBA"
	}
	return fmt.Sprintf("Layout(%d)", int(l))
}

// Format is the resolved encoding of an image: what the stream holds and
// what the decoded buffer will look like.
type Format struct {
	Mode          ColorMode
	Compression   Compression
	Depth         int
	Layout        Layout
	BytesPerPixel int
}

// SourceBytes returns the size in bytes of one encoded pixel.
func (f Format) SourceBytes() int {
	return (f.Depth + 7) / 8
}

// ResolveFormat maps an image type and pixel depth to a Format.
//
// Grayscale accepts 8 (L) and 16 (LA) bits. Color-mapped images must use
// 8-bit indices and decode to RGB. True-color accepts 15, 16 and 24 bits
// (RGB) and 32 bits (RGBA). Other depths, including true-color depths below
// 15, fail with ErrUnsupportedPixelDepth.
func ResolveFormat(imageType, pixelDepth uint8) (Format, error) {
	depth := int(pixelDepth)

	var f Format
	switch imageType {
	case ImageTypeNone:
		return Format{Mode: ColorModeNone, Layout: LayoutNone}, nil
	case ImageTypeIndexed, ImageTypeIndexedRLE:
		f.Mode = ColorModeIndexed
	case ImageTypeTrueColor, ImageTypeTrueColorRLE:
		f.Mode = ColorModeTrueColor
	case ImageTypeGrayscale, ImageTypeGrayscaleRLE:
		f.Mode = ColorModeGrayscale
	default:
		return Format{}, fmt.Errorf("%w: %d", ErrUnknownImageType, imageType)
	}

	if imageType >= ImageTypeIndexedRLE {
		f.Compression = CompressionRLE
	}
	f.Depth = depth

	switch f.Mode {
	case ColorModeGrayscale:
		switch depth {
		case 8:
			f.Layout = LayoutLuminance
		case 16:
			f.Layout = LayoutLuminanceAlpha
		default:
			return Format{}, fmt.Errorf("%w: %d-bit grayscale", ErrUnsupportedPixelDepth, depth)
		}
	case ColorModeIndexed:
		if depth != 8 {
			return Format{}, fmt.Errorf("%w: %d-bit color-mapped", ErrUnsupportedPixelDepth, depth)
		}
		f.Layout = LayoutRGB
	case ColorModeTrueColor:
		switch depth {
		case 15, 16, 24:
			f.Layout = LayoutRGB
		case 32:
			f.Layout = LayoutRGBA
		default:
			return Format{}, fmt.Errorf("%w: %d-bit true-color", ErrUnsupportedPixelDepth, depth)
		}
	}

	f.BytesPerPixel = f.Layout.Channels()
	return f, nil
}
