package codec

import (
	"fmt"
	"io"
	"os"
)

// DefaultMaxPixelBytes caps the decoded buffer when Options leaves it unset.
const DefaultMaxPixelBytes = 256 << 20

// Options controls limits and output orientation of a decode.
type Options struct {
	// MaxWidth and MaxHeight reject larger images; zero means no limit.
	MaxWidth  int
	MaxHeight int

	// MaxPixelBytes caps the decoded buffer size; zero means
	// DefaultMaxPixelBytes.
	MaxPixelBytes int64

	// TopDown flips bottom-up images so that the first row is the top.
	// When false rows are returned in stream order.
	TopDown bool
}

// Info is the metadata of an image, available without decoding pixels.
type Info struct {
	Header Header
	Format Format
	Width  int
	Height int
}

// PixelBytes returns the size of the decoded buffer.
func (i Info) PixelBytes() int64 {
	return int64(i.Width) * int64(i.Height) * int64(i.Format.BytesPerPixel)
}

func readHeader(src *source) (Header, error) {
	var buf [HeaderSize]byte
	if err := src.readFull(buf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return Header{}, fmt.Errorf("%w: header needs %d bytes, have %d", ErrTruncatedInput, HeaderSize, src.n)
		}
		return Header{}, err
	}
	return ParseHeader(buf[:])
}

func readInfo(src *source) (Info, error) {
	h, err := readHeader(src)
	if err != nil {
		return Info{}, stageError(StageHeader, err)
	}

	f, err := ResolveFormat(h.ImageType, h.PixelDepth)
	if err != nil {
		return Info{}, stageError(StageFormat, err)
	}

	info := Info{Header: h, Format: f}
	if f.Mode == ColorModeNone {
		return info, nil
	}

	if h.Width == 0 || h.Height == 0 {
		return Info{}, stageError(StageFormat, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, h.Width, h.Height))
	}
	info.Width = int(h.Width)
	info.Height = int(h.Height)

	return info, nil
}

// DecodeConfig reads only the header of a TGA stream.
func DecodeConfig(r io.Reader) (Info, error) {
	return readInfo(newSource(r))
}

// Decode decodes a TGA stream with default options.
func Decode(r io.Reader) (*Image, error) {
	return DecodeWithOptions(r, Options{})
}

// DecodeFile opens and decodes the TGA file at path.
func DecodeFile(path string, opts Options) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, stageError(StageOpen, fmt.Errorf("%w: %w", ErrFileOpen, err))
	}
	defer f.Close()

	return DecodeWithOptions(f, opts)
}

// DecodeWithOptions decodes a TGA stream. On failure no image is returned
// and the error is a *DecodeError naming the failed stage.
func DecodeWithOptions(r io.Reader, opts Options) (*Image, error) {
	src := newSource(r)

	info, err := readInfo(src)
	if err != nil {
		return nil, err
	}
	h, f := info.Header, info.Format

	if err := checkLimits(info, opts); err != nil {
		return nil, stageError(StageAllocate, err)
	}

	m := &Image{
		Width:         info.Width,
		Height:        info.Height,
		Layout:        f.Layout,
		BytesPerPixel: f.BytesPerPixel,
		Pix:           make([]byte, info.PixelBytes()),
		TopDown:       h.TopToBottom(),
		Header:        h,
	}

	if err := src.skip(int64(h.IDLength)); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = fmt.Errorf("%w: image ID of %d bytes", ErrTruncatedInput, h.IDLength)
		}
		return nil, stageError(StageImageID, err)
	}

	var cm *Colormap
	if f.Mode == ColorModeIndexed {
		cm, err = readColormap(src, h)
	} else {
		err = skipColormap(src, h)
	}
	if err != nil {
		return nil, stageError(StageColormap, err)
	}

	if f.Mode == ColorModeNone {
		return m, nil
	}

	pf, err := pixelFormatFor(f, cm)
	if err != nil {
		if f.Mode == ColorModeIndexed {
			return nil, stageError(StageColormap, err)
		}
		return nil, stageError(StageFormat, err)
	}

	switch f.Compression {
	case CompressionRaw:
		err = decodeRaw(src, pf, m.Pix, m.Width)
	case CompressionRLE:
		err = decodeRLE(src, pf, m.Pix)
	default:
		err = fmt.Errorf("%w: compression %s", ErrUnknownImageType, f.Compression)
	}
	if err != nil {
		return nil, stageError(StagePixels, err)
	}

	if opts.TopDown && !m.TopDown {
		m.FlipVertical()
	}

	return m, nil
}

// Check applies the size limits of o to an already decoded image, as
// DecodeWithOptions does before allocating. Failures are *DecodeError at
// StageAllocate.
func (o Options) Check(m *Image) error {
	info := Info{
		Width:  m.Width,
		Height: m.Height,
		Format: Format{Layout: m.Layout, BytesPerPixel: m.BytesPerPixel},
	}
	if err := checkLimits(info, o); err != nil {
		return stageError(StageAllocate, err)
	}
	return nil
}

func checkLimits(info Info, opts Options) error {
	if opts.MaxWidth > 0 && info.Width > opts.MaxWidth {
		return fmt.Errorf("%w: width %d exceeds %d", ErrAllocation, info.Width, opts.MaxWidth)
	}
	if opts.MaxHeight > 0 && info.Height > opts.MaxHeight {
		return fmt.Errorf("%w: height %d exceeds %d", ErrAllocation, info.Height, opts.MaxHeight)
	}

	limit := opts.MaxPixelBytes
	if limit <= 0 {
		limit = DefaultMaxPixelBytes
	}
	if size := info.PixelBytes(); size > limit {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrAllocation, size, limit)
	}

	return nil
}
