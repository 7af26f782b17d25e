// Package codec implements a decoder for Truevision TGA images.
//
// The decoder handles true-color, grayscale and color-mapped images at 8, 16,
// 24 and 32 bits per pixel, both raw and run-length encoded, and produces a
// tightly packed pixel buffer in luminance, luminance+alpha, RGB or RGBA
// order.
package codec

import (
	"encoding/binary"
	"fmt"
	"io"
)

// HeaderSize is the fixed size of a TGA file header.
const HeaderSize = 18

// Header field offsets.
const (
	offIDLength          = 0
	offColormapType      = 1
	offImageType         = 2
	offColormapOrigin    = 3
	offColormapLength    = 5
	offColormapEntrySize = 7
	offXOrigin           = 8
	offYOrigin           = 10
	offWidth             = 12
	offHeight            = 14
	offPixelDepth        = 16
	offImageDescriptor   = 17
)

// Image type codes.
const (
	ImageTypeNone         = 0
	ImageTypeIndexed      = 1
	ImageTypeTrueColor    = 2
	ImageTypeGrayscale    = 3
	ImageTypeIndexedRLE   = 9
	ImageTypeTrueColorRLE = 10
	ImageTypeGrayscaleRLE = 11
)

var imageTypeNames = map[uint8]string{
	ImageTypeNone:         "no image data",
	ImageTypeIndexed:      "uncompressed color-mapped",
	ImageTypeTrueColor:    "uncompressed true-color",
	ImageTypeGrayscale:    "uncompressed grayscale",
	ImageTypeIndexedRLE:   "RLE color-mapped",
	ImageTypeTrueColorRLE: "RLE true-color",
	ImageTypeGrayscaleRLE: "RLE grayscale",
}

// ImageTypeName returns a human readable name for an image type code.
func ImageTypeName(t uint8) string {
	if name, ok := imageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown (%d)", t)
}

const (
	descAlphaBitsMask   = 0x0F
	descRightToLeftFlag = 0x10
	descTopToBottomFlag = 0x20
)

// Header is the TGA file header.
type Header struct {
	IDLength          uint8
	ColormapType      uint8
	ImageType         uint8
	ColormapOrigin    uint16
	ColormapLength    uint16
	ColormapEntrySize uint8
	XOrigin           uint16
	YOrigin           uint16
	Width             uint16
	Height            uint16
	PixelDepth        uint8
	ImageDescriptor   uint8
}

// ParseHeader decodes the first HeaderSize bytes of data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header needs %d bytes, have %d", ErrTruncatedInput, HeaderSize, len(data))
	}

	return Header{
		IDLength:          data[offIDLength],
		ColormapType:      data[offColormapType],
		ImageType:         data[offImageType],
		ColormapOrigin:    binary.LittleEndian.Uint16(data[offColormapOrigin : offColormapOrigin+2]),
		ColormapLength:    binary.LittleEndian.Uint16(data[offColormapLength : offColormapLength+2]),
		ColormapEntrySize: data[offColormapEntrySize],
		XOrigin:           binary.LittleEndian.Uint16(data[offXOrigin : offXOrigin+2]),
		YOrigin:           binary.LittleEndian.Uint16(data[offYOrigin : offYOrigin+2]),
		Width:             binary.LittleEndian.Uint16(data[offWidth : offWidth+2]),
		Height:            binary.LittleEndian.Uint16(data[offHeight : offHeight+2]),
		PixelDepth:        data[offPixelDepth],
		ImageDescriptor:   data[offImageDescriptor],
	}, nil
}

// ReadHeader reads and decodes a header from r.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Header{}, fmt.Errorf("%w: header needs %d bytes, have %d", ErrTruncatedInput, HeaderSize, n)
		}
		return Header{}, err
	}
	return ParseHeader(buf[:])
}

// TopToBottom reports whether the first row in the stream is the top row.
func (h Header) TopToBottom() bool {
	return h.ImageDescriptor&descTopToBottomFlag != 0
}

// RightToLeft reports whether pixels within a row run right to left.
func (h Header) RightToLeft() bool {
	return h.ImageDescriptor&descRightToLeftFlag != 0
}

// AlphaBits returns the attribute bits per pixel declared by the descriptor.
func (h Header) AlphaBits() int {
	return int(h.ImageDescriptor & descAlphaBitsMask)
}

// HasColormap reports whether a palette follows the image ID field.
func (h Header) HasColormap() bool {
	return h.ColormapType != 0
}
