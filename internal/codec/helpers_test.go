package codec

import (
	"encoding/binary"
)

// tgaFile assembles a TGA byte stream for tests.
type tgaFile struct {
	header   Header
	id       []byte
	colormap []byte
	payload  []byte
}

func (f tgaFile) bytes() []byte {
	h := f.header
	h.IDLength = uint8(len(f.id))

	buf := make([]byte, HeaderSize, HeaderSize+len(f.id)+len(f.colormap)+len(f.payload))
	buf[offIDLength] = h.IDLength
	buf[offColormapType] = h.ColormapType
	buf[offImageType] = h.ImageType
	binary.LittleEndian.PutUint16(buf[offColormapOrigin:], h.ColormapOrigin)
	binary.LittleEndian.PutUint16(buf[offColormapLength:], h.ColormapLength)
	buf[offColormapEntrySize] = h.ColormapEntrySize
	binary.LittleEndian.PutUint16(buf[offXOrigin:], h.XOrigin)
	binary.LittleEndian.PutUint16(buf[offYOrigin:], h.YOrigin)
	binary.LittleEndian.PutUint16(buf[offWidth:], h.Width)
	binary.LittleEndian.PutUint16(buf[offHeight:], h.Height)
	buf[offPixelDepth] = h.PixelDepth
	buf[offImageDescriptor] = h.ImageDescriptor

	buf = append(buf, f.id...)
	buf = append(buf, f.colormap...)
	buf = append(buf, f.payload...)
	return buf
}

func imageHeader(imageType uint8, width, height uint16, depth uint8) Header {
	return Header{
		ImageType:  imageType,
		Width:      width,
		Height:     height,
		PixelDepth: depth,
	}
}

// bgrPalette builds an n-entry palette where entry i is (B=i, G=i+1, R=i+2).
func bgrPalette(n int) []byte {
	p := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		p = append(p, byte(i), byte(i+1), byte(i+2))
	}
	return p
}
