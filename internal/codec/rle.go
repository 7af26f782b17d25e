package codec

import (
	"bytes"
	"fmt"
	"io"
)

const (
	packetRunFlag   = 0x80
	packetCountMask = 0x7F
)

// decodeRLE decompresses run-length packets from src until dst is full.
//
// A packet that runs past the end of the image is clamped: no source pixels
// beyond those needed to fill dst are read.
func decodeRLE(src *source, pf PixelFormat, dst []byte) error {
	destIdx := 0
	bpp := pf.DestBytes
	raw := make([]byte, pf.SourceBytes)

	underrun := func(err error) error {
		if err == io.ErrUnexpectedEOF {
			return fmt.Errorf("%w: filled %d of %d bytes", ErrUnderrun, destIdx, len(dst))
		}
		return err
	}

	for destIdx+bpp <= len(dst) {
		header, err := src.readByte()
		if err != nil {
			return underrun(err)
		}

		count := 1 + int(header&packetCountMask)
		if remaining := (len(dst) - destIdx) / bpp; count > remaining {
			count = remaining
		}

		if header&packetRunFlag != 0 {
			if err := src.readFull(raw); err != nil {
				return underrun(err)
			}
			pixel := dst[destIdx : destIdx+bpp]
			if err := pf.Expand(pixel, raw); err != nil {
				return err
			}
			destIdx += bpp
			for i := 1; i < count; i++ {
				copy(dst[destIdx:destIdx+bpp], pixel)
				destIdx += bpp
			}
			continue
		}

		for i := 0; i < count; i++ {
			if err := src.readFull(raw); err != nil {
				return underrun(err)
			}
			if err := pf.Expand(dst[destIdx:], raw); err != nil {
				return err
			}
			destIdx += bpp
		}
	}

	return nil
}

// DecodeRLE decompresses run-length encoded pixel data from data into dst and
// returns the number of source bytes consumed.
func DecodeRLE(data []byte, pf PixelFormat, dst []byte) (int, error) {
	if err := pf.validate(); err != nil {
		return 0, err
	}
	src := newSource(bytes.NewReader(data))
	err := decodeRLE(src, pf, dst)
	return int(src.n), err
}
