package codec

import (
	"bufio"
	"io"
)

type byteReader interface {
	io.Reader
	io.ByteReader
}

// source is a forward-only byte stream that counts what the decoder consumed.
type source struct {
	r byteReader
	n int64
}

func newSource(r io.Reader) *source {
	if br, ok := r.(byteReader); ok {
		return &source{r: br}
	}
	return &source{r: bufio.NewReader(r)}
}

// readFull fills b, mapping a short read to io.ErrUnexpectedEOF.
func (s *source) readFull(b []byte) error {
	n, err := io.ReadFull(s.r, b)
	s.n += int64(n)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

func (s *source) readByte() (byte, error) {
	b, err := s.r.ReadByte()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}
	s.n++
	return b, nil
}

func (s *source) skip(n int64) error {
	if n <= 0 {
		return nil
	}
	m, err := io.CopyN(io.Discard, s.r, n)
	s.n += m
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}
