package codec

import (
	"errors"
	"fmt"
)

var (
	ErrFileOpen              = errors.New("tga: cannot open input")
	ErrTruncatedInput        = errors.New("tga: truncated input")
	ErrUnknownImageType      = errors.New("tga: unknown image type")
	ErrUnsupportedPixelDepth = errors.New("tga: unsupported pixel depth")
	ErrAllocation            = errors.New("tga: cannot allocate pixel buffer")
	ErrUnderrun              = errors.New("tga: RLE stream ended before image was filled")
	ErrColormapIndex         = errors.New("tga: colormap index out of range")
	ErrMissingColormap       = errors.New("tga: indexed image without colormap")
	ErrInvalidDimensions     = errors.New("tga: invalid image dimensions")
)

// Stage identifies the decode step that failed.
type Stage int

const (
	StageOpen Stage = iota
	StageHeader
	StageFormat
	StageAllocate
	StageImageID
	StageColormap
	StagePixels
)

var stageNames = map[Stage]string{
	StageOpen:     "open",
	StageHeader:   "header",
	StageFormat:   "format",
	StageAllocate: "allocate",
	StageImageID:  "image-id",
	StageColormap: "colormap",
	StagePixels:   "pixels",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// DecodeError reports which stage of a decode failed.
type DecodeError struct {
	Stage Stage
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("tga %s: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func stageError(stage Stage, err error) error {
	return &DecodeError{Stage: stage, Err: err}
}

// StageOf returns the failing stage of err and whether err came from a decode.
func StageOf(err error) (Stage, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Stage, true
	}
	return 0, false
}
