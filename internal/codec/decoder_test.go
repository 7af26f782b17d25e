package codec

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Variants(t *testing.T) {
	tests := []struct {
		name   string
		file   tgaFile
		layout Layout
		expect []byte
	}{
		{
			name: "uncompressed gray 8",
			file: tgaFile{
				header:  imageHeader(ImageTypeGrayscale, 2, 2, 8),
				payload: []byte{1, 2, 3, 4},
			},
			layout: LayoutLuminance,
			expect: []byte{1, 2, 3, 4},
		},
		{
			name: "uncompressed gray 16",
			file: tgaFile{
				header:  imageHeader(ImageTypeGrayscale, 2, 1, 16),
				payload: []byte{9, 255, 8, 128},
			},
			layout: LayoutLuminanceAlpha,
			expect: []byte{9, 255, 8, 128},
		},
		{
			name: "uncompressed truecolor 16",
			file: tgaFile{
				header:  imageHeader(ImageTypeTrueColor, 1, 1, 16),
				payload: []byte{0x1F, 0x00},
			},
			layout: LayoutRGB,
			expect: []byte{0, 0, 0xF8},
		},
		{
			name: "uncompressed truecolor 24",
			file: tgaFile{
				header:  imageHeader(ImageTypeTrueColor, 2, 1, 24),
				payload: []byte{1, 2, 3, 4, 5, 6},
			},
			layout: LayoutRGB,
			expect: []byte{3, 2, 1, 6, 5, 4},
		},
		{
			name: "uncompressed truecolor 32",
			file: tgaFile{
				header:  imageHeader(ImageTypeTrueColor, 1, 1, 32),
				payload: []byte{1, 2, 3, 4},
			},
			layout: LayoutRGBA,
			expect: []byte{3, 2, 1, 4},
		},
		{
			name: "uncompressed indexed",
			file: tgaFile{
				header: Header{
					ColormapType:      1,
					ImageType:         ImageTypeIndexed,
					ColormapLength:    4,
					ColormapEntrySize: 24,
					Width:             2,
					Height:            1,
					PixelDepth:        8,
				},
				colormap: bgrPalette(4),
				payload:  []byte{3, 0},
			},
			layout: LayoutRGB,
			expect: []byte{5, 4, 3, 2, 1, 0},
		},
		{
			name: "rle gray 8",
			file: tgaFile{
				header:  imageHeader(ImageTypeGrayscaleRLE, 3, 1, 8),
				payload: []byte{0x82, 0x7F},
			},
			layout: LayoutLuminance,
			expect: []byte{0x7F, 0x7F, 0x7F},
		},
		{
			name: "rle gray 16",
			file: tgaFile{
				header:  imageHeader(ImageTypeGrayscaleRLE, 2, 1, 16),
				payload: []byte{0x01, 1, 2, 3, 4},
			},
			layout: LayoutLuminanceAlpha,
			expect: []byte{1, 2, 3, 4},
		},
		{
			name: "rle truecolor 16",
			file: tgaFile{
				header:  imageHeader(ImageTypeTrueColorRLE, 2, 1, 16),
				payload: []byte{0x81, 0xE0, 0x03},
			},
			layout: LayoutRGB,
			expect: []byte{0, 0xF8, 0, 0, 0xF8, 0},
		},
		{
			name: "rle truecolor 24",
			file: tgaFile{
				header:  imageHeader(ImageTypeTrueColorRLE, 2, 2, 24),
				payload: []byte{0x81, 10, 20, 30, 0x01, 1, 2, 3, 4, 5, 6},
			},
			layout: LayoutRGB,
			expect: []byte{30, 20, 10, 30, 20, 10, 3, 2, 1, 6, 5, 4},
		},
		{
			name: "rle truecolor 32",
			file: tgaFile{
				header:  imageHeader(ImageTypeTrueColorRLE, 2, 1, 32),
				payload: []byte{0x81, 1, 2, 3, 4},
			},
			layout: LayoutRGBA,
			expect: []byte{3, 2, 1, 4, 3, 2, 1, 4},
		},
		{
			name: "rle indexed",
			file: tgaFile{
				header: Header{
					ColormapType:      1,
					ImageType:         ImageTypeIndexedRLE,
					ColormapLength:    2,
					ColormapEntrySize: 24,
					Width:             3,
					Height:            1,
					PixelDepth:        8,
				},
				colormap: []byte{200, 100, 50, 1, 2, 3},
				payload:  []byte{0x82, 0x00},
			},
			layout: LayoutRGB,
			expect: []byte{50, 100, 200, 50, 100, 200, 50, 100, 200},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode(bytes.NewReader(tt.file.bytes()))
			require.NoError(t, err)
			require.NotNil(t, m)

			assert.Equal(t, int(tt.file.header.Width), m.Width)
			assert.Equal(t, int(tt.file.header.Height), m.Height)
			assert.Equal(t, tt.layout, m.Layout)
			assert.Equal(t, tt.layout.Channels(), m.BytesPerPixel)
			assert.Len(t, m.Pix, m.Width*m.Height*m.BytesPerPixel)
			assert.Equal(t, tt.expect, m.Pix)
		})
	}
}

func TestDecode_SkipsImageID(t *testing.T) {
	file := tgaFile{
		header:  imageHeader(ImageTypeGrayscale, 2, 1, 8),
		id:      []byte("texture id"),
		payload: []byte{0xAB, 0xCD},
	}

	m, err := Decode(bytes.NewReader(file.bytes()))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAB, 0xCD}, m.Pix)
}

func TestDecode_ColormapOnTrueColorIsSkipped(t *testing.T) {
	file := tgaFile{
		header: Header{
			ColormapType:      1,
			ImageType:         ImageTypeTrueColor,
			ColormapLength:    2,
			ColormapEntrySize: 24,
			Width:             1,
			Height:            1,
			PixelDepth:        24,
		},
		colormap: bgrPalette(2),
		payload:  []byte{7, 8, 9},
	}

	m, err := Decode(bytes.NewReader(file.bytes()))
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8, 7}, m.Pix)
}

func TestDecode_UnusedColormapAnyEntrySize(t *testing.T) {
	tests := []struct {
		name      string
		imageType uint8
		depth     uint8
		entrySize uint8
		colormap  []byte
		payload   []byte
		expect    []byte
	}{
		{"truecolor 8-bit entries", ImageTypeTrueColor, 24, 8, []byte{0x11}, []byte{7, 8, 9}, []byte{9, 8, 7}},
		{"truecolor rle 12-bit entries", ImageTypeTrueColorRLE, 24, 12, []byte{0x11, 0x22, 0x33, 0x44}, []byte{0x80, 7, 8, 9}, []byte{9, 8, 7}},
		{"grayscale 8-bit entries", ImageTypeGrayscale, 8, 8, []byte{0x11, 0x22}, []byte{0x42}, []byte{0x42}},
		{"grayscale rle 64-bit entries", ImageTypeGrayscaleRLE, 8, 64, make([]byte, 8), []byte{0x80, 0x42}, []byte{0x42}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := tgaFile{
				header: Header{
					ColormapType:      1,
					ImageType:         tt.imageType,
					ColormapLength:    uint16(len(tt.colormap) / int((tt.entrySize+7)/8)),
					ColormapEntrySize: tt.entrySize,
					Width:             1,
					Height:            1,
					PixelDepth:        tt.depth,
				},
				colormap: tt.colormap,
				payload:  tt.payload,
			}

			m, err := Decode(bytes.NewReader(file.bytes()))
			require.NoError(t, err)
			assert.Equal(t, tt.expect, m.Pix)
		})
	}
}

func TestDecode_NoImageDataWithColormap(t *testing.T) {
	file := tgaFile{
		header: Header{
			ColormapType:      1,
			ImageType:         ImageTypeNone,
			ColormapLength:    3,
			ColormapEntrySize: 8,
		},
		colormap: []byte{1, 2, 3},
	}

	m, err := Decode(bytes.NewReader(file.bytes()))
	require.NoError(t, err)
	assert.Equal(t, LayoutNone, m.Layout)
	assert.Empty(t, m.Pix)
}

func TestDecode_ColormapEntrySizes(t *testing.T) {
	tests := []struct {
		name      string
		entrySize uint8
		colormap  []byte
		expect    []byte
	}{
		{"24-bit", 24, []byte{200, 100, 50}, []byte{50, 100, 200}},
		{"32-bit drops alpha", 32, []byte{200, 100, 50, 0x80}, []byte{50, 100, 200}},
		{"16-bit", 16, []byte{0x00, 0x7C}, []byte{0xF8, 0, 0}},
		{"15-bit", 15, []byte{0x1F, 0x00}, []byte{0, 0, 0xF8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := tgaFile{
				header: Header{
					ColormapType:      1,
					ImageType:         ImageTypeIndexed,
					ColormapLength:    1,
					ColormapEntrySize: tt.entrySize,
					Width:             1,
					Height:            1,
					PixelDepth:        8,
				},
				colormap: tt.colormap,
				payload:  []byte{0},
			}

			m, err := Decode(bytes.NewReader(file.bytes()))
			require.NoError(t, err)
			assert.Equal(t, tt.expect, m.Pix)
		})
	}
}

func TestDecode_NoImageData(t *testing.T) {
	file := tgaFile{header: imageHeader(ImageTypeNone, 0, 0, 0)}

	m, err := Decode(bytes.NewReader(file.bytes()))
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, LayoutNone, m.Layout)
	assert.Empty(t, m.Pix)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		want  error
		stage Stage
	}{
		{
			name:  "short header",
			data:  make([]byte, 17),
			want:  ErrTruncatedInput,
			stage: StageHeader,
		},
		{
			name:  "empty input",
			data:  nil,
			want:  ErrTruncatedInput,
			stage: StageHeader,
		},
		{
			name:  "image type 7",
			data:  tgaFile{header: imageHeader(7, 4, 4, 24)}.bytes(),
			want:  ErrUnknownImageType,
			stage: StageFormat,
		},
		{
			name:  "grayscale 24-bit",
			data:  tgaFile{header: imageHeader(ImageTypeGrayscale, 4, 4, 24)}.bytes(),
			want:  ErrUnsupportedPixelDepth,
			stage: StageFormat,
		},
		{
			name:  "zero width",
			data:  tgaFile{header: imageHeader(ImageTypeGrayscale, 0, 4, 8)}.bytes(),
			want:  ErrInvalidDimensions,
			stage: StageFormat,
		},
		{
			name: "truncated image id",
			data: func() []byte {
				b := tgaFile{header: imageHeader(ImageTypeGrayscale, 1, 1, 8)}.bytes()
				b[offIDLength] = 10
				return append(b, 1, 2, 3)
			}(),
			want:  ErrTruncatedInput,
			stage: StageImageID,
		},
		{
			name: "truncated colormap",
			data: tgaFile{
				header: Header{
					ColormapType:      1,
					ImageType:         ImageTypeIndexed,
					ColormapLength:    4,
					ColormapEntrySize: 24,
					Width:             1,
					Height:            1,
					PixelDepth:        8,
				},
				colormap: bgrPalette(2),
			}.bytes(),
			want:  ErrTruncatedInput,
			stage: StageColormap,
		},
		{
			name: "unsupported colormap entry size",
			data: tgaFile{
				header: Header{
					ColormapType:      1,
					ImageType:         ImageTypeIndexed,
					ColormapLength:    1,
					ColormapEntrySize: 8,
					Width:             1,
					Height:            1,
					PixelDepth:        8,
				},
				colormap: []byte{1},
				payload:  []byte{0},
			}.bytes(),
			want:  ErrUnsupportedPixelDepth,
			stage: StageColormap,
		},
		{
			name: "truncated unused colormap",
			data: tgaFile{
				header: Header{
					ColormapType:      1,
					ImageType:         ImageTypeTrueColor,
					ColormapLength:    4,
					ColormapEntrySize: 8,
					Width:             1,
					Height:            1,
					PixelDepth:        24,
				},
				colormap: []byte{1, 2},
			}.bytes(),
			want:  ErrTruncatedInput,
			stage: StageColormap,
		},
		{
			name:  "indexed without colormap",
			data:  tgaFile{header: imageHeader(ImageTypeIndexed, 1, 1, 8), payload: []byte{0}}.bytes(),
			want:  ErrMissingColormap,
			stage: StageColormap,
		},
		{
			name:  "truncated raw pixels",
			data:  tgaFile{header: imageHeader(ImageTypeTrueColor, 2, 2, 24), payload: make([]byte, 11)}.bytes(),
			want:  ErrTruncatedInput,
			stage: StagePixels,
		},
		{
			name:  "rle underrun",
			data:  tgaFile{header: imageHeader(ImageTypeTrueColorRLE, 2, 2, 24), payload: []byte{0x81, 1, 2, 3}}.bytes(),
			want:  ErrUnderrun,
			stage: StagePixels,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode(bytes.NewReader(tt.data))
			require.Error(t, err)
			assert.Nil(t, m)
			assert.ErrorIs(t, err, tt.want)

			stage, ok := StageOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.stage, stage)
		})
	}
}

func TestDecode_Limits(t *testing.T) {
	data := tgaFile{
		header:  imageHeader(ImageTypeGrayscale, 4, 4, 8),
		payload: make([]byte, 16),
	}.bytes()

	tests := []struct {
		name string
		opts Options
	}{
		{"max width", Options{MaxWidth: 3}},
		{"max height", Options{MaxHeight: 2}},
		{"max bytes", Options{MaxPixelBytes: 15}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := DecodeWithOptions(bytes.NewReader(data), tt.opts)
			require.ErrorIs(t, err, ErrAllocation)
			assert.Nil(t, m)

			stage, _ := StageOf(err)
			assert.Equal(t, StageAllocate, stage)
		})
	}

	m, err := DecodeWithOptions(bytes.NewReader(data), Options{MaxWidth: 4, MaxHeight: 4, MaxPixelBytes: 16})
	require.NoError(t, err)
	assert.Len(t, m.Pix, 16)
}

func TestOptions_Check(t *testing.T) {
	m := &Image{Width: 4, Height: 4, Layout: LayoutRGB, BytesPerPixel: 3, Pix: make([]byte, 48)}

	tests := []struct {
		name string
		opts Options
		ok   bool
	}{
		{"no limits", Options{}, true},
		{"exact fit", Options{MaxWidth: 4, MaxHeight: 4, MaxPixelBytes: 48}, true},
		{"max width", Options{MaxWidth: 3}, false},
		{"max height", Options{MaxHeight: 3}, false},
		{"max bytes", Options{MaxPixelBytes: 47}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Check(m)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrAllocation)
			stage, ok := StageOf(err)
			require.True(t, ok)
			assert.Equal(t, StageAllocate, stage)
		})
	}
}

func TestDecode_Orientation(t *testing.T) {
	bottomUp := tgaFile{
		header:  imageHeader(ImageTypeGrayscale, 2, 2, 8),
		payload: []byte{1, 2, 3, 4},
	}

	m, err := Decode(bytes.NewReader(bottomUp.bytes()))
	require.NoError(t, err)
	assert.False(t, m.TopDown)
	assert.Equal(t, []byte{1, 2, 3, 4}, m.Pix, "stream order by default")

	m, err = DecodeWithOptions(bytes.NewReader(bottomUp.bytes()), Options{TopDown: true})
	require.NoError(t, err)
	assert.True(t, m.TopDown)
	assert.Equal(t, []byte{3, 4, 1, 2}, m.Pix)

	topDown := bottomUp
	topDown.header.ImageDescriptor = descTopToBottomFlag

	m, err = DecodeWithOptions(bytes.NewReader(topDown.bytes()), Options{TopDown: true})
	require.NoError(t, err)
	assert.True(t, m.TopDown)
	assert.Equal(t, []byte{1, 2, 3, 4}, m.Pix)
}

func TestDecode_TrailingDataIgnored(t *testing.T) {
	file := tgaFile{
		header:  imageHeader(ImageTypeGrayscaleRLE, 2, 1, 8),
		payload: []byte{0x81, 0x10, 0x80, 0x20, 0xDE, 0xAD},
	}

	m, err := Decode(bytes.NewReader(file.bytes()))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x10, 0x10}, m.Pix)
}

func TestDecodeConfig(t *testing.T) {
	file := tgaFile{header: imageHeader(ImageTypeTrueColorRLE, 640, 480, 32)}

	info, err := DecodeConfig(bytes.NewReader(file.bytes()))
	require.NoError(t, err)
	assert.Equal(t, 640, info.Width)
	assert.Equal(t, 480, info.Height)
	assert.Equal(t, LayoutRGBA, info.Format.Layout)
	assert.Equal(t, CompressionRLE, info.Format.Compression)
	assert.Equal(t, int64(640*480*4), info.PixelBytes())
}

func TestDecodeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tex.tga")
	file := tgaFile{
		header:  imageHeader(ImageTypeTrueColor, 1, 1, 24),
		payload: []byte{1, 2, 3},
	}
	require.NoError(t, os.WriteFile(path, file.bytes(), 0o600))

	m, err := DecodeFile(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 2, 1}, m.Pix)
}

func TestDecodeFile_Missing(t *testing.T) {
	m, err := DecodeFile(filepath.Join(t.TempDir(), "missing.tga"), Options{})
	require.ErrorIs(t, err, ErrFileOpen)
	require.ErrorIs(t, err, os.ErrNotExist)
	assert.Nil(t, m)

	stage, ok := StageOf(err)
	require.True(t, ok)
	assert.Equal(t, StageOpen, stage)
	assert.Contains(t, err.Error(), "tga open")
}

func TestDecode_ConcurrentCalls(t *testing.T) {
	file := tgaFile{
		header:  imageHeader(ImageTypeTrueColorRLE, 16, 16, 24),
		payload: []byte{0xFF, 1, 2, 3, 0xFF, 4, 5, 6},
	}
	data := file.bytes()

	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := Decode(bytes.NewReader(data))
			errs <- err
		}()
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-errs)
	}
}
