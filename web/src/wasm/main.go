//go:build js && wasm

// Package main provides WebAssembly bindings for the TGA decoder.
// This file contains only JavaScript glue code - all actual codec logic
// is in the internal/codec package.
package main

import (
	"bytes"
	"syscall/js"

	"github.com/rcarmo/go-tga/internal/codec"
)

func copyBytesToGo(array js.Value) []byte {
	data := make([]byte, array.Get("length").Int())
	js.CopyBytesToGo(data, array)
	return data
}

func errorResult(err error) interface{} {
	stage := "request"
	if s, ok := codec.StageOf(err); ok {
		stage = s.String()
	}
	return map[string]interface{}{
		"error": err.Error(),
		"stage": stage,
	}
}

// jsDecodeTGA decodes a Uint8Array holding a TGA file into
// {width, height, channels, pixels} with top-down RGBA pixels.
func jsDecodeTGA(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}

	m, err := codec.DecodeWithOptions(bytes.NewReader(copyBytesToGo(args[0])), codec.Options{TopDown: true})
	if err != nil {
		return errorResult(err)
	}

	rgba := m.ToRGBA()
	pixels := js.Global().Get("Uint8ClampedArray").New(len(rgba))
	js.CopyBytesToJS(pixels, rgba)

	return map[string]interface{}{
		"width":    m.Width,
		"height":   m.Height,
		"channels": m.Layout.Channels(),
		"layout":   m.Layout.String(),
		"pixels":   pixels,
	}
}

// jsReadHeader returns the header fields of a TGA file without decoding it.
func jsReadHeader(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}

	info, err := codec.DecodeConfig(bytes.NewReader(copyBytesToGo(args[0])))
	if err != nil {
		return errorResult(err)
	}

	return map[string]interface{}{
		"width":       info.Width,
		"height":      info.Height,
		"imageType":   codec.ImageTypeName(info.Header.ImageType),
		"pixelDepth":  int(info.Header.PixelDepth),
		"layout":      info.Format.Layout.String(),
		"compression": info.Format.Compression.String(),
		"topToBottom": info.Header.TopToBottom(),
	}
}

// jsFlipVertical is the JS wrapper for FlipVertical
func jsFlipVertical(this js.Value, args []js.Value) interface{} {
	if len(args) < 4 {
		return false
	}

	dataArray := args[0]
	width := args[1].Int()
	height := args[2].Int()
	bytesPerPixel := args[3].Int()

	data := copyBytesToGo(dataArray)
	codec.FlipVertical(data, width, height, bytesPerPixel)

	js.CopyBytesToJS(dataArray, data)
	return true
}

func main() {
	c := make(chan struct{}, 0)

	// Register functions
	js.Global().Set("goTGA", js.ValueOf(map[string]interface{}{
		"decodeTGA":    js.FuncOf(jsDecodeTGA),
		"readHeader":   js.FuncOf(jsReadHeader),
		"flipVertical": js.FuncOf(jsFlipVertical),
	}))
	js.Global().Set("decodeTGA", js.FuncOf(jsDecodeTGA))

	println("Go WASM TGA module loaded")

	<-c
}
