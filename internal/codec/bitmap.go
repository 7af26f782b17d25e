package codec

// FlipVertical flips bitmap data vertically (in-place).
// TGA stores bottom-up by default; this turns it top-down.
func FlipVertical(data []byte, width, height, bytesPerPixel int) {
	if height <= 1 {
		return
	}

	rowDelta := width * bytesPerPixel
	if rowDelta <= 0 || len(data) < height*rowDelta {
		return
	}

	tmp := make([]byte, rowDelta)
	half := height / 2

	for i := 0; i < half; i++ {
		topLine := i * rowDelta
		bottomLine := (height - 1 - i) * rowDelta

		copy(tmp, data[topLine:topLine+rowDelta])
		copy(data[topLine:topLine+rowDelta], data[bottomLine:bottomLine+rowDelta])
		copy(data[bottomLine:bottomLine+rowDelta], tmp)
	}
}

// LuminanceToRGBA converts 8-bit grayscale to 32-bit RGBA
func LuminanceToRGBA(src []byte, dst []byte) {
	for i, j := 0, 0; i < len(src) && j+3 < len(dst); i, j = i+1, j+4 {
		dst[j] = src[i]
		dst[j+1] = src[i]
		dst[j+2] = src[i]
		dst[j+3] = 255
	}
}

// LuminanceAlphaToRGBA converts grayscale+alpha pairs to 32-bit RGBA
func LuminanceAlphaToRGBA(src []byte, dst []byte) {
	for i, j := 0, 0; i+1 < len(src) && j+3 < len(dst); i, j = i+2, j+4 {
		dst[j] = src[i]
		dst[j+1] = src[i]
		dst[j+2] = src[i]
		dst[j+3] = src[i+1]
	}
}

// RGB24ToRGBA converts 24-bit RGB to 32-bit RGBA
func RGB24ToRGBA(src []byte, dst []byte) {
	srcIdx := 0
	dstIdx := 0

	for srcIdx+2 < len(src) && dstIdx+3 < len(dst) {
		dst[dstIdx] = src[srcIdx]
		dst[dstIdx+1] = src[srcIdx+1]
		dst[dstIdx+2] = src[srcIdx+2]
		dst[dstIdx+3] = 255

		srcIdx += 3
		dstIdx += 4
	}
}

// SwapRedBlue exchanges channels 0 and 2 of every pixel in place. Applying it
// twice restores the input.
func SwapRedBlue(data []byte, bytesPerPixel int) {
	if bytesPerPixel < 3 {
		return
	}
	for i := 0; i+2 < len(data); i += bytesPerPixel {
		data[i], data[i+2] = data[i+2], data[i]
	}
}
