package handler

import (
	"errors"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"strconv"

	"github.com/rcarmo/go-tga/internal/logging"
)

// Decode converts a TGA request body to PNG.
func (h *Handler) Decode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return
	}

	m, err := h.decode(data)
	if err != nil {
		logging.Debug("decode %d byte upload: %v", len(data), err)
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Image-Width", strconv.Itoa(m.Width))
	w.Header().Set("X-Image-Height", strconv.Itoa(m.Height))
	w.Header().Set("X-Image-Layout", m.Layout.String())

	if err := png.Encode(w, m.Image()); err != nil {
		logging.Error("encode png: %v", err)
	}
}
