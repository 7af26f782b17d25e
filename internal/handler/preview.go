package handler

import (
	"encoding/binary"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/rcarmo/go-tga/internal/codec"
	"github.com/rcarmo/go-tga/internal/logging"
)

const (
	webSocketReadBufferSize  = 8192
	webSocketWriteBufferSize = 8192 * 2
)

// Frame layout: 'T' | width u16le | height u16le | channels u8 | RGBA pixels.
const (
	frameMagic      = 'T'
	frameHeaderSize = 6
)

// Preview upgrades to a websocket. Every binary message is decoded as a TGA
// file and answered with an image frame or a JSON error.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	select {
	case h.conns <- struct{}{}:
		defer func() { <-h.conns }()
	default:
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  webSocketReadBufferSize,
		WriteBufferSize: webSocketWriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return isAllowedOrigin(r.Header.Get("Origin"), h.allowedOrigins)
		},
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("upgrade websocket: %v", err)

		return
	}

	defer func() {
		if err = wsConn.Close(); err != nil {
			logging.Debug("closing websocket: %v", err)
		}
	}()

	wsConn.SetReadLimit(h.maxUploadBytes)

	for {
		messageType, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			if strings.HasSuffix(err.Error(), "use of closed network connection") {
				return
			}

			logging.Warn("reading message from ws: %v", err)

			return
		}

		if err := h.answer(wsConn, messageType, data); err != nil {
			if errors.Is(err, websocket.ErrCloseSent) {
				return
			}

			logging.Warn("sending message to ws: %v", err)

			return
		}
	}
}

func (h *Handler) answer(wsConn *websocket.Conn, messageType int, data []byte) error {
	if messageType != websocket.BinaryMessage {
		return wsConn.WriteJSON(newErrorMessage(errors.New("expected a binary message")))
	}

	m, err := h.decode(data)
	if err != nil {
		logging.Debug("preview decode: %v", err)
		return wsConn.WriteJSON(newErrorMessage(err))
	}

	return wsConn.WriteMessage(websocket.BinaryMessage, encodeFrame(m))
}

// encodeFrame packs m as a top-down RGBA frame.
func encodeFrame(m *codec.Image) []byte {
	rgba := m.ToRGBA()
	if !m.TopDown {
		codec.FlipVertical(rgba, m.Width, m.Height, 4)
	}

	frame := make([]byte, frameHeaderSize, frameHeaderSize+len(rgba))
	frame[0] = frameMagic
	binary.LittleEndian.PutUint16(frame[1:3], uint16(m.Width))
	binary.LittleEndian.PutUint16(frame[3:5], uint16(m.Height))
	frame[5] = byte(m.Layout.Channels())

	return append(frame, rgba...)
}

func isAllowedOrigin(origin string, allowedOrigins []string) bool {
	if origin == "" {
		return false
	}

	normalized := strings.TrimPrefix(strings.TrimPrefix(origin, "http://"), "https://")
	normalized = strings.TrimSuffix(normalized, "/")

	// Always allow localhost-style origins for development
	if strings.HasPrefix(normalized, "localhost") || strings.HasPrefix(normalized, "127.0.0.1") {
		return true
	}

	for _, entry := range allowedOrigins {
		candidate := strings.TrimSpace(entry)
		if candidate == "" {
			continue
		}

		// Support allow-list entries with or without scheme
		if candidate == origin || candidate == normalized {
			return true
		}

		if strings.TrimPrefix(candidate, "http://") == normalized || strings.TrimPrefix(candidate, "https://") == normalized {
			return true
		}
	}

	return false
}
