// Package handler serves TGA decoding over HTTP and websocket.
package handler

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/rcarmo/go-tga/internal/cache"
	"github.com/rcarmo/go-tga/internal/codec"
	"github.com/rcarmo/go-tga/internal/config"
	"github.com/rcarmo/go-tga/internal/logging"
)

// Handler decodes uploaded TGA files. A nil cache disables caching.
type Handler struct {
	opts           codec.Options
	maxUploadBytes int64
	allowedOrigins []string
	cache          *cache.Cache
	conns          chan struct{}
}

// New builds a Handler from cfg.
func New(cfg *config.Config, c *cache.Cache) *Handler {
	maxConns := cfg.Security.MaxConnections
	if maxConns < 1 {
		maxConns = 1
	}

	return &Handler{
		opts:           cfg.DecoderOptions(),
		maxUploadBytes: cfg.Security.MaxUploadBytes,
		allowedOrigins: cfg.Security.AllowedOrigins,
		cache:          c,
		conns:          make(chan struct{}, maxConns),
	}
}

// Register adds the handler routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/decode", h.Decode)
	mux.HandleFunc("/ws", h.Preview)
	mux.HandleFunc("/healthz", Healthz)
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// decode returns the image for data, consulting the cache first.
func (h *Handler) decode(data []byte) (*codec.Image, error) {
	var sum string
	if h.cache != nil {
		sum = cache.Sum(data)
		m, ok, err := h.cache.Get(sum)
		switch {
		case err != nil:
			logging.Warn("cache get %s: %v", sum, err)
		case ok:
			if err := h.opts.Check(m); err != nil {
				return nil, err
			}
			if h.opts.TopDown && !m.TopDown {
				m.FlipVertical()
			}
			return m, nil
		}
	}

	m, err := codec.DecodeWithOptions(bytes.NewReader(data), h.opts)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.Put(sum, m); err != nil {
			logging.Warn("cache put %s: %v", sum, err)
		}
	}

	return m, nil
}

// errorMessage is the JSON body sent for a failed decode.
type errorMessage struct {
	Type  string `json:"type"`
	Stage string `json:"stage"`
	Error string `json:"error"`
}

func newErrorMessage(err error) errorMessage {
	stage := "request"
	if s, ok := codec.StageOf(err); ok {
		stage = s.String()
	}
	return errorMessage{Type: "error", Stage: stage, Error: err.Error()}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(newErrorMessage(err)); encErr != nil {
		logging.Error("write error response: %v", encErr)
	}
}
