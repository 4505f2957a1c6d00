package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"artlens/config"
	"artlens/core/agent"
	"artlens/core/speech"
	"artlens/core/validation"
	"artlens/logger"
	"artlens/model"
	"artlens/repository"
	"artlens/storage"
)

const (
	maxJSONBody       = 1 << 20
	maxImageBody      = 20 << 20
	maxTranscribeBody = 10 << 20
)

// ArtAgent is the model provider used by the handlers.
type ArtAgent interface {
	AnalyzeArtwork(ctx context.Context, imageBase64, location, language string) agent.Analysis
	Chat(ctx context.Context, message, artContext, language string) string
	Transcribe(ctx context.Context, audio []byte, language string) (string, error)
}

// Narrator turns text into a playable audio URL.
type Narrator interface {
	Narrate(ctx context.Context, text string) (string, error)
}

// MediaStore uploads artworks and serves stored objects.
type MediaStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, *storage.ObjectMeta, error)
}

// APIHandler handles all API requests.
type APIHandler struct {
	scanRepo repository.ScanRepository
	chatRepo repository.ChatRepository
	agent    ArtAgent
	narrator Narrator
	store    MediaStore
	cfg      *config.Config
	now      func() time.Time
}

// NewAPIHandler creates a new API handler. store may be nil, in which case
// artworks are kept inline as data URLs and /media answers 503.
func NewAPIHandler(
	scanRepo repository.ScanRepository,
	chatRepo repository.ChatRepository,
	artAgent ArtAgent,
	narrator Narrator,
	store MediaStore,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		scanRepo: scanRepo,
		chatRepo: chatRepo,
		agent:    artAgent,
		narrator: narrator,
		store:    store,
		cfg:      cfg,
		now:      time.Now,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

// writeRequestError maps decode and validation failures to 400.
func writeRequestError(w http.ResponseWriter, err error) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Details: verrs})
		return
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, "Invalid request body")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

// narrate returns nil when audio could not be produced; narration never fails a request.
func (h *APIHandler) narrate(ctx context.Context, text string) *string {
	if h.narrator == nil {
		return nil
	}
	url, err := h.narrator.Narrate(ctx, text)
	if err != nil {
		if !errors.Is(err, speech.ErrUnavailable) {
			logger.Warn("Audio generation failed", logger.ErrorField(err))
		}
		return nil
	}
	return &url
}
