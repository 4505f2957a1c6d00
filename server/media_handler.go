package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"artlens/logger"
	"artlens/storage"

	"github.com/gorilla/mux"
)

// MediaHandler streams a stored artwork or narration out of object storage.
func (h *APIHandler) MediaHandler(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "Object storage not configured", http.StatusServiceUnavailable)
		return
	}

	key := mux.Vars(r)["object"]
	if key == "" {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	object, meta, err := h.store.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		logger.Error("Error reading object", logger.String("key", key), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	defer object.Close()

	contentType := meta.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if meta.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(meta.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000")

	if _, err := io.Copy(w, object); err != nil {
		logger.Warn("Error serving file from MinIO", logger.String("key", key), logger.ErrorField(err))
	}
}
