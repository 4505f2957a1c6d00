package server

import (
	"encoding/base64"
	"net/http"

	"artlens/core/validation"
	"artlens/logger"
	"artlens/model"
)

// TranscribeHandler turns a base64 WAV recording into text.
func (h *APIHandler) TranscribeHandler(w http.ResponseWriter, r *http.Request) {
	var req model.TranscribeRequest
	if err := decodeJSON(w, r, maxTranscribeBody, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	if err := validation.Transcribe(&req); err != nil {
		writeRequestError(w, err)
		return
	}

	audio, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		writeRequestError(w, validation.Errors{"audio": "Audio must be base64 encoded"})
		return
	}

	text, err := h.agent.Transcribe(r.Context(), audio, req.Language)
	if err != nil {
		logger.Error("Transcription error", logger.Int("audioBytes", len(audio)), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Transcription failed")
		return
	}

	writeJSON(w, http.StatusOK, model.TranscribeResponse{Text: text})
}
