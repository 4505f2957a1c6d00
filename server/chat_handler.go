package server

import (
	"net/http"

	"artlens/core/validation"
	"artlens/logger"
	"artlens/model"
)

// ChatHandler answers a question about one of the user's scans.
func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req model.ChatMessageRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	if err := validation.Chat(&req); err != nil {
		writeRequestError(w, err)
		return
	}

	// Load the scan the question is about
	ctx := r.Context()
	scan, err := h.scanRepo.GetForUser(ctx, req.ScanID, userID)
	if err != nil {
		h.writeLookupError(w, err, "Scan not found")
		return
	}

	// 用扫描的标题和描述作为上下文回答
	response := h.agent.Chat(ctx, req.Message, scan.NarrationContext(), req.Language)

	// Save the exchange
	msg := &model.ChatMessage{
		ScanID:   scan.ID,
		UserID:   userID,
		Message:  req.Message,
		Response: response,
	}
	if err := h.chatRepo.Create(ctx, msg); err != nil {
		logger.Error("Chat save error",
			logger.String("scanID", scan.ID),
			logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to save chat")
		return
	}

	writeJSON(w, http.StatusOK, model.ChatMessageResponse{
		ID:        msg.ID,
		Message:   msg.Message,
		Response:  msg.Response,
		CreatedAt: msg.CreatedAt,
	})
}

// ChatAudioHandler narrates a chat answer and stores the URL on the message.
func (h *APIHandler) ChatAudioHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req model.ChatAudioRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	if err := validation.ChatAudio(&req); err != nil {
		writeRequestError(w, err)
		return
	}

	ctx := r.Context()
	if _, err := h.chatRepo.GetForUser(ctx, req.ChatID, userID); err != nil {
		h.writeLookupError(w, err, "Chat message not found")
		return
	}

	// 相同文本得到相同的 URL，重复请求是安全的
	audioURL := h.narrate(ctx, req.Text)
	if audioURL == nil {
		writeJSON(w, http.StatusOK, model.AudioURLResponse{})
		return
	}

	if err := h.chatRepo.UpdateAudioURL(ctx, req.ChatID, userID, audioURL); err != nil {
		logger.Error("Failed to update audio URL",
			logger.String("chatID", req.ChatID),
			logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to update audio URL")
		return
	}
	writeJSON(w, http.StatusOK, model.AudioURLResponse{AudioURL: audioURL})
}
