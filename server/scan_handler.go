package server

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"artlens/core/validation"
	"artlens/logger"
	"artlens/model"
	"artlens/repository"
	"artlens/storage"

	"github.com/gorilla/mux"
)

const (
	defaultScanLimit = 20
	maxScanLimit     = 100
)

// DescribeHandler analyzes an artwork photo, narrates it and stores the scan.
func (h *APIHandler) DescribeHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req model.AnalyzeImageRequest
	if err := decodeJSON(w, r, maxImageBody, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	// 去掉 data URL 前缀，只保留 base64 部分
	req.Image = strings.TrimSpace(req.Image)
	if i := strings.Index(req.Image, ";base64,"); strings.HasPrefix(req.Image, "data:") && i >= 0 {
		req.Image = req.Image[i+len(";base64,"):]
	}
	if err := validation.Analyze(&req); err != nil {
		writeRequestError(w, err)
		return
	}

	imageBytes, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		writeRequestError(w, validation.Errors{"image": "Image must be base64 encoded"})
		return
	}

	ctx := r.Context()
	// 识别作品：失败时 agent 返回兜底结果，不会报错
	analysis := h.agent.AnalyzeArtwork(ctx, req.Image, req.Location, req.Language)
	logger.Info("Artwork analyzed",
		logger.String("userID", userID),
		logger.String("title", analysis.Title))

	// 语音生成失败不影响扫描结果
	audioURL := h.narrate(ctx, analysis.Description)

	// Upload the photo, or keep it inline when storage is disabled
	imageURL := "data:image/jpeg;base64," + req.Image
	if h.store != nil {
		imageURL, err = h.store.Put(ctx, storage.ArtworkKey(userID, h.now()), imageBytes, "image/jpeg")
		if err != nil {
			logger.Error("Image upload error",
				logger.String("userID", userID),
				logger.ErrorField(err))
			writeError(w, http.StatusInternalServerError, "Upload failed")
			return
		}
	}

	// Save scan
	scan := &model.Scan{
		UserID:      userID,
		ImageURL:    imageURL,
		Title:       analysis.Title,
		Description: analysis.Description,
		AudioURL:    audioURL,
		Language:    req.Language,
	}
	if req.Location != "" {
		location := req.Location
		scan.Location = &location
	}
	if err := h.scanRepo.Create(ctx, scan); err != nil {
		logger.Error("Database error", logger.String("userID", userID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "DB error")
		return
	}

	writeJSON(w, http.StatusOK, model.AnalyzeImageResponse{
		ScanID:      scan.ID,
		Title:       scan.Title,
		Description: scan.Description,
		AudioURL:    audioURL,
		ImageURL:    imageURL,
	})
}

// GenerateAudioHandler narrates a scan description on demand and stores the URL.
func (h *APIHandler) GenerateAudioHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req model.GenerateAudioRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	if err := validation.GenerateAudio(&req); err != nil {
		writeRequestError(w, err)
		return
	}

	// 校验扫描归属，别人的扫描按不存在处理
	ctx := r.Context()
	if _, err := h.scanRepo.GetForUser(ctx, req.ScanID, userID); err != nil {
		h.writeLookupError(w, err, "Scan not found")
		return
	}

	audioURL := h.narrate(ctx, req.Description)
	if audioURL == nil {
		// Keep whatever narration the scan already has.
		writeJSON(w, http.StatusOK, model.AudioURLResponse{})
		return
	}

	if err := h.scanRepo.UpdateAudioURL(ctx, req.ScanID, userID, audioURL); err != nil {
		logger.Error("Failed to update audio URL",
			logger.String("scanID", req.ScanID),
			logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to update audio URL")
		return
	}
	writeJSON(w, http.StatusOK, model.AudioURLResponse{AudioURL: audioURL})
}

// ListScansHandler returns the user's scans, newest first.
func (h *APIHandler) ListScansHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit := defaultScanLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = min(n, maxScanLimit)
	}

	scans, err := h.scanRepo.ListByUser(r.Context(), userID, limit)
	if err != nil {
		logger.Error("Failed to list scans", logger.String("userID", userID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if scans == nil {
		scans = []*model.Scan{}
	}
	writeJSON(w, http.StatusOK, scans)
}

// GetScanHandler returns one scan with its conversation.
func (h *APIHandler) GetScanHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	scanID := mux.Vars(r)["id"]
	scan, err := h.scanRepo.GetForUser(r.Context(), scanID, userID)
	if err != nil {
		h.writeLookupError(w, err, "Scan not found")
		return
	}

	messages, err := h.chatRepo.ListByScan(r.Context(), scan.ID)
	if err != nil {
		logger.Error("Failed to list messages", logger.String("scanID", scanID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if messages == nil {
		messages = []*model.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, model.ScanDetailResponse{Scan: scan, Messages: messages})
}

// ListMessagesHandler returns the conversation about a scan, oldest first.
func (h *APIHandler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	scanID := mux.Vars(r)["id"]
	if _, err := h.scanRepo.GetForUser(r.Context(), scanID, userID); err != nil {
		h.writeLookupError(w, err, "Scan not found")
		return
	}

	messages, err := h.chatRepo.ListByScan(r.Context(), scanID)
	if err != nil {
		logger.Error("Failed to list messages", logger.String("scanID", scanID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if messages == nil {
		messages = []*model.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, messages)
}

// DeleteScanHandler removes a scan and its conversation.
func (h *APIHandler) DeleteScanHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	scanID := mux.Vars(r)["id"]
	if err := h.scanRepo.Delete(r.Context(), scanID, userID); err != nil {
		h.writeLookupError(w, err, "Scan not found")
		return
	}

	logger.Info("Scan deleted", logger.String("userID", userID), logger.String("scanID", scanID))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Scan deleted"})
}

func (h *APIHandler) writeLookupError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, notFound)
		return
	}
	logger.Error("Database error", logger.ErrorField(err))
	writeError(w, http.StatusInternalServerError, "Internal server error")
}
