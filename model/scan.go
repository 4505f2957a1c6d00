package model

import (
	"time"
)

// Scan is one analyzed artwork photo.
type Scan struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	UserID      string    `json:"user_id" gorm:"size:64;index;not null"`
	ImageURL    string    `json:"image_url" gorm:"size:1024;not null"`
	Title       string    `json:"title" gorm:"size:255;not null"`
	Description string    `json:"description" gorm:"type:text;not null"`
	AudioURL    *string   `json:"audio_url" gorm:"type:text"` // remote URL or data URL, nil until narrated
	Location    *string   `json:"location" gorm:"size:255"`
	Language    string    `json:"language" gorm:"size:8;default:'en'"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName pins the table name.
func (Scan) TableName() string {
	return "scans"
}

// NarrationContext is the text handed to the chat model alongside a question.
func (s *Scan) NarrationContext() string {
	return "Title: " + s.Title + "\nDescription: " + s.Description
}

// AnalyzeImageRequest is the body of POST /api/describe.
type AnalyzeImageRequest struct {
	Image    string `json:"image"` // base64 JPEG, no data: prefix
	Location string `json:"location,omitempty"`
	Language string `json:"language,omitempty"`
}

// AnalyzeImageResponse is returned by POST /api/describe.
type AnalyzeImageResponse struct {
	ScanID      string  `json:"scanId"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	AudioURL    *string `json:"audioUrl"`
	ImageURL    string  `json:"imageUrl"`
}

// GenerateAudioRequest is the body of POST /api/generate-audio.
type GenerateAudioRequest struct {
	ScanID      string `json:"scanId"`
	Description string `json:"description"`
	Language    string `json:"language,omitempty"`
}

// AudioURLResponse carries a freshly generated narration URL.
type AudioURLResponse struct {
	AudioURL *string `json:"audioUrl"`
}

// ScanDetailResponse is a scan with its conversation.
type ScanDetailResponse struct {
	Scan     *Scan          `json:"scan"`
	Messages []*ChatMessage `json:"messages"`
}
