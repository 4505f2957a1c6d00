package model

import (
	"time"
)

// ChatMessage is one question/answer pair about a scan.
type ChatMessage struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	ScanID    string    `json:"scan_id" gorm:"size:36;index;not null"`
	UserID    string    `json:"user_id" gorm:"size:64;index;not null"`
	Message   string    `json:"message" gorm:"type:text;not null"`
	Response  string    `json:"response" gorm:"type:text;not null"`
	AudioURL  *string   `json:"audio_url" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// TableName pins the table name.
func (ChatMessage) TableName() string {
	return "chat_messages"
}

// ChatMessageRequest is the body of POST /api/chat.
type ChatMessageRequest struct {
	ScanID   string `json:"scanId"`
	Message  string `json:"message"`
	Language string `json:"language,omitempty"`
}

// ChatMessageResponse is returned by POST /api/chat.
type ChatMessageResponse struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	AudioURL  *string   `json:"audioUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatAudioRequest is the body of POST /api/chat-generate-audio.
type ChatAudioRequest struct {
	ChatID   string `json:"chatId"`
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// TranscribeRequest is the body of POST /api/transcribe.
type TranscribeRequest struct {
	Audio    string `json:"audio"` // base64 WAV
	Language string `json:"language,omitempty"`
}

// TranscribeResponse is returned by POST /api/transcribe.
type TranscribeResponse struct {
	Text string `json:"text"`
}

// ErrorResponse is the JSON error envelope used by every handler.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}
