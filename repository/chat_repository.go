package repository

import (
	"context"
	"errors"
	"fmt"

	"artlens/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatRepository defines the data operations on chat messages.
type ChatRepository interface {
	Create(ctx context.Context, msg *model.ChatMessage) error
	GetForUser(ctx context.Context, id, userID string) (*model.ChatMessage, error)
	ListByScan(ctx context.Context, scanID string) ([]*model.ChatMessage, error)
	UpdateAudioURL(ctx context.Context, id, userID string, audioURL *string) error
}

type gormChatRepository struct {
	db *gorm.DB
}

// NewGormChatRepository creates a ChatRepository backed by GORM.
func NewGormChatRepository(db *gorm.DB) ChatRepository {
	return &gormChatRepository{db: db}
}

func (r *gormChatRepository) Create(ctx context.Context, msg *model.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create chat message: %w", err)
	}
	return nil
}

func (r *gormChatRepository) GetForUser(ctx context.Context, id, userID string) (*model.ChatMessage, error) {
	var msg model.ChatMessage
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get chat message %s: %w", id, err)
	}
	return &msg, nil
}

// ListByScan returns the conversation in chronological order.
func (r *gormChatRepository) ListByScan(ctx context.Context, scanID string) ([]*model.ChatMessage, error) {
	var msgs []*model.ChatMessage
	err := r.db.WithContext(ctx).
		Where("scan_id = ?", scanID).
		Order("created_at ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages for scan %s: %w", scanID, err)
	}
	return msgs, nil
}

// UpdateAudioURL sets the narration URL. Callers check ownership with GetForUser
// first; writing the same URL again is not an error.
func (r *gormChatRepository) UpdateAudioURL(ctx context.Context, id, userID string, audioURL *string) error {
	res := r.db.WithContext(ctx).Model(&model.ChatMessage{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("audio_url", audioURL)
	if res.Error != nil {
		return fmt.Errorf("failed to update audio url for chat message %s: %w", id, res.Error)
	}
	return nil
}
