package repository

import (
	"context"
	"errors"
	"fmt"

	"artlens/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScanRepository defines the data operations on scans.
type ScanRepository interface {
	Create(ctx context.Context, scan *model.Scan) error
	GetByID(ctx context.Context, id string) (*model.Scan, error)
	GetForUser(ctx context.Context, id, userID string) (*model.Scan, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Scan, error)
	UpdateAudioURL(ctx context.Context, id, userID string, audioURL *string) error
	Delete(ctx context.Context, id, userID string) error
}

type gormScanRepository struct {
	db *gorm.DB
}

// NewGormScanRepository creates a ScanRepository backed by GORM.
func NewGormScanRepository(db *gorm.DB) ScanRepository {
	return &gormScanRepository{db: db}
}

// Create inserts a scan, assigning a UUID when the caller did not.
func (r *gormScanRepository) Create(ctx context.Context, scan *model.Scan) error {
	if scan.ID == "" {
		scan.ID = uuid.NewString()
	}
	if scan.Language == "" { // 默认英文
		scan.Language = "en"
	}
	if err := r.db.WithContext(ctx).Create(scan).Error; err != nil {
		return fmt.Errorf("failed to create scan: %w", err)
	}
	return nil
}

func (r *gormScanRepository) GetByID(ctx context.Context, id string) (*model.Scan, error) {
	var scan model.Scan
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&scan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get scan %s: %w", id, err)
	}
	return &scan, nil
}

// GetForUser returns ErrNotFound for scans owned by someone else.
func (r *gormScanRepository) GetForUser(ctx context.Context, id, userID string) (*model.Scan, error) {
	var scan model.Scan
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&scan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get scan %s: %w", id, err)
	}
	return &scan, nil
}

// ListByUser returns the newest scans first. limit <= 0 means no limit.
func (r *gormScanRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Scan, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var scans []*model.Scan
	if err := q.Find(&scans).Error; err != nil {
		return nil, fmt.Errorf("failed to list scans for user %s: %w", userID, err)
	}
	return scans, nil
}

// UpdateAudioURL sets the narration URL. Callers check ownership with GetForUser
// first; writing the same URL again is not an error.
func (r *gormScanRepository) UpdateAudioURL(ctx context.Context, id, userID string, audioURL *string) error {
	res := r.db.WithContext(ctx).Model(&model.Scan{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("audio_url", audioURL)
	if res.Error != nil {
		return fmt.Errorf("failed to update audio url for scan %s: %w", id, res.Error)
	}
	return nil
}

// Delete removes a scan and its chat messages.
func (r *gormScanRepository) Delete(ctx context.Context, id, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 只能删除自己的扫描
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Scan{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete scan %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		// 同时删除相关的对话记录
		if err := tx.Where("scan_id = ?", id).Delete(&model.ChatMessage{}).Error; err != nil {
			return fmt.Errorf("failed to delete chat messages of scan %s: %w", id, err)
		}
		return nil
	})
}
