package game

import (
	"context"

	"gorm.io/gorm"

	"github.com/nocap-app/nocap-backend/entities"
)

type (
	GameRepository interface {
		GetActiveMedia(ctx context.Context, mediaType string, limit int) ([]*entities.GameMedia, error)
	}

	gameRepository struct {
		db *gorm.DB
	}
)

func NewGameRepository(db *gorm.DB) GameRepository {
	return &gameRepository{db: db}
}

func (r *gameRepository) GetActiveMedia(ctx context.Context, mediaType string, limit int) ([]*entities.GameMedia, error) {
	var media []*entities.GameMedia
	if err := r.db.WithContext(ctx).
		Where("type = ? AND is_active = ?", mediaType, true).
		Limit(limit).
		Find(&media).Error; err != nil {
		return nil, err
	}
	return media, nil
}
