package scan

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/nocap-app/nocap-backend/entities"
)

type (
	ScanRepository interface {
		CreateScan(ctx context.Context, scan *entities.Scan) error
		GetScanByID(ctx context.Context, id string) (*entities.Scan, error)
		GetUserScans(ctx context.Context, userID string, page, limit int) ([]*entities.Scan, int64, error)
		UpdateScanStatus(ctx context.Context, id string, status string) error
		CompleteScan(ctx context.Context, id string, confidenceScore float64, isAiGenerated bool, artifacts, metadata string) error
		FailScan(ctx context.Context, id string, errorMessage string) error
		DeleteScan(ctx context.Context, id string) error
	}

	scanRepository struct {
		db *gorm.DB
	}
)

func NewScanRepository(db *gorm.DB) ScanRepository {
	return &scanRepository{db: db}
}

func (r *scanRepository) CreateScan(ctx context.Context, scan *entities.Scan) error {
	return r.db.WithContext(ctx).Create(scan).Error
}

func (r *scanRepository) GetScanByID(ctx context.Context, id string) (*entities.Scan, error) {
	var scan entities.Scan
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&scan).Error; err != nil {
		return nil, err
	}
	return &scan, nil
}

func (r *scanRepository) GetUserScans(ctx context.Context, userID string, page, limit int) ([]*entities.Scan, int64, error) {
	var scans []*entities.Scan
	var count int64
	offset := (page - 1) * limit

	if err := r.db.WithContext(ctx).
		Model(&entities.Scan{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&scans).Error; err != nil {
		return nil, 0, err
	}

	return scans, count, nil
}

func (r *scanRepository) UpdateScanStatus(ctx context.Context, id string, status string) error {
	return r.db.WithContext(ctx).Model(&entities.Scan{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}

func (r *scanRepository) CompleteScan(ctx context.Context, id string, confidenceScore float64, isAiGenerated bool, artifacts, metadata string) error {
	return r.db.WithContext(ctx).Model(&entities.Scan{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":           "completed",
			"confidence_score": confidenceScore,
			"is_ai_generated":  isAiGenerated,
			"artifacts":        artifacts,
			"metadata":         metadata,
			"updated_at":       time.Now(),
		}).Error
}

func (r *scanRepository) FailScan(ctx context.Context, id string, errorMessage string) error {
	return r.db.WithContext(ctx).Model(&entities.Scan{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        "failed",
			"error_message": errorMessage,
			"updated_at":    time.Now(),
		}).Error
}

func (r *scanRepository) DeleteScan(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entities.Scan{}).Error
}
