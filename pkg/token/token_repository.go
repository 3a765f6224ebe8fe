package token

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nocap-app/nocap-backend/entities"
)

type (
	// BalanceUpdate holds the new field values for a conditional ledger write.
	BalanceUpdate struct {
		Balance       int
		FreeScansUsed int
		GamePoints    int
		TotalScans    int
	}

	TokenRepository interface {
		GetOrCreateBalance(ctx context.Context, userID string) (*entities.TokenBalance, error)
		GetBalance(ctx context.Context, userID string) (*entities.TokenBalance, error)
		// UpdateBalanceCAS applies update only if the row still matches the
		// previously read snapshot. Returns false when another writer won the
		// race, in which case the caller re-reads and retries.
		UpdateBalanceCAS(ctx context.Context, snapshot *entities.TokenBalance, update BalanceUpdate) (bool, error)

		CreateTransaction(ctx context.Context, tx *entities.TokenTransaction) error
		GetTransactionByPaymentID(ctx context.Context, paymentID string) (*entities.TokenTransaction, error)
		GetUserTransactions(ctx context.Context, userID string, page, limit int) ([]*entities.TokenTransaction, int64, error)
	}

	tokenRepository struct {
		db *gorm.DB
	}
)

func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) GetOrCreateBalance(ctx context.Context, userID string) (*entities.TokenBalance, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}

	var balance entities.TokenBalance
	if err := r.db.WithContext(ctx).
		Where(entities.TokenBalance{UserID: userUUID}).
		Attrs(entities.TokenBalance{ID: uuid.New()}).
		FirstOrCreate(&balance).Error; err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *tokenRepository) GetBalance(ctx context.Context, userID string) (*entities.TokenBalance, error) {
	var balance entities.TokenBalance
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&balance).Error; err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *tokenRepository) UpdateBalanceCAS(ctx context.Context, snapshot *entities.TokenBalance, update BalanceUpdate) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entities.TokenBalance{}).
		Where("user_id = ? AND balance = ? AND free_scans_used = ? AND game_points = ? AND total_scans = ?",
			snapshot.UserID, snapshot.Balance, snapshot.FreeScansUsed, snapshot.GamePoints, snapshot.TotalScans).
		Updates(map[string]interface{}{
			"balance":         update.Balance,
			"free_scans_used": update.FreeScansUsed,
			"game_points":     update.GamePoints,
			"total_scans":     update.TotalScans,
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *tokenRepository) CreateTransaction(ctx context.Context, tx *entities.TokenTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *tokenRepository) GetTransactionByPaymentID(ctx context.Context, paymentID string) (*entities.TokenTransaction, error) {
	var tx entities.TokenTransaction
	if err := r.db.WithContext(ctx).
		Where("stripe_payment_id = ?", paymentID).
		First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

func (r *tokenRepository) GetUserTransactions(ctx context.Context, userID string, page, limit int) ([]*entities.TokenTransaction, int64, error) {
	var transactions []*entities.TokenTransaction
	var count int64
	offset := (page - 1) * limit

	if err := r.db.WithContext(ctx).
		Model(&entities.TokenTransaction{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&transactions).Error; err != nil {
		return nil, 0, err
	}

	return transactions, count, nil
}
