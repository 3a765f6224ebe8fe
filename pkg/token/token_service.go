package token

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nocap-app/nocap-backend/domain"
	"github.com/nocap-app/nocap-backend/entities"
)

// casRetries bounds how often a ledger write is retried after losing a
// compare-and-swap race against a concurrent request for the same user.
const casRetries = 3

type (
	// ScanCharge is the outcome of a successful ledger finalization for one scan.
	ScanCharge struct {
		NewBalance         int
		FreeScansUsed      int
		WasFreeScan        bool
		TokensUsed         int
		FreeScansRemaining int
	}

	TokenService interface {
		GetUserTokens(ctx context.Context, userID string) (*domain.UserTokens, error)
		GetPackages(ctx context.Context) []domain.TokenPackage
		GetTransactionHistory(ctx context.Context, userID string, page, limit int) ([]*domain.TokenTransaction, int64, error)

		// ChargeScan settles one completed scan against the ledger: a free
		// slot if one remains, otherwise a paid deduction. The read-check-write
		// runs as a conditional update so two concurrent scans cannot both
		// consume the last free slot or overdraw the balance.
		ChargeScan(ctx context.Context, userID, scanID, fileType string) (*ScanCharge, error)
	}

	tokenService struct {
		tokenRepository TokenRepository
	}
)

func NewTokenService(tokenRepository TokenRepository) TokenService {
	return &tokenService{tokenRepository: tokenRepository}
}

func (s *tokenService) GetUserTokens(ctx context.Context, userID string) (*domain.UserTokens, error) {
	balance, err := s.tokenRepository.GetOrCreateBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &domain.UserTokens{
		Balance:            balance.Balance,
		FreeScansUsed:      balance.FreeScansUsed,
		FreeScansRemaining: domain.FreeScansLimit - balance.FreeScansUsed,
		GamePoints:         balance.GamePoints,
		TotalScans:         balance.TotalScans,
	}, nil
}

func (s *tokenService) GetPackages(ctx context.Context) []domain.TokenPackage {
	packages := make([]domain.TokenPackage, 0, len(domain.TokenPackages))
	for _, pkg := range domain.TokenPackages {
		packages = append(packages, pkg)
	}
	sort.Slice(packages, func(i, j int) bool {
		return packages[i].Tokens < packages[j].Tokens
	})
	return packages
}

func (s *tokenService) GetTransactionHistory(ctx context.Context, userID string, page, limit int) ([]*domain.TokenTransaction, int64, error) {
	transactions, count, err := s.tokenRepository.GetUserTransactions(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	result := make([]*domain.TokenTransaction, 0, len(transactions))
	for _, tx := range transactions {
		item := &domain.TokenTransaction{
			ID:           tx.ID.String(),
			UserID:       tx.UserID.String(),
			Type:         tx.Type,
			Amount:       tx.Amount,
			BalanceAfter: tx.BalanceAfter,
			Description:  tx.Description,
			CreatedAt:    tx.CreatedAt,
		}
		if tx.ScanID != nil {
			item.ScanID = tx.ScanID.String()
		}
		result = append(result, item)
	}

	return result, count, nil
}

func (s *tokenService) ChargeScan(ctx context.Context, userID, scanID, fileType string) (*ScanCharge, error) {
	scanUUID, err := uuid.Parse(scanID)
	if err != nil {
		return nil, domain.ErrParseUUID
	}

	for attempt := 0; attempt < casRetries; attempt++ {
		balance, err := s.tokenRepository.GetOrCreateBalance(ctx, userID)
		if err != nil {
			return nil, err
		}

		hasFree := balance.FreeScansUsed < domain.FreeScansLimit
		hasTokens := balance.Balance >= domain.TokensPerScan
		if !hasFree && !hasTokens {
			return nil, &domain.InsufficientTokensError{
				CurrentBalance: balance.Balance,
				Required:       domain.TokensPerScan,
			}
		}

		update := BalanceUpdate{
			Balance:       balance.Balance,
			FreeScansUsed: balance.FreeScansUsed,
			GamePoints:    balance.GamePoints,
			TotalScans:    balance.TotalScans + 1,
		}
		if hasFree {
			update.FreeScansUsed = balance.FreeScansUsed + 1
		} else {
			update.Balance = balance.Balance - domain.TokensPerScan
		}

		applied, err := s.tokenRepository.UpdateBalanceCAS(ctx, balance, update)
		if err != nil {
			return nil, err
		}
		if !applied {
			continue
		}

		if !hasFree {
			transaction := &entities.TokenTransaction{
				ID:           uuid.New(),
				UserID:       balance.UserID,
				Type:         domain.TransactionDeduction,
				Amount:       -domain.TokensPerScan,
				BalanceAfter: update.Balance,
				Description:  fmt.Sprintf("Content scan: %s", fileType),
				ScanID:       &scanUUID,
				Timestamp: entities.Timestamp{
					CreatedAt: time.Now(),
					UpdatedAt: time.Now(),
				},
			}
			if err := s.tokenRepository.CreateTransaction(ctx, transaction); err != nil {
				return nil, err
			}
		}

		tokensUsed := domain.TokensPerScan
		if hasFree {
			tokensUsed = 0
		}

		return &ScanCharge{
			NewBalance:         update.Balance,
			FreeScansUsed:      update.FreeScansUsed,
			WasFreeScan:        hasFree,
			TokensUsed:         tokensUsed,
			FreeScansRemaining: domain.FreeScansLimit - update.FreeScansUsed,
		}, nil
	}

	return nil, domain.ErrBalanceConflict
}
