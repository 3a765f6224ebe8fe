package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nocap-app/nocap-backend/domain"
	"github.com/nocap-app/nocap-backend/entities"
	"github.com/nocap-app/nocap-backend/internal/utils/storage"
	"github.com/nocap-app/nocap-backend/pkg/token"
)

const analysisVersion = "2.0-mock"

type (
	ScanService interface {
		UploadScan(ctx context.Context, req domain.UploadScanRequest, userID string) (*domain.UploadScanResponse, error)
		AnalyzeScan(ctx context.Context, req domain.AnalyzeScanRequest, userID string) (*domain.AnalyzeScanResponse, error)
		GetScan(ctx context.Context, id string, userID string) (*domain.ScanResponse, error)
		GetScans(ctx context.Context, userID string, page, limit int) ([]domain.ScanResponse, int64, error)
		DeleteScan(ctx context.Context, id string, userID string) error
	}

	scanService struct {
		scanRepository ScanRepository
		tokenService   token.TokenService
		s3             storage.AwsS3
		detector       Detector
	}
)

func NewScanService(scanRepository ScanRepository, tokenService token.TokenService, s3 storage.AwsS3, detector Detector) ScanService {
	return &scanService{
		scanRepository: scanRepository,
		tokenService:   tokenService,
		s3:             s3,
		detector:       detector,
	}
}

func fileTypeOf(contentType string) (string, error) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return domain.FileTypeImage, nil
	case strings.HasPrefix(contentType, "video/"):
		return domain.FileTypeVideo, nil
	default:
		return "", domain.ErrInvalidMediaType
	}
}

func (s *scanService) UploadScan(ctx context.Context, req domain.UploadScanRequest, userID string) (*domain.UploadScanResponse, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, domain.ErrParseUUID
	}

	fileType, err := fileTypeOf(req.File.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	scanID := uuid.New()
	objectKey, err := s.s3.UploadFile(scanID.String(), req.File, fmt.Sprintf("scans/%s", userID), storage.AllowMedia...)
	if err != nil {
		if errors.Is(err, storage.ErrFileTooLarge) {
			return nil, domain.ErrMediaTooLarge
		}
		if errors.Is(err, storage.ErrContentTypeNotAllowed) {
			return nil, domain.ErrInvalidMediaType
		}
		return nil, err
	}

	fileURL := s.s3.GetPublicLinkKey(objectKey)

	scan := &entities.Scan{
		ID:       scanID,
		UserID:   userUUID,
		FileName: req.File.Filename,
		FileType: fileType,
		FileURL:  fileURL,
		FileSize: req.File.Size,
		Status:   domain.ScanStatusPending,
		Timestamp: entities.Timestamp{
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
	}

	if err := s.scanRepository.CreateScan(ctx, scan); err != nil {
		// The blob is orphaned if the record cannot be written; remove it.
		if delErr := s.s3.DeleteFile(objectKey); delErr != nil {
			log.Printf("failed to clean up blob %s after scan create error: %v", objectKey, delErr)
		}
		return nil, err
	}

	return &domain.UploadScanResponse{
		ScanID:   scan.ID.String(),
		FileURL:  fileURL,
		FileType: fileType,
	}, nil
}

// AnalyzeScan drives one scan through its lifecycle exactly once:
// eligibility check, processing, detection, ledger settlement, finalization.
// The ledger is only touched after detection succeeds, so a failed scan is
// never charged.
func (s *scanService) AnalyzeScan(ctx context.Context, req domain.AnalyzeScanRequest, userID string) (*domain.AnalyzeScanResponse, error) {
	scan, err := s.scanRepository.GetScanByID(ctx, req.ScanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrScanNotFound
		}
		return nil, err
	}

	if scan.UserID.String() != userID {
		return nil, domain.ErrUnauthorizedAccess
	}

	tokens, err := s.tokenService.GetUserTokens(ctx, userID)
	if err != nil {
		return nil, err
	}

	hasFree := tokens.FreeScansUsed < domain.FreeScansLimit
	hasTokens := tokens.Balance >= domain.TokensPerScan
	if !hasFree && !hasTokens {
		// Compensating cleanup: the pending record and the uploaded blob must
		// not survive a rejected attempt.
		s.cleanupScan(ctx, scan)
		return nil, &domain.InsufficientTokensError{
			CurrentBalance: tokens.Balance,
			Required:       domain.TokensPerScan,
		}
	}

	if err := s.scanRepository.UpdateScanStatus(ctx, scan.ID.String(), domain.ScanStatusProcessing); err != nil {
		return nil, err
	}

	analysis, err := s.detector.Detect(ctx, scan.FileURL, scan.FileType)
	if err != nil {
		s.markFailed(ctx, scan.ID.String(), err)
		return nil, domain.ErrAnalysisFailed
	}

	charge, err := s.tokenService.ChargeScan(ctx, userID, scan.ID.String(), scan.FileType)
	if err != nil {
		var insufficient *domain.InsufficientTokensError
		if errors.As(err, &insufficient) {
			// Balance was drained between the eligibility check and the
			// settlement; treat it exactly like the up-front rejection.
			s.cleanupScan(ctx, scan)
			return nil, err
		}
		s.markFailed(ctx, scan.ID.String(), err)
		return nil, err
	}

	artifactsJSON, err := json.Marshal(analysis.Artifacts)
	if err != nil {
		s.markFailed(ctx, scan.ID.String(), err)
		return nil, err
	}

	metadata := domain.ScanMetadata{
		AnalyzedAt:         time.Now(),
		FileType:           scan.FileType,
		AnalysisVersion:    analysisVersion,
		TokensUsed:         charge.TokensUsed,
		WasFreeScan:        charge.WasFreeScan,
		FreeScansRemaining: charge.FreeScansRemaining,
		DetectionMethod:    "mock_testing",
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		s.markFailed(ctx, scan.ID.String(), err)
		return nil, err
	}

	if err := s.scanRepository.CompleteScan(
		ctx,
		scan.ID.String(),
		analysis.ConfidenceScore,
		analysis.IsAiGenerated,
		string(artifactsJSON),
		string(metadataJSON),
	); err != nil {
		// Charge already committed; the deduction transaction references the
		// scan id so the window is reconcilable.
		s.markFailed(ctx, scan.ID.String(), err)
		return nil, err
	}

	return &domain.AnalyzeScanResponse{
		Success:            true,
		ScanID:             scan.ID.String(),
		TokensRemaining:    charge.NewBalance,
		WasFreeScans:       charge.WasFreeScan,
		FreeScansRemaining: charge.FreeScansRemaining,
	}, nil
}

func (s *scanService) cleanupScan(ctx context.Context, scan *entities.Scan) {
	if err := s.scanRepository.DeleteScan(ctx, scan.ID.String()); err != nil {
		log.Printf("failed to delete scan %s during cleanup: %v", scan.ID, err)
	}
	if objectKey := s.s3.GetObjectKeyFromLink(scan.FileURL); objectKey != "" {
		if err := s.s3.DeleteFile(objectKey); err != nil {
			log.Printf("failed to delete blob %s during cleanup: %v", objectKey, err)
		}
	}
}

// markFailed is best effort: the poll loop needs a terminal status, but a
// secondary write failure must not mask the original error.
func (s *scanService) markFailed(ctx context.Context, scanID string, cause error) {
	if err := s.scanRepository.FailScan(ctx, scanID, cause.Error()); err != nil {
		log.Printf("failed to mark scan %s as failed: %v", scanID, err)
	}
}

func toScanResponse(scan *entities.Scan) domain.ScanResponse {
	resp := domain.ScanResponse{
		ID:              scan.ID.String(),
		FileName:        scan.FileName,
		FileType:        scan.FileType,
		FileURL:         scan.FileURL,
		FileSize:        scan.FileSize,
		Status:          scan.Status,
		ConfidenceScore: scan.ConfidenceScore,
		IsAiGenerated:   scan.IsAiGenerated,
		ErrorMessage:    scan.ErrorMessage,
		CreatedAt:       scan.CreatedAt,
	}
	if scan.Artifacts != "" {
		if err := json.Unmarshal([]byte(scan.Artifacts), &resp.Artifacts); err != nil {
			log.Printf("failed to unmarshal artifacts for scan %s: %v", scan.ID, err)
		}
	}
	return resp
}

func (s *scanService) GetScan(ctx context.Context, id string, userID string) (*domain.ScanResponse, error) {
	scan, err := s.scanRepository.GetScanByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrScanNotFound
		}
		return nil, err
	}

	if scan.UserID.String() != userID {
		return nil, domain.ErrUnauthorizedAccess
	}

	resp := toScanResponse(scan)
	return &resp, nil
}

func (s *scanService) GetScans(ctx context.Context, userID string, page, limit int) ([]domain.ScanResponse, int64, error) {
	scans, count, err := s.scanRepository.GetUserScans(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	response := make([]domain.ScanResponse, 0, len(scans))
	for _, scan := range scans {
		response = append(response, toScanResponse(scan))
	}

	return response, count, nil
}

func (s *scanService) DeleteScan(ctx context.Context, id string, userID string) error {
	scan, err := s.scanRepository.GetScanByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrScanNotFound
		}
		return err
	}

	if scan.UserID.String() != userID {
		return domain.ErrUnauthorizedAccess
	}

	if objectKey := s.s3.GetObjectKeyFromLink(scan.FileURL); objectKey != "" {
		_ = s.s3.DeleteFile(objectKey)
	}

	return s.scanRepository.DeleteScan(ctx, id)
}
