package handlers

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/nocap-app/nocap-backend/domain"
	"github.com/nocap-app/nocap-backend/internal/api/presenters"
	"github.com/nocap-app/nocap-backend/pkg/scan"
)

type (
	ScanHandler interface {
		UploadScan(c *fiber.Ctx) error
		AnalyzeScan(c *fiber.Ctx) error
		GetScan(c *fiber.Ctx) error
		GetScans(c *fiber.Ctx) error
		DeleteScan(c *fiber.Ctx) error
	}

	scanHandler struct {
		scanService scan.ScanService
		validator   *validator.Validate
	}
)

func NewScanHandler(scanService scan.ScanService, validator *validator.Validate) ScanHandler {
	return &scanHandler{
		scanService: scanService,
		validator:   validator,
	}
}

func (h *scanHandler) UploadScan(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	file, err := c.FormFile("file")
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	req := domain.UploadScanRequest{File: file}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUploadScan, err)
	}

	resp, err := h.scanService.UploadScan(c.Context(), req, userID)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUploadScan, err)
	}

	return presenters.SuccessResponse(c, resp, fiber.StatusCreated, domain.MessageSuccessUploadScan)
}

// AnalyzeScan returns the mobile client's wire shape directly rather than the
// standard envelope. The 402 body carries the balance snapshot the client
// renders in its purchase prompt.
func (h *scanHandler) AnalyzeScan(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	req := new(domain.AnalyzeScanRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedAnalyzeScan, err)
	}

	resp, err := h.scanService.AnalyzeScan(c.Context(), *req, userID)
	if err != nil {
		var insufficient *domain.InsufficientTokensError
		switch {
		case errors.As(err, &insufficient):
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
				"error":          "Insufficient tokens",
				"code":           "INSUFFICIENT_TOKENS",
				"currentBalance": insufficient.CurrentBalance,
				"required":       insufficient.Required,
			})
		case errors.Is(err, domain.ErrScanNotFound):
			return presenters.ErrorResponse(c, fiber.StatusNotFound, domain.MessageFailedAnalyzeScan, err)
		case errors.Is(err, domain.ErrUnauthorizedAccess):
			return presenters.ErrorResponse(c, fiber.StatusForbidden, domain.MessageFailedAnalyzeScan, err)
		default:
			return presenters.ErrorResponse(c, fiber.StatusInternalServerError, domain.MessageFailedAnalyzeScan, err)
		}
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *scanHandler) GetScan(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	scanID := c.Params("id")

	resp, err := h.scanService.GetScan(c.Context(), scanID, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrScanNotFound):
			return presenters.ErrorResponse(c, fiber.StatusNotFound, domain.MessageFailedGetScans, err)
		case errors.Is(err, domain.ErrUnauthorizedAccess):
			return presenters.ErrorResponse(c, fiber.StatusForbidden, domain.MessageFailedGetScans, err)
		default:
			return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetScans, err)
		}
	}

	return presenters.SuccessResponse(c, resp, fiber.StatusOK, domain.MessageSuccessGetScans)
}

func (h *scanHandler) GetScans(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}

	scans, count, err := h.scanService.GetScans(c.Context(), userID, page, limit)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetScans, err)
	}

	return presenters.SuccessResponse(c, fiber.Map{
		"scans": scans,
		"pagination": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total":       count,
			"total_pages": (count + int64(limit) - 1) / int64(limit),
		},
	}, fiber.StatusOK, domain.MessageSuccessGetScans)
}

func (h *scanHandler) DeleteScan(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	scanID := c.Params("id")

	if err := h.scanService.DeleteScan(c.Context(), scanID, userID); err != nil {
		switch {
		case errors.Is(err, domain.ErrScanNotFound):
			return presenters.ErrorResponse(c, fiber.StatusNotFound, domain.MessageFailedDeleteScan, err)
		case errors.Is(err, domain.ErrUnauthorizedAccess):
			return presenters.ErrorResponse(c, fiber.StatusForbidden, domain.MessageFailedDeleteScan, err)
		default:
			return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedDeleteScan, err)
		}
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessDeleteScan)
}
