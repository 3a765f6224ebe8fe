package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/nocap-app/nocap-backend/domain"
	"github.com/nocap-app/nocap-backend/internal/api/presenters"
	"github.com/nocap-app/nocap-backend/pkg/media"
)

type (
	MediaHandler interface {
		ExtractMedia(c *fiber.Ctx) error
	}

	mediaHandler struct {
		extractService media.ExtractService
		validator      *validator.Validate
	}
)

func NewMediaHandler(extractService media.ExtractService, validator *validator.Validate) MediaHandler {
	return &mediaHandler{
		extractService: extractService,
		validator:      validator,
	}
}

// ExtractMedia resolves a social post URL to a direct media URL. The client
// consumes the flat {mediaUrl} shape.
func (h *mediaHandler) ExtractMedia(c *fiber.Ctx) error {
	req := new(domain.ExtractMediaRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedExtractMedia, err)
	}

	mediaURL, err := h.extractService.ExtractMediaURL(c.Context(), req.URL)
	if err != nil {
		var extractErr *domain.MediaExtractionError
		if errors.As(err, &extractErr) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": extractErr.Reason,
			})
		}
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedExtractMedia, err)
	}

	return c.Status(fiber.StatusOK).JSON(domain.ExtractMediaResponse{MediaURL: mediaURL})
}
