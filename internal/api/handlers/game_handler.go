package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/nocap-app/nocap-backend/domain"
	"github.com/nocap-app/nocap-backend/internal/api/presenters"
	"github.com/nocap-app/nocap-backend/pkg/game"
)

type (
	GameHandler interface {
		SubmitGuess(c *fiber.Ctx) error
		GetGameMedia(c *fiber.Ctx) error
	}

	gameHandler struct {
		gameService game.GameService
		validator   *validator.Validate
	}
)

func NewGameHandler(gameService game.GameService, validator *validator.Validate) GameHandler {
	return &gameHandler{
		gameService: gameService,
		validator:   validator,
	}
}

func (h *gameHandler) SubmitGuess(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	req := new(domain.SubmitGuessRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	resp, err := h.gameService.SubmitGuess(c.Context(), *req, userID)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedSubmitGuess, err)
	}

	return presenters.SuccessResponse(c, resp, fiber.StatusOK, domain.MessageSuccessSubmitGuess)
}

func (h *gameHandler) GetGameMedia(c *fiber.Ctx) error {
	media, err := h.gameService.GetGameMedia(c.Context())
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetGameMedia, err)
	}

	return presenters.SuccessResponse(c, media, fiber.StatusOK, domain.MessageSuccessGetGameMedia)
}
