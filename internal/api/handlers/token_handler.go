package handlers

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/nocap-app/nocap-backend/domain"
	"github.com/nocap-app/nocap-backend/internal/api/presenters"
	"github.com/nocap-app/nocap-backend/pkg/payment"
	"github.com/nocap-app/nocap-backend/pkg/token"
)

type (
	TokenHandler interface {
		GetUserTokens(c *fiber.Ctx) error
		GetPackages(c *fiber.Ctx) error
		GetTransactionHistory(c *fiber.Ctx) error
		CreateCheckout(c *fiber.Ctx) error
	}

	tokenHandler struct {
		tokenService   token.TokenService
		paymentService payment.PaymentService
		validator      *validator.Validate
	}
)

func NewTokenHandler(tokenService token.TokenService, paymentService payment.PaymentService, validator *validator.Validate) TokenHandler {
	return &tokenHandler{
		tokenService:   tokenService,
		paymentService: paymentService,
		validator:      validator,
	}
}

func (h *tokenHandler) GetUserTokens(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	tokens, err := h.tokenService.GetUserTokens(c.Context(), userID)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetUserTokens, err)
	}

	return presenters.SuccessResponse(c, tokens, fiber.StatusOK, domain.MessageSuccessGetUserTokens)
}

func (h *tokenHandler) GetPackages(c *fiber.Ctx) error {
	packages := h.tokenService.GetPackages(c.Context())
	return presenters.SuccessResponse(c, packages, fiber.StatusOK, domain.MessageSuccessGetPackages)
}

func (h *tokenHandler) GetTransactionHistory(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}

	transactions, count, err := h.tokenService.GetTransactionHistory(c.Context(), userID, page, limit)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetTokenHistory, err)
	}

	return presenters.SuccessResponse(c, fiber.Map{
		"transactions": transactions,
		"pagination": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total":       count,
			"total_pages": (count + int64(limit) - 1) / int64(limit),
		},
	}, fiber.StatusOK, domain.MessageSuccessGetTokenHistory)
}

func (h *tokenHandler) CreateCheckout(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	req := new(domain.CreateCheckoutRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCreateCheckout, err)
	}

	resp, err := h.paymentService.CreateCheckout(c.Context(), *req, userID)
	if err != nil {
		if err == domain.ErrInvalidPackage {
			return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCreateCheckout, err)
		}
		return presenters.ErrorResponse(c, fiber.StatusInternalServerError, domain.MessageFailedCreateCheckout, err)
	}

	return presenters.SuccessResponse(c, resp, fiber.StatusOK, domain.MessageSuccessCreateCheckout)
}
