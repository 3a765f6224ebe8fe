package domain

import (
	"errors"
	"time"
)

var (
	MessageSuccessGetUserTokens   = "user tokens retrieved successfully"
	MessageSuccessGetPackages     = "token packages retrieved successfully"
	MessageSuccessGetTokenHistory = "token transaction history retrieved successfully"
	MessageSuccessCreateCheckout  = "checkout session created successfully"

	MessageFailedGetUserTokens   = "failed to retrieve user tokens"
	MessageFailedGetPackages     = "failed to retrieve token packages"
	MessageFailedGetTokenHistory = "failed to retrieve token transaction history"
	MessageFailedCreateCheckout  = "failed to create checkout session"

	ErrInvalidPackage    = errors.New("invalid package type")
	ErrCheckoutFailed    = errors.New("failed to create checkout session")
	ErrInvalidSignature  = errors.New("invalid webhook signature")
	ErrMalformedWebhook  = errors.New("missing user or token metadata in webhook")
	ErrBalanceConflict   = errors.New("balance update conflict")
	ErrInsufficientFunds = errors.New("insufficient tokens")
)

const (
	// Spend policy
	TokensPerScan  = 100
	FreeScansLimit = 3

	// Game reward
	PointsPerFreeScan = 10

	// Transaction types
	TransactionDeduction = "deduction"
	TransactionPurchase  = "purchase"
)

// TokenPackage describes a purchasable bundle. Price is in minor currency
// units (USD cents) because that is what the payment gateway expects.
type TokenPackage struct {
	Type   string `json:"type"`
	Name   string `json:"name"`
	Tokens int    `json:"tokens"`
	Price  int64  `json:"price"`
}

// TokenPackages is the fixed catalog. The webhook never trusts a
// client-supplied amount; only the metadata set at checkout time from this
// table is authoritative.
var TokenPackages = map[string]TokenPackage{
	"small":  {Type: "small", Name: "500 Tokens", Tokens: 500, Price: 99},
	"medium": {Type: "medium", Name: "3,000 Tokens", Tokens: 3000, Price: 499},
	"large":  {Type: "large", Name: "7,000 Tokens", Tokens: 7000, Price: 1000},
}

type (
	UserTokens struct {
		Balance            int `json:"balance"`
		FreeScansUsed      int `json:"free_scans_used"`
		FreeScansRemaining int `json:"free_scans_remaining"`
		GamePoints         int `json:"game_points"`
		TotalScans         int `json:"total_scans"`
	}

	TokenTransaction struct {
		ID           string    `json:"id"`
		UserID       string    `json:"user_id"`
		Type         string    `json:"type"`
		Amount       int       `json:"amount"`
		BalanceAfter int       `json:"balance_after"`
		Description  string    `json:"description"`
		ScanID       string    `json:"scan_id,omitempty"`
		CreatedAt    time.Time `json:"created_at"`
	}

	CreateCheckoutRequest struct {
		PackageType string `json:"packageType" validate:"required,oneof=small medium large"`
	}

	CreateCheckoutResponse struct {
		URL       string `json:"url"`
		SessionID string `json:"sessionId"`
	}
)
