package entities

import (
	"github.com/google/uuid"
)

// TokenBalance is the per-user ledger row. It is the only record mutated by
// concurrent requests, so every update must go through the conditional
// compare-and-swap path in the token repository.
type TokenBalance struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"user_id"`
	Balance       int       `json:"balance"`
	FreeScansUsed int       `json:"free_scans_used"`
	GamePoints    int       `json:"game_points"`
	TotalScans    int       `json:"total_scans"`

	User *User `gorm:"foreignKey:UserID"`
	Timestamp
}

// TokenTransaction is append-only. StripePaymentID carries a unique index so
// a re-delivered payment webhook can never credit twice.
type TokenTransaction struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	Type            string     `json:"type"` // "deduction", "purchase"
	Amount          int        `json:"amount"`
	BalanceAfter    int        `json:"balance_after"`
	Description     string     `json:"description"`
	ScanID          *uuid.UUID `gorm:"type:uuid" json:"scan_id,omitempty"`
	StripePaymentID *string    `gorm:"uniqueIndex" json:"stripe_payment_id,omitempty"`

	User *User `gorm:"foreignKey:UserID"`
	Timestamp
}
