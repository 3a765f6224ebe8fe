package entities

import (
	"github.com/google/uuid"
)

type GameMedia struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	URL      string    `json:"url"`
	Type     string    `json:"type"` // "image", "video"
	IsAI     bool      `json:"is_ai"`
	IsActive bool      `json:"is_active"`

	Timestamp
}
