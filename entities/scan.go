package entities

import (
	"github.com/google/uuid"
)

type Scan struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID          uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	FileName        string    `json:"file_name"`
	FileType        string    `json:"file_type"` // "image", "video"
	FileURL         string    `json:"file_url"`
	FileSize        int64     `json:"file_size"`
	Status          string    `json:"status"` // "pending", "processing", "completed", "failed"
	ConfidenceScore *float64  `json:"confidence_score,omitempty"`
	IsAiGenerated   *bool     `json:"is_ai_generated,omitempty"`
	Artifacts       string    `gorm:"type:text" json:"artifacts,omitempty"`
	Metadata        string    `gorm:"type:text" json:"metadata,omitempty"`
	ErrorMessage    *string   `json:"error_message,omitempty"`

	User *User `gorm:"foreignKey:UserID"`
	Timestamp
}
