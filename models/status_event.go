package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Ursachen einer Statusänderung
const (
	ReasonVote     = "vote"
	ReasonOverride = "override"
)

// StatusEvent protokolliert jede Statusänderung eines Belegs.
type StatusEvent struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	CreatedAt  time.Time      `json:"created_at"`
	EvidenceID uuid.UUID      `json:"evidence_id" gorm:"type:uuid;not null;index"`
	From       EvidenceStatus `json:"from" gorm:"column:from_status"`
	To         EvidenceStatus `json:"to" gorm:"column:to_status"`
	Reason     string         `json:"reason"`
	// Momentaufnahme (trust_score, vote_type, flag_count) als JSON
	Detail datatypes.JSON `json:"detail" gorm:"type:jsonb"`
}

func (StatusEvent) TableName() string { return "status_events" }
