package models

import (
	"time"

	"github.com/google/uuid"
)

// Promise ist ein politisches Versprechen. Hier nur so weit modelliert,
// wie es für die Existenzprüfung bei neuen Belegen nötig ist.
type Promise struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	Title     string    `json:"title" gorm:"not null"`
	Slug      string    `json:"slug" gorm:"index"`
}

func (Promise) TableName() string { return "promises" }
