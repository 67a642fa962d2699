package models

import (
	"time"

	"github.com/google/uuid"
)

// EvidenceStatus ist der Moderationszustand eines Belegs.
type EvidenceStatus string

const (
	StatusPending  EvidenceStatus = "pending"
	StatusVerified EvidenceStatus = "verified"
	StatusDisputed EvidenceStatus = "disputed"
)

// Valid meldet, ob s ein bekannter Status ist.
func (s EvidenceStatus) Valid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusDisputed:
		return true
	}
	return false
}

// MediaType beschreibt die Art des Mediums.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaPDF   MediaType = "pdf"
	MediaLink  MediaType = "link"
)

func (t MediaType) Valid() bool {
	switch t {
	case MediaImage, MediaVideo, MediaPDF, MediaLink:
		return true
	}
	return false
}

// SourceType beschreibt die Herkunft eines Belegs.
type SourceType string

const (
	SourceNews             SourceType = "News"
	SourceGazette          SourceType = "Gazette"
	SourceSocialMedia      SourceType = "Social Media"
	SourceOfficialDocument SourceType = "Official Document"
	SourceOther            SourceType = "Other"
)

func (s SourceType) Valid() bool {
	switch s {
	case SourceNews, SourceGazette, SourceSocialMedia, SourceOfficialDocument, SourceOther:
		return true
	}
	return false
}

// Media ist die vereinheitlichte Medienstruktur eines Belegs.
// ExternalID und HostKind sind nur gesetzt, wenn das Medium selbst gehostet wird.
type Media struct {
	URL        string     `json:"url" gorm:"not null"`
	Type       MediaType  `json:"type" gorm:"not null"`
	SourceType SourceType `json:"source_type" gorm:"default:'Other'"`
	ExternalID string     `json:"-"`
	HostKind   string     `json:"-"`
}

// Evidence repräsentiert einen Beleg zu einem politischen Versprechen.
type Evidence struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PromiseID    uuid.UUID `json:"promise_id" gorm:"type:uuid;not null;index:idx_evidence_timeline,priority:1"`
	Title        string    `json:"title" gorm:"not null"`
	Description  string    `json:"description,omitempty" gorm:"type:text"`
	DateOccurred time.Time `json:"date_occurred" gorm:"not null;index:idx_evidence_timeline,priority:2"`

	Media Media `json:"media" gorm:"embedded;embeddedPrefix:media_"`

	// Vertrauenswert; wird nur von der Credibility-Engine verändert
	TrustScore int            `json:"trust_score" gorm:"not null;default:0"`
	Status     EvidenceStatus `json:"status" gorm:"index;not null;default:'pending'"`
	// Startwert bei der Erstellung, Basis für den Abgleich mit dem Stimmbuch
	BaseScore int `json:"-" gorm:"not null;default:0"`

	AddedBy uuid.UUID `json:"added_by" gorm:"type:uuid;not null;index"`
}

// TableName gibt explizit den Tabellennamen an.
func (Evidence) TableName() string {
	return "evidence"
}
