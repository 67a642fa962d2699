package models

import (
	"time"

	"github.com/google/uuid"
)

// VoteType ist die Art einer Verifikationsstimme.
type VoteType string

const (
	VoteUp   VoteType = "upvote"
	VoteDown VoteType = "downvote"
	VoteFlag VoteType = "flag"
)

func (t VoteType) Valid() bool {
	switch t {
	case VoteUp, VoteDown, VoteFlag:
		return true
	}
	return false
}

// Vote ist die einzige, unveränderliche Stimme eines Nutzers zu einem Beleg.
// Der zusammengesetzte Unique-Index verhindert doppelte Stimmen auf Datenbankebene.
type Vote struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
	EvidenceID uuid.UUID `json:"evidence_id" gorm:"type:uuid;not null;index:idx_votes_evidence_voter,unique,priority:1"`
	VoterID    uuid.UUID `json:"voter_id" gorm:"type:uuid;not null;index:idx_votes_evidence_voter,unique,priority:2"`
	VoteType   VoteType  `json:"vote_type" gorm:"not null;index"`
	Comment    string    `json:"comment,omitempty" gorm:"type:text"`
}

func (Vote) TableName() string { return "votes" }
