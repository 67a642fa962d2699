package storage

import (
	"errors"

	"github.com/google/uuid"

	"promise-tracker/models"
)

var (
	// ErrNotFound wird geliefert, wenn ein Datensatz nicht existiert.
	ErrNotFound = errors.New("storage: record not found")
	// ErrDuplicate wird geliefert, wenn ein Unique-Constraint verletzt wurde.
	ErrDuplicate = errors.New("storage: duplicate key")
)

// TallyFunc wendet eine angenommene Stimme auf den gesperrten Beleg an.
// flagCount enthält bereits die gerade eingefügte Stimme.
// Der Rückgabewert ist ein zu protokollierendes StatusEvent oder nil.
type TallyFunc func(ev *models.Evidence, vote *models.Vote, flagCount int64) *models.StatusEvent

// RecountFunc vergleicht den gespeicherten Wert mit der Stimmenzählung.
// Gibt sie true zurück, wird ev.TrustScore gespeichert.
type RecountFunc func(ev *models.Evidence, counts map[models.VoteType]int64) bool

// EvidenceQuery filtert Belege. Nullwerte bedeuten "kein Filter".
type EvidenceQuery struct {
	PromiseID      uuid.UUID
	AddedBy        uuid.UUID
	ExcludePending bool
	MediaTypes     []models.MediaType
	NewestFirst    bool
	Limit          int
}
