package services

import (
	"encoding/json"

	"gorm.io/datatypes"

	"promise-tracker/models"
)

// Schwellwerte der Statusableitung.
const (
	// pending -> verified ab diesem Wert
	VerifyThreshold = 10
	// disputed -> verified ab diesem Wert
	RecoveryThreshold = 5
	// Ab diesem Wert (oder bei einem Flag) wird die Flag-Anzahl geprüft
	DisputeScoreThreshold = -10
	// Mindestanzahl Flags für disputed
	DisputeFlagQuorum = 5

	TrustedInitialScore = 100
	OfficialSourceBonus = 5
)

// ScoreDelta liefert die Änderung des Vertrauenswerts für eine Stimme.
func ScoreDelta(t models.VoteType) int {
	switch t {
	case models.VoteUp:
		return 1
	case models.VoteDown:
		return -1
	case models.VoteFlag:
		return -2
	}
	return 0
}

// InitialTrust bestimmt Startwert und Status eines neuen Belegs.
func InitialTrust(role models.Role, source models.SourceType) (int, models.EvidenceStatus) {
	if role.Trusted() {
		return TrustedInitialScore, models.StatusVerified
	}
	score := 0
	if source == models.SourceGazette || source == models.SourceOfficialDocument {
		score += OfficialSourceBonus
	}
	return score, models.StatusPending
}

// DeriveStatus wertet die Übergänge gegen den bereits aktualisierten Wert aus.
// flagCount schließt die aktuelle Stimme ein.
func DeriveStatus(current models.EvidenceStatus, score int, vote models.VoteType, flagCount int64) models.EvidenceStatus {
	switch {
	case current == models.StatusPending && score >= VerifyThreshold:
		return models.StatusVerified
	case current == models.StatusDisputed && score >= RecoveryThreshold:
		return models.StatusVerified
	case (score <= DisputeScoreThreshold || vote == models.VoteFlag) && flagCount >= DisputeFlagQuorum:
		return models.StatusDisputed
	}
	return current
}

// Tally wendet eine angenommene Stimme auf ev an und liefert ein StatusEvent,
// falls sich der Status geändert hat.
func Tally(ev *models.Evidence, vote *models.Vote, flagCount int64) *models.StatusEvent {
	ev.TrustScore += ScoreDelta(vote.VoteType)
	prev := ev.Status
	ev.Status = DeriveStatus(prev, ev.TrustScore, vote.VoteType, flagCount)
	if ev.Status == prev {
		return nil
	}
	return &models.StatusEvent{
		EvidenceID: ev.ID,
		From:       prev,
		To:         ev.Status,
		Reason:     models.ReasonVote,
		Detail: jsonDetail(map[string]any{
			"trust_score": ev.TrustScore,
			"vote_type":   vote.VoteType,
			"flag_count":  flagCount,
		}),
	}
}

// ExpectedScore berechnet den Vertrauenswert aus Startwert und Stimmbuch.
func ExpectedScore(base int, counts map[models.VoteType]int64) int {
	score := base
	for t, n := range counts {
		score += ScoreDelta(t) * int(n)
	}
	return score
}

func jsonDetail(v map[string]any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
