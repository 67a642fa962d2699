package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"promise-tracker/metrics"
	"promise-tracker/models"
	"promise-tracker/storage"
)

// Store ist die Persistenz der Credibility-Engine.
type Store interface {
	CreateEvidence(ctx context.Context, ev *models.Evidence) error
	FindEvidence(ctx context.Context, id uuid.UUID) (*models.Evidence, error)
	ListEvidence(ctx context.Context, q storage.EvidenceQuery) ([]models.Evidence, error)
	CastVote(ctx context.Context, vote *models.Vote, apply storage.TallyFunc) (*models.Evidence, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.EvidenceStatus, event *models.StatusEvent) (*models.Evidence, error)
	ListVotes(ctx context.Context, evidenceID uuid.UUID) ([]models.Vote, error)
	StatusHistory(ctx context.Context, evidenceID uuid.UUID) ([]models.StatusEvent, error)
	DeleteEvidence(ctx context.Context, id uuid.UUID) error
	EvidenceIDs(ctx context.Context) ([]uuid.UUID, error)
	Recount(ctx context.Context, id uuid.UUID, fix storage.RecountFunc) (*models.Evidence, error)
	CountByStatus(ctx context.Context) (map[models.EvidenceStatus]int64, error)
}

// Directory löst Identitäten und Versprechen auf.
type Directory interface {
	FindUser(ctx context.Context, userID string) (*models.User, error)
	PromiseExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Actor ist der authentifizierte Aufrufer. UserID ist die externe Kennung
// aus dem Gateway, Role die dort bestätigte Rolle.
type Actor struct {
	UserID string
	Role   models.Role
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// EvidenceInput sind die textuellen Felder eines neuen Belegs.
type EvidenceInput struct {
	PromiseID    uuid.UUID
	Title        string
	Description  string
	DateOccurred time.Time
}

type EvidenceService struct {
	Store     Store
	Directory Directory
	Media     MediaHost
	Cache     *CacheService
	Logger    *zap.Logger
}

// NewEvidenceService erstellt die Engine. media und cache dürfen nil sein.
func NewEvidenceService(store Store, dir Directory, media MediaHost, cache *CacheService, logger *zap.Logger) *EvidenceService {
	return &EvidenceService{
		Store:     store,
		Directory: dir,
		Media:     media,
		Cache:     cache,
		Logger:    logger,
	}
}

func (s *EvidenceService) resolveUser(ctx context.Context, userID string, notFound error) (*models.User, error) {
	if userID == "" {
		return nil, notFound
	}
	u, err := s.Directory.FindUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notFound
	}
	return u, err
}

// StoredRole liefert die im Nutzerverzeichnis hinterlegte Rolle.
func (s *EvidenceService) StoredRole(ctx context.Context, userID string) (models.Role, error) {
	u, err := s.resolveUser(ctx, userID, ErrUserNotFound)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

func (s *EvidenceService) findEvidence(ctx context.Context, id uuid.UUID) (*models.Evidence, error) {
	ev, err := s.Store.FindEvidence(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrEvidenceNotFound
	}
	return ev, err
}

// SubmitVote nimmt eine Verifikationsstimme an und leitet Wert und Status neu ab.
// Einfügen der Stimme und Aktualisierung des Belegs passieren in einer Transaktion.
func (s *EvidenceService) SubmitVote(ctx context.Context, evidenceID uuid.UUID, voterID string, voteType models.VoteType, comment string) (*models.Evidence, error) {
	if !voteType.Valid() {
		metrics.VoteRejections.WithLabelValues("invalid_type").Inc()
		return nil, ErrInvalidVoteType
	}
	if _, err := s.findEvidence(ctx, evidenceID); err != nil {
		return nil, err
	}
	voter, err := s.resolveUser(ctx, voterID, ErrVoterNotFound)
	if err != nil {
		return nil, err
	}

	vote := &models.Vote{
		EvidenceID: evidenceID,
		VoterID:    voter.ID,
		VoteType:   voteType,
		Comment:    cleanText(comment),
	}
	var event *models.StatusEvent
	ev, err := s.Store.CastVote(ctx, vote, func(ev *models.Evidence, v *models.Vote, flags int64) *models.StatusEvent {
		event = Tally(ev, v, flags)
		return event
	})
	switch {
	case errors.Is(err, storage.ErrDuplicate):
		metrics.VoteRejections.WithLabelValues("duplicate").Inc()
		return nil, ErrDuplicateVote
	case errors.Is(err, storage.ErrNotFound):
		return nil, ErrEvidenceNotFound
	case err != nil:
		s.Logger.Error("Failed to cast vote", zap.String("evidence_id", evidenceID.String()), zap.Error(err))
		return nil, err
	}

	metrics.VotesTotal.WithLabelValues(string(voteType)).Inc()
	if event != nil {
		metrics.StatusTransitions.WithLabelValues(string(event.From), string(event.To), event.Reason).Inc()
		s.Logger.Info("Evidence status changed",
			zap.String("evidence_id", ev.ID.String()),
			zap.String("from", string(event.From)),
			zap.String("to", string(event.To)),
			zap.Int("trust_score", ev.TrustScore),
		)
	}
	s.Cache.Invalidate(ctx, ev.ID)
	return ev, nil
}

// AddEvidence legt einen Beleg mit bereits aufgelöstem Medium an.
func (s *EvidenceService) AddEvidence(ctx context.Context, in EvidenceInput, media models.Media, actor Actor) (*models.Evidence, error) {
	title := cleanLine(in.Title)
	if title == "" || in.DateOccurred.IsZero() {
		return nil, ErrInvalidEvidence
	}
	if media.URL == "" || !media.Type.Valid() {
		return nil, ErrInvalidMedia
	}
	if media.SourceType == "" {
		media.SourceType = models.SourceOther
	}
	if !media.SourceType.Valid() {
		return nil, ErrInvalidSource
	}

	exists, err := s.Directory.PromiseExists(ctx, in.PromiseID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrPromiseNotFound
	}
	submitter, err := s.resolveUser(ctx, actor.UserID, ErrSubmitterNotFound)
	if err != nil {
		return nil, err
	}
	role := submitter.Role
	if !role.Valid() {
		role = actor.Role
	}

	score, status := InitialTrust(role, media.SourceType)
	ev := &models.Evidence{
		ID:           uuid.New(),
		PromiseID:    in.PromiseID,
		Title:        title,
		Description:  cleanText(in.Description),
		DateOccurred: in.DateOccurred.UTC(),
		Media:        media,
		TrustScore:   score,
		BaseScore:    score,
		Status:       status,
		AddedBy:      submitter.ID,
	}
	if err := s.Store.CreateEvidence(ctx, ev); err != nil {
		s.Logger.Error("Failed to create evidence", zap.String("promise_id", in.PromiseID.String()), zap.Error(err))
		return nil, err
	}
	metrics.EvidenceCreated.WithLabelValues(string(status)).Inc()
	s.Logger.Info("Evidence created",
		zap.String("evidence_id", ev.ID.String()),
		zap.String("status", string(status)),
		zap.String("role", string(role)),
	)
	return ev, nil
}

// SubmitEvidence löst das Medium auf und legt den Beleg an. Scheitert das
// Anlegen, wird ein bereits hochgeladenes Medium wieder entfernt.
func (s *EvidenceService) SubmitEvidence(ctx context.Context, in EvidenceInput, media MediaInput, actor Actor) (*models.Evidence, error) {
	resolved, err := s.ResolveMedia(ctx, media)
	if err != nil {
		return nil, err
	}
	ev, err := s.AddEvidence(ctx, in, resolved, actor)
	if err != nil {
		s.deleteMedia(ctx, resolved)
		return nil, err
	}
	return ev, nil
}

// UpdateStatus ist der administrative Override. Der Vertrauenswert bleibt unverändert.
func (s *EvidenceService) UpdateStatus(ctx context.Context, evidenceID uuid.UUID, status models.EvidenceStatus, actor Actor) (*models.Evidence, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	event := &models.StatusEvent{
		Reason: models.ReasonOverride,
		Detail: jsonDetail(map[string]any{"actor": actor.UserID}),
	}
	ev, err := s.Store.SetStatus(ctx, evidenceID, status, event)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrEvidenceNotFound
	}
	if err != nil {
		return nil, err
	}
	metrics.StatusTransitions.WithLabelValues(string(event.From), string(event.To), event.Reason).Inc()
	s.Logger.Info("Evidence status overridden",
		zap.String("evidence_id", evidenceID.String()),
		zap.String("from", string(event.From)),
		zap.String("to", string(event.To)),
		zap.String("actor", actor.UserID),
	)
	s.Cache.Invalidate(ctx, evidenceID)
	return ev, nil
}

// DeleteEvidence löscht einen Beleg samt Stimmen. Erlaubt für Admins und den
// Einreicher; maßgeblich ist die Rolle im Nutzerverzeichnis.
func (s *EvidenceService) DeleteEvidence(ctx context.Context, evidenceID uuid.UUID, actor Actor) error {
	ev, err := s.findEvidence(ctx, evidenceID)
	if err != nil {
		return err
	}
	requester, err := s.resolveUser(ctx, actor.UserID, ErrUnauthorized)
	if err != nil {
		return err
	}
	if requester.Role != models.RoleAdmin && requester.ID != ev.AddedBy {
		return ErrUnauthorized
	}

	s.deleteMedia(ctx, ev.Media)

	if err := s.Store.DeleteEvidence(ctx, evidenceID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrEvidenceNotFound
		}
		return err
	}
	metrics.EvidenceDeleted.Inc()
	s.Cache.Invalidate(ctx, evidenceID)
	s.Logger.Info("Evidence deleted", zap.String("evidence_id", evidenceID.String()), zap.String("actor", actor.UserID))
	return nil
}

// deleteMedia entfernt selbst gehostete Medien. Fehler werden nur protokolliert.
func (s *EvidenceService) deleteMedia(ctx context.Context, m models.Media) {
	if m.ExternalID == "" || s.Media == nil {
		return
	}
	if err := s.Media.Delete(ctx, m.ExternalID, m.HostKind); err != nil {
		metrics.MediaDeleteFailures.Inc()
		s.Logger.Warn("Failed to delete hosted media", zap.String("external_id", m.ExternalID), zap.Error(err))
	}
}

// GetVotesForEvidence liefert die Stimmen, neueste zuerst. Unbekannte Belege ergeben eine leere Liste.
func (s *EvidenceService) GetVotesForEvidence(ctx context.Context, evidenceID uuid.UUID) ([]models.Vote, error) {
	votes, err := s.Store.ListVotes(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	if votes == nil {
		votes = []models.Vote{}
	}
	return votes, nil
}

// Get liefert einen Beleg, bevorzugt aus dem Cache.
func (s *EvidenceService) Get(ctx context.Context, evidenceID uuid.UUID) (*models.Evidence, error) {
	if ev := s.Cache.GetEvidence(ctx, evidenceID); ev != nil {
		return ev, nil
	}
	version := s.Cache.Version(ctx, evidenceID)
	ev, err := s.findEvidence(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	s.Cache.SetEvidence(ctx, ev, version)
	return ev, nil
}

// ListForPromise liefert die Chronologie eines Versprechens. Ungeprüfte Belege
// sieht nur ein Admin.
func (s *EvidenceService) ListForPromise(ctx context.Context, promiseID uuid.UUID, actor Actor) ([]models.Evidence, error) {
	exists, err := s.Directory.PromiseExists(ctx, promiseID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrPromiseNotFound
	}
	return s.list(ctx, storage.EvidenceQuery{
		PromiseID:      promiseID,
		ExcludePending: !actor.IsAdmin(),
	})
}

// MaxGalleryItems begrenzt eine Galerieseite.
const MaxGalleryItems = 50

// MediaGallery liefert geprüfte Bild- und Videobelege, neueste zuerst.
// limit außerhalb von 1..MaxGalleryItems ergibt MaxGalleryItems.
func (s *EvidenceService) MediaGallery(ctx context.Context, promiseID uuid.UUID, limit int) ([]models.Evidence, error) {
	if limit < 1 || limit > MaxGalleryItems {
		limit = MaxGalleryItems
	}
	exists, err := s.Directory.PromiseExists(ctx, promiseID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrPromiseNotFound
	}
	return s.list(ctx, storage.EvidenceQuery{
		PromiseID:      promiseID,
		ExcludePending: true,
		MediaTypes:     []models.MediaType{models.MediaImage, models.MediaVideo},
		NewestFirst:    true,
		Limit:          limit,
	})
}

// UserEvidence liefert alle Belege eines Nutzers, neueste zuerst.
func (s *EvidenceService) UserEvidence(ctx context.Context, userID string) ([]models.Evidence, error) {
	u, err := s.resolveUser(ctx, userID, ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, storage.EvidenceQuery{AddedBy: u.ID, NewestFirst: true})
}

func (s *EvidenceService) list(ctx context.Context, q storage.EvidenceQuery) ([]models.Evidence, error) {
	items, err := s.Store.ListEvidence(ctx, q)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Evidence{}
	}
	return items, nil
}

// StatusHistory liefert alle Statusänderungen eines Belegs in zeitlicher Reihenfolge.
func (s *EvidenceService) StatusHistory(ctx context.Context, evidenceID uuid.UUID) ([]models.StatusEvent, error) {
	if _, err := s.findEvidence(ctx, evidenceID); err != nil {
		return nil, err
	}
	events, err := s.Store.StatusHistory(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.StatusEvent{}
	}
	return events, nil
}
