package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"promise-tracker/models"
)

// GormStore persistiert Belege, Stimmen und Identitäten in PostgreSQL.
type GormStore struct {
	DB *gorm.DB
}

// OpenPostgres öffnet die Datenbank. TranslateError ist nötig, damit
// Unique-Verletzungen als gorm.ErrDuplicatedKey ankommen.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
}

// NewGormStore erstellt einen Store auf einer bestehenden Verbindung.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

// Migrate legt alle Tabellen inklusive Indizes an.
func (s *GormStore) Migrate() error {
	return s.DB.AutoMigrate(
		&models.User{},
		&models.Promise{},
		&models.Evidence{},
		&models.Vote{},
		&models.StatusEvent{},
	)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

func (s *GormStore) FindUser(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return translate(s.DB.WithContext(ctx).Create(u).Error)
}

func (s *GormStore) PromiseExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.Promise{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormStore) CreatePromise(ctx context.Context, p *models.Promise) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return translate(s.DB.WithContext(ctx).Create(p).Error)
}

func (s *GormStore) CreateEvidence(ctx context.Context, ev *models.Evidence) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	return translate(s.DB.WithContext(ctx).Create(ev).Error)
}

func (s *GormStore) FindEvidence(ctx context.Context, id uuid.UUID) (*models.Evidence, error) {
	var ev models.Evidence
	if err := s.DB.WithContext(ctx).First(&ev, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &ev, nil
}

func (s *GormStore) ListEvidence(ctx context.Context, q EvidenceQuery) ([]models.Evidence, error) {
	query := s.DB.WithContext(ctx).Model(&models.Evidence{})
	if q.PromiseID != uuid.Nil {
		query = query.Where("promise_id = ?", q.PromiseID)
	}
	if q.AddedBy != uuid.Nil {
		query = query.Where("added_by = ?", q.AddedBy)
	}
	if q.ExcludePending {
		query = query.Where("status <> ?", models.StatusPending)
	}
	if len(q.MediaTypes) > 0 {
		query = query.Where("media_type IN ?", q.MediaTypes)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	order := "date_occurred asc"
	if q.NewestFirst {
		order = "date_occurred desc"
	}

	var out []models.Evidence
	if err := query.Order(order).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// lockEvidence lädt den Beleg mit SELECT ... FOR UPDATE und serialisiert so
// alle Schreibzugriffe auf denselben Beleg bis zum Ende der Transaktion.
func lockEvidence(tx *gorm.DB, id uuid.UUID) (*models.Evidence, error) {
	var ev models.Evidence
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ev, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &ev, nil
}

// CastVote fügt die Stimme ein und wendet apply in derselben Transaktion an.
// Eine doppelte Stimme scheitert am Unique-Index mit ErrDuplicate; der Beleg bleibt unverändert.
func (s *GormStore) CastVote(ctx context.Context, vote *models.Vote, apply TallyFunc) (*models.Evidence, error) {
	if vote.ID == uuid.Nil {
		vote.ID = uuid.New()
	}
	var result *models.Evidence
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev, err := lockEvidence(tx, vote.EvidenceID)
		if err != nil {
			return err
		}
		if err := tx.Create(vote).Error; err != nil {
			return translate(err)
		}

		var flags int64
		if err := tx.Model(&models.Vote{}).
			Where("evidence_id = ? AND vote_type = ?", vote.EvidenceID, models.VoteFlag).
			Count(&flags).Error; err != nil {
			return err
		}

		event := apply(ev, vote, flags)
		if err := tx.Model(ev).Updates(map[string]any{
			"trust_score": ev.TrustScore,
			"status":      ev.Status,
		}).Error; err != nil {
			return err
		}
		if event != nil {
			if err := tx.Create(event).Error; err != nil {
				return err
			}
		}
		result = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetStatus überschreibt den Status ohne den Vertrauenswert anzufassen.
func (s *GormStore) SetStatus(ctx context.Context, id uuid.UUID, status models.EvidenceStatus, event *models.StatusEvent) (*models.Evidence, error) {
	var result *models.Evidence
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev, err := lockEvidence(tx, id)
		if err != nil {
			return err
		}
		if event != nil {
			event.EvidenceID = id
			event.From = ev.Status
			event.To = status
		}
		if err := tx.Model(ev).Update("status", status).Error; err != nil {
			return err
		}
		ev.Status = status
		if event != nil {
			if err := tx.Create(event).Error; err != nil {
				return err
			}
		}
		result = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *GormStore) ListVotes(ctx context.Context, evidenceID uuid.UUID) ([]models.Vote, error) {
	var votes []models.Vote
	if err := s.DB.WithContext(ctx).
		Where("evidence_id = ?", evidenceID).
		Order("created_at desc").
		Find(&votes).Error; err != nil {
		return nil, err
	}
	return votes, nil
}

func (s *GormStore) StatusHistory(ctx context.Context, evidenceID uuid.UUID) ([]models.StatusEvent, error) {
	var events []models.StatusEvent
	if err := s.DB.WithContext(ctx).
		Where("evidence_id = ?", evidenceID).
		Order("id asc").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// DeleteEvidence löscht Stimmen, Historie und Beleg in einer Transaktion.
func (s *GormStore) DeleteEvidence(ctx context.Context, id uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockEvidence(tx, id); err != nil {
			return err
		}
		if err := tx.Where("evidence_id = ?", id).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("evidence_id = ?", id).Delete(&models.StatusEvent{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Evidence{}, "id = ?", id).Error
	})
}

func (s *GormStore) EvidenceIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := s.DB.WithContext(ctx).Model(&models.Evidence{}).Order("created_at asc").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Recount zählt die Stimmen eines Belegs unter Zeilensperre.
func (s *GormStore) Recount(ctx context.Context, id uuid.UUID, fix RecountFunc) (*models.Evidence, error) {
	var result *models.Evidence
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev, err := lockEvidence(tx, id)
		if err != nil {
			return err
		}
		var rows []struct {
			VoteType models.VoteType
			Count    int64
		}
		if err := tx.Model(&models.Vote{}).
			Select("vote_type, count(*) as count").
			Where("evidence_id = ?", id).
			Group("vote_type").
			Scan(&rows).Error; err != nil {
			return err
		}
		counts := make(map[models.VoteType]int64, len(rows))
		for _, r := range rows {
			counts[r.VoteType] = r.Count
		}
		if fix(ev, counts) {
			if err := tx.Model(ev).Update("trust_score", ev.TrustScore).Error; err != nil {
				return err
			}
		}
		result = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CountByStatus liefert die Anzahl der Belege je Status.
func (s *GormStore) CountByStatus(ctx context.Context) (map[models.EvidenceStatus]int64, error) {
	var rows []struct {
		Status models.EvidenceStatus
		Count  int64
	}
	if err := s.DB.WithContext(ctx).Model(&models.Evidence{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[models.EvidenceStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}

// Ping prüft die Datenbankverbindung.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
