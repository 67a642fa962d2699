package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"promise-tracker/config"
	"promise-tracker/models"
)

// Backend ist der vollständige Store, wie ihn Server und CLI verwenden.
type Backend interface {
	FindUser(ctx context.Context, userID string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	PromiseExists(ctx context.Context, id uuid.UUID) (bool, error)
	CreatePromise(ctx context.Context, p *models.Promise) error

	CreateEvidence(ctx context.Context, ev *models.Evidence) error
	FindEvidence(ctx context.Context, id uuid.UUID) (*models.Evidence, error)
	ListEvidence(ctx context.Context, q EvidenceQuery) ([]models.Evidence, error)
	CastVote(ctx context.Context, vote *models.Vote, apply TallyFunc) (*models.Evidence, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.EvidenceStatus, event *models.StatusEvent) (*models.Evidence, error)
	ListVotes(ctx context.Context, evidenceID uuid.UUID) ([]models.Vote, error)
	StatusHistory(ctx context.Context, evidenceID uuid.UUID) ([]models.StatusEvent, error)
	DeleteEvidence(ctx context.Context, id uuid.UUID) error
	EvidenceIDs(ctx context.Context) ([]uuid.UUID, error)
	Recount(ctx context.Context, id uuid.UUID, fix RecountFunc) (*models.Evidence, error)
	CountByStatus(ctx context.Context) (map[models.EvidenceStatus]int64, error)

	Ping(ctx context.Context) error
}

var (
	_ Backend = (*GormStore)(nil)
	_ Backend = (*MemoryStore)(nil)
)

// Open wählt den Store anhand von STORE_DRIVER und migriert PostgreSQL.
func Open(cfg *config.Config) (Backend, error) {
	switch cfg.StoreDriver {
	case "memory":
		return NewMemoryStore(), nil
	case "postgres", "":
		db, err := OpenPostgres(cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		store := NewGormStore(db)
		if err := store.Migrate(); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}
