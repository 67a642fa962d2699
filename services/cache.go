package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"promise-tracker/models"
)

// CacheService ist ein Redis-Cache-Aside für einzelne Belege.
// Ohne Client sind alle Operationen No-ops.
type CacheService struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCacheService verbindet sich mit Redis. Ist die URL leer oder Redis nicht
// erreichbar, wird ein deaktivierter Cache zurückgegeben.
func NewCacheService(redisURL string, ttl time.Duration, logger *zap.Logger) *CacheService {
	c := &CacheService{ttl: ttl, logger: logger}
	if redisURL == "" {
		logger.Info("redis: no URL configured, caching disabled")
		return c
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("redis: invalid URL, caching disabled", zap.Error(err))
		return c
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis: connection failed, caching disabled", zap.Error(err))
		_ = rdb.Close()
		return c
	}
	logger.Info("redis: connected, caching enabled")
	c.rdb = rdb
	return c
}

// NewCacheWithClient verwendet einen bestehenden Client.
func NewCacheWithClient(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *CacheService {
	return &CacheService{rdb: rdb, ttl: ttl, logger: logger}
}

// versionTTL muss länger sein als jedes Fenster zwischen Version und SetEvidence.
const versionTTL = 24 * time.Hour

var errStaleEntry = errors.New("cache entry outdated")

func evidenceKey(id uuid.UUID) string {
	return "evidence:" + id.String()
}

// versionKey zählt die Invalidierungen eines Belegs.
func versionKey(id uuid.UUID) string {
	return "evidence:" + id.String() + ":version"
}

// Enabled meldet, ob ein Redis-Client vorhanden ist.
func (c *CacheService) Enabled() bool {
	return c != nil && c.rdb != nil
}

// GetEvidence liefert den gecachten Beleg oder nil.
func (c *CacheService) GetEvidence(ctx context.Context, id uuid.UUID) *models.Evidence {
	if !c.Enabled() {
		return nil
	}
	raw, err := c.rdb.Get(ctx, evidenceKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("redis: get failed", zap.String("evidence_id", id.String()), zap.Error(err))
		}
		return nil
	}
	var ev models.Evidence
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil
	}
	return &ev
}

// Version liefert den Invalidierungszähler eines Belegs. Er muss vor dem
// Lesen aus der Datenbank abgefragt und an SetEvidence übergeben werden.
// -1 bedeutet, dass nicht geschrieben werden darf.
func (c *CacheService) Version(ctx context.Context, id uuid.UUID) int64 {
	if !c.Enabled() {
		return -1
	}
	v, err := c.rdb.Get(ctx, versionKey(id)).Int64()
	if err != nil && err != redis.Nil {
		c.logger.Warn("redis: version read failed", zap.String("evidence_id", id.String()), zap.Error(err))
		return -1
	}
	return v
}

// SetEvidence schreibt den Beleg nur, wenn seit version keine Invalidierung
// stattgefunden hat. Sonst würde ein vor der Änderung gelesener Stand den
// neueren überschreiben.
func (c *CacheService) SetEvidence(ctx context.Context, ev *models.Evidence, version int64) {
	if !c.Enabled() || version < 0 {
		return
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return
	}
	vkey := versionKey(ev.ID)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vkey).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != version {
			return errStaleEntry
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, evidenceKey(ev.ID), raw, c.ttl)
			return nil
		})
		return err
	}, vkey)
	switch {
	case errors.Is(err, errStaleEntry), errors.Is(err, redis.TxFailedErr):
		c.logger.Debug("redis: skipped outdated entry", zap.String("evidence_id", ev.ID.String()))
	case err != nil:
		c.logger.Warn("redis: set failed", zap.String("evidence_id", ev.ID.String()), zap.Error(err))
	}
}

// Invalidate entfernt einen Beleg nach jeder Änderung und erhöht seinen Zähler.
func (c *CacheService) Invalidate(ctx context.Context, id uuid.UUID) {
	if !c.Enabled() {
		return
	}
	vkey := versionKey(id)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, vkey)
		pipe.Expire(ctx, vkey, versionTTL)
		pipe.Del(ctx, evidenceKey(id))
		return nil
	})
	if err != nil {
		c.logger.Warn("redis: invalidate failed", zap.String("evidence_id", id.String()), zap.Error(err))
	}
}

func (c *CacheService) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}
