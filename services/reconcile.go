package services

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"promise-tracker/metrics"
	"promise-tracker/models"
)

// Reconciler vergleicht den gespeicherten Vertrauenswert jedes Belegs mit
// BaseScore plus der Summe der Stimmen. Mit Repair wird der Wert korrigiert;
// der Status bleibt unangetastet.
type Reconciler struct {
	Store   Store
	Logger  *zap.Logger
	Workers int
	Repair  bool
	Cache   *CacheService
}

// Report fasst einen Abgleichlauf zusammen.
type Report struct {
	Checked  int `json:"checked"`
	Drifted  int `json:"drifted"`
	Repaired int `json:"repaired"`
	Failed   int `json:"failed"`
}

func NewReconciler(store Store, logger *zap.Logger, workers int, repair bool) *Reconciler {
	if workers < 1 {
		workers = 1
	}
	return &Reconciler{Store: store, Logger: logger, Workers: workers, Repair: repair}
}

// Run prüft alle Belege parallel und aktualisiert anschließend die Status-Gauge.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	ids, err := r.Store.EvidenceIDs(ctx)
	if err != nil {
		return Report{}, err
	}

	var wg sync.WaitGroup
	var drifted, repaired, failed atomic.Int64
	semaphore := make(chan struct{}, r.Workers)

loop:
	for _, id := range ids {
		select {
		case semaphore <- struct{}{}:
		case <-ctx.Done():
			break loop
		}
		wg.Add(1)

		go func(id uuid.UUID) {
			defer wg.Done()
			defer func() { <-semaphore }()

			drift, fixed, err := r.check(ctx, id)
			if err != nil {
				failed.Add(1)
				r.Logger.Warn("Reconcile failed", zap.String("evidence_id", id.String()), zap.Error(err))
				return
			}
			if drift {
				drifted.Add(1)
				metrics.ReconcileDrift.Inc()
			}
			if fixed {
				repaired.Add(1)
				r.Cache.Invalidate(ctx, id)
			}
		}(id)
	}
	wg.Wait()

	report := Report{
		Checked:  len(ids),
		Drifted:  int(drifted.Load()),
		Repaired: int(repaired.Load()),
		Failed:   int(failed.Load()),
	}
	r.refreshGauge(ctx)
	r.Logger.Info("Reconcile finished",
		zap.Int("checked", report.Checked),
		zap.Int("drifted", report.Drifted),
		zap.Int("repaired", report.Repaired),
		zap.Int("failed", report.Failed),
	)
	return report, ctx.Err()
}

func (r *Reconciler) check(ctx context.Context, id uuid.UUID) (drift, fixed bool, err error) {
	_, err = r.Store.Recount(ctx, id, func(ev *models.Evidence, counts map[models.VoteType]int64) bool {
		expected := ExpectedScore(ev.BaseScore, counts)
		if expected == ev.TrustScore {
			return false
		}
		drift = true
		r.Logger.Warn("Trust score drift",
			zap.String("evidence_id", id.String()),
			zap.Int("stored", ev.TrustScore),
			zap.Int("expected", expected),
		)
		if !r.Repair {
			return false
		}
		ev.TrustScore = expected
		fixed = true
		return true
	})
	return drift, fixed, err
}

func (r *Reconciler) refreshGauge(ctx context.Context) {
	counts, err := r.Store.CountByStatus(ctx)
	if err != nil {
		r.Logger.Warn("Failed to count evidence by status", zap.Error(err))
		return
	}
	for _, st := range []models.EvidenceStatus{models.StatusPending, models.StatusVerified, models.StatusDisputed} {
		metrics.EvidenceByStatus.WithLabelValues(string(st)).Set(float64(counts[st]))
	}
}
