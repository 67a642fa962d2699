package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"promise-tracker/models"
	"promise-tracker/storage"
)

func TestReconcileReportsDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	clean := f.addEvidence(t, "alice", models.SourceGazette)
	f.votes(t, clean.ID, 3, models.VoteUp)

	drifted := f.addEvidence(t, "alice", models.SourceNews)
	f.votes(t, drifted.ID, 2, models.VoteFlag)
	f.store.ForceTrustScore(drifted.ID, 17)

	r := NewReconciler(f.store, zaptest.NewLogger(t), 4, false)
	report, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Checked: 2, Drifted: 1}, report)

	got, err := f.svc.Get(ctx, drifted.ID)
	require.NoError(t, err)
	assert.Equal(t, 17, got.TrustScore, "dry run must not write")
}

func TestReconcileRepair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ev := f.addEvidence(t, "admin", models.SourceNews)
	f.votes(t, ev.ID, 2, models.VoteDown)
	f.votes(t, ev.ID, 1, models.VoteFlag)
	f.store.ForceTrustScore(ev.ID, 0)

	r := NewReconciler(f.store, zaptest.NewLogger(t), 2, true)
	report, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Checked: 1, Drifted: 1, Repaired: 1}, report)

	got, err := f.svc.Get(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 100-2-2, got.TrustScore)
	assert.Equal(t, models.StatusVerified, got.Status)

	report, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Drifted)
}

func TestReconcileStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	f.addEvidence(t, "alice", models.SourceNews)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewReconciler(f.store, zaptest.NewLogger(t), 0, false).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// slowRecountStore hält jeden Recount bis zum Abbruch des Kontexts fest.
type slowRecountStore struct {
	*storage.MemoryStore
	started chan struct{}
	calls   atomic.Int32
}

func (s *slowRecountStore) Recount(ctx context.Context, id uuid.UUID, fix storage.RecountFunc) (*models.Evidence, error) {
	if s.calls.Add(1) == 1 {
		close(s.started)
	}
	<-ctx.Done()
	time.Sleep(50 * time.Millisecond)
	return nil, ctx.Err()
}

func TestReconcileCancelWhileWorkersBusy(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.addEvidence(t, "alice", models.SourceNews)
	}
	store := &slowRecountStore{MemoryStore: f.store, started: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		report Report
		err    error
	}
	done := make(chan result, 1)
	go func() {
		report, err := NewReconciler(store, zaptest.NewLogger(t), 1, false).Run(ctx)
		done <- result{report, err}
	}()

	<-store.started
	cancel()

	select {
	case res := <-done:
		assert.ErrorIs(t, res.err, context.Canceled)
		assert.Equal(t, 1, res.report.Failed)
	case <-time.After(5 * time.Second):
		t.Fatal("reconcile did not stop after cancel")
	}
	assert.Equal(t, int32(1), store.calls.Load(), "no new recount may start after cancel")
}
