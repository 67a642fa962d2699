package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promise-tracker/models"
)

// runBackendSuite prüft das gemeinsame Verhalten aller Store-Implementierungen.
func runBackendSuite(t *testing.T, open func(t *testing.T) Backend) {
	t.Run("users", func(t *testing.T) { testUsers(t, open(t)) })
	t.Run("vote uniqueness", func(t *testing.T) { testVoteUniqueness(t, open(t)) })
	t.Run("flag count includes current vote", func(t *testing.T) { testFlagCount(t, open(t)) })
	t.Run("concurrent votes", func(t *testing.T) { testConcurrentVotes(t, open(t)) })
	t.Run("set status", func(t *testing.T) { testSetStatus(t, open(t)) })
	t.Run("cascade delete", func(t *testing.T) { testCascadeDelete(t, open(t)) })
	t.Run("list evidence", func(t *testing.T) { testListEvidence(t, open(t)) })
	t.Run("recount", func(t *testing.T) { testRecount(t, open(t)) })
}

type seed struct {
	promise uuid.UUID
	voters  []uuid.UUID
}

func seedBackend(t *testing.T, s Backend, voters int) seed {
	t.Helper()
	ctx := context.Background()
	p := &models.Promise{Title: "Ten new hospitals"}
	require.NoError(t, s.CreatePromise(ctx, p))
	out := seed{promise: p.ID}
	for i := 0; i < voters; i++ {
		u := &models.User{UserID: uuid.NewString(), Role: models.RoleCitizen}
		require.NoError(t, s.CreateUser(ctx, u))
		out.voters = append(out.voters, u.ID)
	}
	return out
}

func newEvidence(t *testing.T, s Backend, promise uuid.UUID, status models.EvidenceStatus, typ models.MediaType, at time.Time) *models.Evidence {
	t.Helper()
	ev := &models.Evidence{
		PromiseID:    promise,
		Title:        "Ground broken",
		DateOccurred: at,
		Media:        models.Media{URL: "https://example.org/" + uuid.NewString(), Type: typ, SourceType: models.SourceNews},
		Status:       status,
		AddedBy:      uuid.New(),
	}
	require.NoError(t, s.CreateEvidence(context.Background(), ev))
	return ev
}

func addOne(ev *models.Evidence, v *models.Vote, _ int64) *models.StatusEvent {
	switch v.VoteType {
	case models.VoteUp:
		ev.TrustScore++
	case models.VoteDown:
		ev.TrustScore--
	case models.VoteFlag:
		ev.TrustScore -= 2
	}
	return nil
}

func testUsers(t *testing.T, s Backend) {
	ctx := context.Background()
	u := &models.User{UserID: "ext-" + uuid.NewString(), Name: "Amara", Role: models.RoleModerator}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.NotEqual(t, uuid.Nil, u.ID)

	got, err := s.FindUser(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, models.RoleModerator, got.Role)

	_, err = s.FindUser(ctx, "missing-"+uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.CreateUser(ctx, &models.User{UserID: u.UserID, Role: models.RoleCitizen}), ErrDuplicate)

	ok, err := s.PromiseExists(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func testVoteUniqueness(t *testing.T, s Backend) {
	ctx := context.Background()
	sd := seedBackend(t, s, 1)
	ev := newEvidence(t, s, sd.promise, models.StatusPending, models.MediaLink, time.Now())

	calls := 0
	apply := func(ev *models.Evidence, v *models.Vote, n int64) *models.StatusEvent {
		calls++
		return addOne(ev, v, n)
	}
	_, err := s.CastVote(ctx, &models.Vote{EvidenceID: ev.ID, VoterID: sd.voters[0], VoteType: models.VoteUp}, apply)
	require.NoError(t, err)
	_, err = s.CastVote(ctx, &models.Vote{EvidenceID: ev.ID, VoterID: sd.voters[0], VoteType: models.VoteFlag}, apply)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, 1, calls)

	got, err := s.FindEvidence(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TrustScore)

	votes, err := s.ListVotes(ctx, ev.ID)
	require.NoError(t, err)
	assert.Len(t, votes, 1)

	_, err = s.CastVote(ctx, &models.Vote{EvidenceID: uuid.New(), VoterID: sd.voters[0], VoteType: models.VoteUp}, apply)
	assert.ErrorIs(t, err, ErrNotFound)
}

func testFlagCount(t *testing.T, s Backend) {
	ctx := context.Background()
	sd := seedBackend(t, s, 3)
	ev := newEvidence(t, s, sd.promise, models.StatusPending, models.MediaLink, time.Now())

	var seen []int64
	record := func(ev *models.Evidence, v *models.Vote, n int64) *models.StatusEvent {
		seen = append(seen, n)
		return nil
	}
	for i, vt := range []models.VoteType{models.VoteFlag, models.VoteUp, models.VoteFlag} {
		_, err := s.CastVote(ctx, &models.Vote{EvidenceID: ev.ID, VoterID: sd.voters[i], VoteType: vt}, record)
		require.NoError(t, err)
	}
	assert.Equal(t, []int64{1, 1, 2}, seen)
}

func testConcurrentVotes(t *testing.T, s Backend) {
	ctx := context.Background()
	const n = 25
	sd := seedBackend(t, s, n)
	ev := newEvidence(t, s, sd.promise, models.StatusPending, models.MediaLink, time.Now())

	var wg sync.WaitGroup
	for _, voter := range sd.voters {
		wg.Add(1)
		go func(voter uuid.UUID) {
			defer wg.Done()
			_, err := s.CastVote(ctx, &models.Vote{EvidenceID: ev.ID, VoterID: voter, VoteType: models.VoteUp}, addOne)
			assert.NoError(t, err)
		}(voter)
	}
	wg.Wait()

	got, err := s.FindEvidence(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.TrustScore)
}

func testSetStatus(t *testing.T, s Backend) {
	ctx := context.Background()
	sd := seedBackend(t, s, 0)
	ev := newEvidence(t, s, sd.promise, models.StatusPending, models.MediaLink, time.Now())

	event := &models.StatusEvent{Reason: models.ReasonOverride}
	got, err := s.SetStatus(ctx, ev.ID, models.StatusDisputed, event)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDisputed, got.Status)
	assert.Equal(t, models.StatusPending, event.From)
	assert.Equal(t, models.StatusDisputed, event.To)

	history, err := s.StatusHistory(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.ReasonOverride, history[0].Reason)

	_, err = s.SetStatus(ctx, uuid.New(), models.StatusVerified, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func testCascadeDelete(t *testing.T, s Backend) {
	ctx := context.Background()
	sd := seedBackend(t, s, 2)
	ev := newEvidence(t, s, sd.promise, models.StatusPending, models.MediaLink, time.Now())
	for _, voter := range sd.voters {
		_, err := s.CastVote(ctx, &models.Vote{EvidenceID: ev.ID, VoterID: voter, VoteType: models.VoteUp}, addOne)
		require.NoError(t, err)
	}
	_, err := s.SetStatus(ctx, ev.ID, models.StatusVerified, &models.StatusEvent{Reason: models.ReasonOverride})
	require.NoError(t, err)

	require.NoError(t, s.DeleteEvidence(ctx, ev.ID))

	_, err = s.FindEvidence(ctx, ev.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	votes, err := s.ListVotes(ctx, ev.ID)
	require.NoError(t, err)
	assert.Empty(t, votes)
	history, err := s.StatusHistory(ctx, ev.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	assert.ErrorIs(t, s.DeleteEvidence(ctx, ev.ID), ErrNotFound)
}

func testListEvidence(t *testing.T, s Backend) {
	ctx := context.Background()
	sd := seedBackend(t, s, 0)
	day := func(d int) time.Time { return time.Date(2023, 6, d, 12, 0, 0, 0, time.UTC) }

	a := newEvidence(t, s, sd.promise, models.StatusVerified, models.MediaImage, day(3))
	b := newEvidence(t, s, sd.promise, models.StatusPending, models.MediaVideo, day(1))
	c := newEvidence(t, s, sd.promise, models.StatusDisputed, models.MediaPDF, day(2))
	newEvidence(t, s, seedBackend(t, s, 0).promise, models.StatusVerified, models.MediaImage, day(4))

	ids := func(items []models.Evidence) []uuid.UUID {
		out := make([]uuid.UUID, len(items))
		for i, ev := range items {
			out[i] = ev.ID
		}
		return out
	}

	all, err := s.ListEvidence(ctx, EvidenceQuery{PromiseID: sd.promise})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID, c.ID, a.ID}, ids(all))

	public, err := s.ListEvidence(ctx, EvidenceQuery{PromiseID: sd.promise, ExcludePending: true, NewestFirst: true})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID, c.ID}, ids(public))

	media, err := s.ListEvidence(ctx, EvidenceQuery{
		PromiseID:  sd.promise,
		MediaTypes: []models.MediaType{models.MediaImage, models.MediaVideo},
		Limit:      1,
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID}, ids(media))

	byUser, err := s.ListEvidence(ctx, EvidenceQuery{AddedBy: c.AddedBy})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c.ID}, ids(byUser))
}

func testRecount(t *testing.T, s Backend) {
	ctx := context.Background()
	sd := seedBackend(t, s, 3)
	ev := newEvidence(t, s, sd.promise, models.StatusPending, models.MediaLink, time.Now())
	for i, vt := range []models.VoteType{models.VoteUp, models.VoteFlag, models.VoteUp} {
		_, err := s.CastVote(ctx, &models.Vote{EvidenceID: ev.ID, VoterID: sd.voters[i], VoteType: vt}, addOne)
		require.NoError(t, err)
	}

	var counts map[models.VoteType]int64
	_, err := s.Recount(ctx, ev.ID, func(ev *models.Evidence, c map[models.VoteType]int64) bool {
		counts = c
		ev.TrustScore = 42
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, map[models.VoteType]int64{models.VoteUp: 2, models.VoteFlag: 1}, counts)

	got, err := s.FindEvidence(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 42, got.TrustScore)

	byStatus, err := s.CountByStatus(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, byStatus[models.StatusPending], int64(1))

	ids, err := s.EvidenceIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, ev.ID)
}
