package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promise-tracker/models"
)

func TestMemoryStore(t *testing.T) {
	runBackendSuite(t, func(t *testing.T) Backend { return NewMemoryStore() })
}

func TestMemoryStoreVotesNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	clock := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	ctx := context.Background()
	sd := seedBackend(t, s, 3)
	ev := newEvidence(t, s, sd.promise, models.StatusPending, models.MediaLink, clock)

	for i, vt := range []models.VoteType{models.VoteUp, models.VoteDown, models.VoteFlag} {
		_, err := s.CastVote(ctx, &models.Vote{EvidenceID: ev.ID, VoterID: sd.voters[i], VoteType: vt}, addOne)
		require.NoError(t, err)
	}

	votes, err := s.ListVotes(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, votes, 3)
	assert.Equal(t, models.VoteFlag, votes[0].VoteType)
	assert.Equal(t, models.VoteUp, votes[2].VoteType)
	assert.True(t, votes[0].CreatedAt.After(votes[2].CreatedAt))
}

func TestMemoryStoreDeleteAllowsRevote(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	sd := seedBackend(t, s, 1)
	ev := newEvidence(t, s, sd.promise, models.StatusPending, models.MediaLink, time.Now())
	_, err := s.CastVote(ctx, &models.Vote{EvidenceID: ev.ID, VoterID: sd.voters[0], VoteType: models.VoteUp}, addOne)
	require.NoError(t, err)
	require.NoError(t, s.DeleteEvidence(ctx, ev.ID))

	assert.Empty(t, s.voted, "vote keys must be released with the evidence")
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	sd := seedBackend(t, s, 0)
	ev := newEvidence(t, s, sd.promise, models.StatusPending, models.MediaLink, time.Now())

	got, err := s.FindEvidence(ctx, ev.ID)
	require.NoError(t, err)
	got.TrustScore = 999

	again, err := s.FindEvidence(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.TrustScore)
}
