package storage

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"promise-tracker/models"
)

type voteKey struct {
	evidence uuid.UUID
	voter    uuid.UUID
}

// MemoryStore hält alle Daten im Speicher. Gedacht für lokale Entwicklung
// (STORE_DRIVER=memory) und Tests; ein einziger Mutex serialisiert alle Schreibzugriffe.
type MemoryStore struct {
	mu       sync.Mutex
	users    map[string]models.User
	promises map[uuid.UUID]models.Promise
	evidence map[uuid.UUID]models.Evidence
	votes    map[uuid.UUID][]models.Vote
	voted    map[voteKey]struct{}
	events   map[uuid.UUID][]models.StatusEvent
	nextEvID uint
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]models.User),
		promises: make(map[uuid.UUID]models.Promise),
		evidence: make(map[uuid.UUID]models.Evidence),
		votes:    make(map[uuid.UUID][]models.Vote),
		voted:    make(map[voteKey]struct{}),
		events:   make(map[uuid.UUID][]models.StatusEvent),
		now:      time.Now,
	}
}

func (s *MemoryStore) FindUser(_ context.Context, userID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.UserID]; ok {
		return ErrDuplicate
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	s.users[u.UserID] = *u
	return nil
}

func (s *MemoryStore) PromiseExists(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.promises[id]
	return ok, nil
}

func (s *MemoryStore) CreatePromise(_ context.Context, p *models.Promise) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if _, ok := s.promises[p.ID]; ok {
		return ErrDuplicate
	}
	p.CreatedAt = s.now()
	s.promises[p.ID] = *p
	return nil
}

func (s *MemoryStore) CreateEvidence(_ context.Context, ev *models.Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if _, ok := s.evidence[ev.ID]; ok {
		return ErrDuplicate
	}
	now := s.now()
	ev.CreatedAt, ev.UpdatedAt = now, now
	s.evidence[ev.ID] = *ev
	return nil
}

func (s *MemoryStore) FindEvidence(_ context.Context, id uuid.UUID) (*models.Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.evidence[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &ev, nil
}

func (s *MemoryStore) ListEvidence(_ context.Context, q EvidenceQuery) ([]models.Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Evidence
	for _, ev := range s.evidence {
		if q.PromiseID != uuid.Nil && ev.PromiseID != q.PromiseID {
			continue
		}
		if q.AddedBy != uuid.Nil && ev.AddedBy != q.AddedBy {
			continue
		}
		if q.ExcludePending && ev.Status == models.StatusPending {
			continue
		}
		if len(q.MediaTypes) > 0 && !slices.Contains(q.MediaTypes, ev.Media.Type) {
			continue
		}
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if q.NewestFirst {
			return out[i].DateOccurred.After(out[j].DateOccurred)
		}
		return out[i].DateOccurred.Before(out[j].DateOccurred)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MemoryStore) CastVote(_ context.Context, vote *models.Vote, apply TallyFunc) (*models.Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.evidence[vote.EvidenceID]
	if !ok {
		return nil, ErrNotFound
	}
	key := voteKey{evidence: vote.EvidenceID, voter: vote.VoterID}
	if _, dup := s.voted[key]; dup {
		return nil, ErrDuplicate
	}
	if vote.ID == uuid.Nil {
		vote.ID = uuid.New()
	}
	vote.CreatedAt = s.now()
	s.voted[key] = struct{}{}
	s.votes[vote.EvidenceID] = append(s.votes[vote.EvidenceID], *vote)

	var flags int64
	for _, v := range s.votes[vote.EvidenceID] {
		if v.VoteType == models.VoteFlag {
			flags++
		}
	}
	event := apply(&ev, vote, flags)
	ev.UpdatedAt = s.now()
	s.evidence[ev.ID] = ev
	if event != nil {
		s.appendEvent(event)
	}
	return &ev, nil
}

func (s *MemoryStore) appendEvent(event *models.StatusEvent) {
	s.nextEvID++
	event.ID = s.nextEvID
	event.CreatedAt = s.now()
	s.events[event.EvidenceID] = append(s.events[event.EvidenceID], *event)
}

func (s *MemoryStore) SetStatus(_ context.Context, id uuid.UUID, status models.EvidenceStatus, event *models.StatusEvent) (*models.Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.evidence[id]
	if !ok {
		return nil, ErrNotFound
	}
	if event != nil {
		event.EvidenceID = id
		event.From = ev.Status
		event.To = status
		s.appendEvent(event)
	}
	ev.Status = status
	ev.UpdatedAt = s.now()
	s.evidence[id] = ev
	return &ev, nil
}

// ListVotes liefert die Stimmen, neueste zuerst.
func (s *MemoryStore) ListVotes(_ context.Context, evidenceID uuid.UUID) ([]models.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.votes[evidenceID]
	out := make([]models.Vote, len(src))
	for i, v := range src {
		out[len(src)-1-i] = v
	}
	return out, nil
}

func (s *MemoryStore) StatusHistory(_ context.Context, evidenceID uuid.UUID) ([]models.StatusEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events[evidenceID]), nil
}

func (s *MemoryStore) DeleteEvidence(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.evidence[id]; !ok {
		return ErrNotFound
	}
	for _, v := range s.votes[id] {
		delete(s.voted, voteKey{evidence: id, voter: v.VoterID})
	}
	delete(s.votes, id)
	delete(s.events, id)
	delete(s.evidence, id)
	return nil
}

func (s *MemoryStore) EvidenceIDs(_ context.Context) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(s.evidence))
	for id := range s.evidence {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemoryStore) Recount(_ context.Context, id uuid.UUID, fix RecountFunc) (*models.Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.evidence[id]
	if !ok {
		return nil, ErrNotFound
	}
	counts := make(map[models.VoteType]int64)
	for _, v := range s.votes[id] {
		counts[v.VoteType]++
	}
	if fix(&ev, counts) {
		s.evidence[id] = ev
	}
	return &ev, nil
}

func (s *MemoryStore) CountByStatus(_ context.Context) (map[models.EvidenceStatus]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[models.EvidenceStatus]int64)
	for _, ev := range s.evidence {
		out[ev.Status]++
	}
	return out, nil
}

// ForceTrustScore setzt den Wert am Stimmbuch vorbei. Nur für Tests des Abgleichs.
func (s *MemoryStore) ForceTrustScore(id uuid.UUID, score int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev, ok := s.evidence[id]; ok {
		ev.TrustScore = score
		s.evidence[id] = ev
	}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
