package challsrvc

import (
	"context"
	"slices"
	"sync"
	"time"
)

type fakeRepo struct {
	lock   sync.Mutex
	challs map[string]*Challenge
	// FindUnsolvedLRU visits challenges in ascending last-used order,
	// same contract as the DynamoDB GSI query
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{challs: map[string]*Challenge{}}
}

func (r *fakeRepo) Insert(_ context.Context, ch *Challenge) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.challs[ch.ID]; ok {
		return newErrChallengeExists(ch.ID)
	}
	cp := *ch
	r.challs[ch.ID] = &cp
	return nil
}

func (r *fakeRepo) Get(_ context.Context, id string) (*Challenge, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	ch, ok := r.challs[id]
	if !ok {
		return nil, newErrChallengeNotFound()
	}
	cp := *ch
	return &cp, nil
}

func (r *fakeRepo) FindUnsolvedLRU(_ context.Context, topic, difficulty, identityKey string) (*Challenge, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	var best *Challenge
	for _, ch := range r.challs {
		if ch.Topic != topic || ch.Difficulty != difficulty {
			continue
		}
		if slices.Contains(ch.SolvedBy, identityKey) {
			continue
		}
		if best == nil || ch.LastUsedAt.Before(best.LastUsedAt) {
			best = ch
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (r *fakeRepo) TouchUsage(_ context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	ch, ok := r.challs[id]
	if !ok {
		return newErrChallengeNotFound()
	}
	ch.UsageCount++
	ch.LastUsedAt = time.Now().UTC()
	return nil
}

func (r *fakeRepo) AddSolved(_ context.Context, id string, identityKey string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	ch, ok := r.challs[id]
	if !ok {
		return newErrChallengeNotFound()
	}
	if !slices.Contains(ch.SolvedBy, identityKey) {
		ch.SolvedBy = append(ch.SolvedBy, identityKey)
	}
	return nil
}

type fakeIndex struct {
	available bool
	matches   []IndexMatch
	queryErr  error

	upserts []string
	updates []string
}

func (i *fakeIndex) Available() bool { return i.available }

func (i *fakeIndex) Upsert(_ context.Context, id string, _ []float32, _ IndexMetadata) error {
	i.upserts = append(i.upserts, id)
	return nil
}

func (i *fakeIndex) Query(_ context.Context, _ []float32, topK int, _ IndexFilter) ([]IndexMatch, error) {
	if i.queryErr != nil {
		return nil, i.queryErr
	}
	if len(i.matches) > topK {
		return i.matches[:topK], nil
	}
	return i.matches, nil
}

func (i *fakeIndex) Update(_ context.Context, id string, _ IndexMetadata) error {
	i.updates = append(i.updates, id)
	return nil
}

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (e *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	if e.vector == nil {
		return []float32{0.1, 0.2, 0.3}, nil
	}
	return e.vector, nil
}

type fakeGenerator struct {
	input *ChallengeInput
	err   error
	calls int
}

func (g *fakeGenerator) Generate(_ context.Context, topic, difficulty string) (*ChallengeInput, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	cp := *g.input
	cp.Topic = topic
	cp.Difficulty = difficulty
	return &cp, nil
}
