package roomsrvc

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/codeclash/backend/challsrvc"
	"github.com/codeclash/backend/conf"
	"github.com/codeclash/backend/evalsrvc"
)

type fakeChallengeSource struct {
	mu        sync.Mutex
	retrieval challsrvc.Retrieval
	generated *challsrvc.Challenge
	genErr    error

	retrieveCalls int32
	generateCalls int32
	solvedCalls   []string // "challengeID/identityKey"

	gate chan struct{} // when set, retrieval blocks until closed
}

func (f *fakeChallengeSource) GetUnsolvedChallenge(ctx context.Context, identityKey, topic, difficulty string) (challsrvc.Retrieval, error) {
	atomic.AddInt32(&f.retrieveCalls, 1)
	if f.gate != nil {
		<-f.gate
	}
	return f.retrieval, nil
}

func (f *fakeChallengeSource) GenerateChallenge(ctx context.Context, topic, difficulty string) (*challsrvc.Challenge, error) {
	atomic.AddInt32(&f.generateCalls, 1)
	return f.generated, f.genErr
}

func (f *fakeChallengeSource) MarkSolved(ctx context.Context, challengeID, identityKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.solvedCalls = append(f.solvedCalls, challengeID+"/"+identityKey)
	return nil
}

type fakeEvaluator struct {
	result evalsrvc.Result
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, req evalsrvc.Request) evalsrvc.Result {
	return f.result
}

type fakeSink struct {
	mu       sync.Mutex
	outcomes []RoundOutcome
}

func (f *fakeSink) PushRoundOutcome(ctx context.Context, outcome RoundOutcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
}

func sampleChallenge(id string) *challsrvc.Challenge {
	return &challsrvc.Challenge{
		ID:           id,
		Title:        "Sum of Array",
		Topic:        "arrays",
		Difficulty:   "easy",
		FunctionName: "sumArray",
		MaxScore:     100,
	}
}

func testTunables() conf.Tunables {
	tun := conf.DefaultTunables()
	tun.RoomCapacity = 3
	return tun
}

func newTestRegistry(chall ChallengeSource, eval Evaluator, sink StatSink) *Registry {
	return NewRegistry(chall, eval, sink, []byte("test-secret"), testTunables())
}
