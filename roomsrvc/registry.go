package roomsrvc

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/singleflight"

	"github.com/codeclash/backend/challsrvc"
	"github.com/codeclash/backend/conf"
	"github.com/codeclash/backend/evalsrvc"
)

// ChallengeSource provides challenges for new rounds.
type ChallengeSource interface {
	GetUnsolvedChallenge(ctx context.Context, identityKey, topic, difficulty string) (challsrvc.Retrieval, error)
	GenerateChallenge(ctx context.Context, topic, difficulty string) (*challsrvc.Challenge, error)
	MarkSolved(ctx context.Context, challengeID, identityKey string) error
}

// Evaluator runs one submission to a terminal result.
type Evaluator interface {
	Evaluate(ctx context.Context, req evalsrvc.Request) evalsrvc.Result
}

// RoundOutcome is pushed to the stats sink when a room ends.
type RoundOutcome struct {
	RoomID       string
	ChallengeIDs []string
	Results      []ParticipantOutcome
}

type ParticipantOutcome struct {
	IdentityKey  string
	Won          bool
	RatingChange int
	SolvedIDs    []string
}

// StatSink receives round outcomes; implementations are best-effort
// and must never block round termination.
type StatSink interface {
	PushRoundOutcome(ctx context.Context, outcome RoundOutcome)
}

type connBinding struct {
	roomID        string
	participantID string
}

// Registry is the single owned index of rooms and live connections,
// constructed once per process and passed into handlers explicitly.
type Registry struct {
	logger *slog.Logger

	rooms  *xsync.MapOf[string, *Room]
	conns  *xsync.MapOf[string, connBinding] // connection id -> participant
	tokens *xsync.MapOf[string, connBinding] // session token -> participant

	chall ChallengeSource
	eval  Evaluator
	sink  StatSink

	tun       conf.Tunables
	clock     clockwork.Clock
	jwtSecret []byte

	// a second concurrent generate for the same room shares the first
	// call's round instead of racing it
	genGroup singleflight.Group
}

func NewRegistry(chall ChallengeSource, eval Evaluator, sink StatSink, jwtSecret []byte, tun conf.Tunables) *Registry {
	return &Registry{
		logger:    slog.Default().With("module", "room"),
		rooms:     xsync.NewMapOf[string, *Room](),
		conns:     xsync.NewMapOf[string, connBinding](),
		tokens:    xsync.NewMapOf[string, connBinding](),
		chall:     chall,
		eval:      eval,
		sink:      sink,
		tun:       tun,
		clock:     clockwork.NewRealClock(),
		jwtSecret: jwtSecret,
	}
}

// SetClock replaces the wall clock, for deterministic sweeping in tests.
func (r *Registry) SetClock(c clockwork.Clock) {
	r.clock = c
}

func (r *Registry) room(roomID string) (*Room, bool) {
	return r.rooms.Load(roomID)
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
