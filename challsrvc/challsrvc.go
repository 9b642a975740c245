package challsrvc

import (
	"context"
	"log/slog"

	"github.com/codeclash/backend/conf"
)

// ChallengeRepo is the durable challenge store boundary.
type ChallengeRepo interface {
	// Insert persists a new canonical record. A duplicate id yields an
	// error with code ErrCodeChallengeExists.
	Insert(ctx context.Context, ch *Challenge) error
	Get(ctx context.Context, id string) (*Challenge, error)
	// FindUnsolvedLRU returns the least-recently-used challenge for
	// (topic, difficulty) not yet solved by identityKey, or nil.
	FindUnsolvedLRU(ctx context.Context, topic, difficulty, identityKey string) (*Challenge, error)
	// TouchUsage atomically increments the usage counter and refreshes
	// the last-used timestamp.
	TouchUsage(ctx context.Context, id string) error
	// AddSolved idempotently appends identityKey to the solved-set.
	AddSolved(ctx context.Context, id string, identityKey string) error
}

// VectorIndex is the similarity index boundary. Implementations must
// tolerate a degraded mode: when Available reports false the retrieval
// path bypasses the index entirely.
type VectorIndex interface {
	Available() bool
	Upsert(ctx context.Context, id string, vector []float32, md IndexMetadata) error
	Query(ctx context.Context, vector []float32, topK int, filter IndexFilter) ([]IndexMatch, error)
	Update(ctx context.Context, id string, md IndexMetadata) error
}

// IndexMetadata is the condensed projection mirrored into the index.
type IndexMetadata struct {
	Topic      string   `json:"topic"`
	Difficulty string   `json:"difficulty"`
	SolvedBy   []string `json:"solvedBy"`
	Excerpt    string   `json:"excerpt"`
	UsageCount int      `json:"usageCount"`
	LastUsedAt int64    `json:"lastUsedAt"` // unix seconds
}

type IndexFilter struct {
	Topic       string
	Difficulty  string
	NotSolvedBy string
}

type IndexMatch struct {
	ID       string
	Score    float64
	Metadata IndexMetadata
}

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces brand-new challenge content.
type Generator interface {
	Generate(ctx context.Context, topic, difficulty string) (*ChallengeInput, error)
}

type ChallengeSrvc struct {
	logger *slog.Logger

	repo  ChallengeRepo
	index VectorIndex
	embed Embedder
	gen   Generator

	tun conf.Tunables
}

func NewChallengeSrvc(
	repo ChallengeRepo,
	index VectorIndex,
	embed Embedder,
	gen Generator,
	tun conf.Tunables,
) *ChallengeSrvc {
	return &ChallengeSrvc{
		logger: slog.Default().With("module", "chall"),
		repo:   repo,
		index:  index,
		embed:  embed,
		gen:    gen,
		tun:    tun,
	}
}
