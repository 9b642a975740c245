package challsrvc

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/codeclash/backend/srvcerr"
	"github.com/gosimple/slug"
)

const defaultMaxScore = 100
const excerptLen = 200

// StoreChallenge validates and persists a challenge. The canonical
// store write is authoritative; mirroring into the similarity index is
// best-effort. A duplicate id returns a challenge_exists error that
// callers may treat as non-fatal.
func (s *ChallengeSrvc) StoreChallenge(ctx context.Context, in *ChallengeInput) (*Challenge, error) {
	if verr := validateInput(in); verr != nil {
		return nil, verr
	}

	maxScore := in.MaxScore
	if maxScore == 0 {
		maxScore = defaultMaxScore
	}

	var vector []float32
	if s.embed != nil {
		var err error
		vector, err = s.embed.Embed(ctx, in.Title+"\n\n"+in.Description)
		if err != nil {
			// canonical persistence does not depend on the embedding;
			// the challenge just stays invisible to similarity search
			s.logger.Warn("embedding failed for new challenge", "title", in.Title, "error", err)
			vector = nil
		}
	}

	now := time.Now().UTC()
	ch := &Challenge{
		ID:           slug.Make(in.Title),
		Title:        in.Title,
		Description:  in.Description,
		Topic:        in.Topic,
		Difficulty:   in.Difficulty,
		Templates:    in.Templates,
		Examples:     in.Examples,
		Constraints:  in.Constraints,
		TestCases:    in.TestCases,
		FunctionName: in.FunctionName,
		MaxScore:     maxScore,
		Embedding:    vector,
		LastUsedAt:   now,
		CreatedAt:    now,
	}

	if err := s.repo.Insert(ctx, ch); err != nil {
		return nil, err
	}

	s.mirrorToIndex(ctx, ch)
	return ch, nil
}

// GenerateChallenge asks the generator for fresh content and persists
// it. If the generated title collides with an existing challenge the
// existing record is returned instead.
func (s *ChallengeSrvc) GenerateChallenge(ctx context.Context, topic, difficulty string) (*Challenge, error) {
	if s.gen == nil {
		return nil, newErrGeneratorUnavailable()
	}
	in, err := s.gen.Generate(ctx, topic, difficulty)
	if err != nil {
		return nil, newErrGeneratorUnavailable().SetDebug(err)
	}
	ch, err := s.StoreChallenge(ctx, in)
	if err != nil {
		var serr *srvcerr.Error
		if errors.As(err, &serr) && serr.ErrorCode() == ErrCodeChallengeExists {
			return s.repo.Get(ctx, slug.Make(in.Title))
		}
		return nil, err
	}
	return ch, nil
}

// MarkSolved idempotently records that identityKey solved the
// challenge. The canonical store write must succeed; propagating the
// refreshed solved-set into the index is best-effort.
func (s *ChallengeSrvc) MarkSolved(ctx context.Context, challengeID, identityKey string) error {
	if err := s.repo.AddSolved(ctx, challengeID, identityKey); err != nil {
		return fmt.Errorf("failed to mark challenge solved: %w", err)
	}
	if s.index == nil || !s.index.Available() {
		return nil
	}
	ch, err := s.repo.Get(ctx, challengeID)
	if err != nil {
		s.logger.Warn("mark-solved index refresh skipped", "id", challengeID, "error", err)
		return nil
	}
	md := IndexMetadata{
		Topic:      ch.Topic,
		Difficulty: ch.Difficulty,
		SolvedBy:   slices.Clone(ch.SolvedBy),
		UsageCount: ch.UsageCount,
		LastUsedAt: time.Now().UTC().Unix(),
	}
	if err := s.index.Update(ctx, challengeID, md); err != nil {
		s.logger.Warn("mark-solved index update failed", "id", challengeID, "error", err)
	}
	return nil
}

func (s *ChallengeSrvc) mirrorToIndex(ctx context.Context, ch *Challenge) {
	if s.index == nil || !s.index.Available() || len(ch.Embedding) == 0 {
		return
	}
	md := IndexMetadata{
		Topic:      ch.Topic,
		Difficulty: ch.Difficulty,
		SolvedBy:   slices.Clone(ch.SolvedBy),
		Excerpt:    excerpt(ch.Title + ": " + ch.Description),
		UsageCount: ch.UsageCount,
		LastUsedAt: ch.LastUsedAt.Unix(),
	}
	if err := s.index.Upsert(ctx, ch.ID, ch.Embedding, md); err != nil {
		s.logger.Warn("index mirror failed", "id", ch.ID, "error", err)
	}
}

func excerpt(text string) string {
	if len(text) <= excerptLen {
		return text
	}
	return text[:excerptLen]
}
