package challsrvc

import (
	"context"
	"fmt"
	"math"
	"slices"
)

const indexTopK = 3

// GetUnsolvedChallenge picks a challenge for (topic, difficulty) that
// identityKey has not solved yet. It tries the similarity index first
// and falls back to a least-recently-used lookup in the durable store.
// Index or embedding failures degrade to the fallback instead of
// failing the round.
func (s *ChallengeSrvc) GetUnsolvedChallenge(ctx context.Context, identityKey, topic, difficulty string) (Retrieval, error) {
	if s.index != nil && s.index.Available() && s.embed != nil {
		r, ok := s.retrieveFromIndex(ctx, identityKey, topic, difficulty)
		if ok {
			return r, nil
		}
	}
	return s.retrieveFromStore(ctx, identityKey, topic, difficulty)
}

func (s *ChallengeSrvc) retrieveFromIndex(ctx context.Context, identityKey, topic, difficulty string) (Retrieval, bool) {
	query := syntheticQuery(topic, difficulty)
	vector, err := s.embed.Embed(ctx, query)
	if err != nil {
		s.logger.Warn("embedding failed, falling back to store",
			"topic", topic, "error", err)
		return Retrieval{}, false
	}

	matches, err := s.index.Query(ctx, vector, indexTopK, IndexFilter{
		Topic:       topic,
		Difficulty:  difficulty,
		NotSolvedBy: identityKey,
	})
	if err != nil {
		s.logger.Warn("index query failed, falling back to store",
			"topic", topic, "error", err)
		return Retrieval{}, false
	}

	threshold := s.tun.SimilarityThreshold(difficulty)
	candidates := matches[:0]
	for _, m := range matches {
		if m.Score > threshold {
			candidates = append(candidates, m)
		}
	}

	ranked := rankCandidates(candidates, s.tun.FreshnessEpsilon)
	for _, m := range ranked {
		ch, err := s.repo.Get(ctx, m.ID)
		if err != nil {
			s.logger.Warn("index match missing in store", "id", m.ID, "error", err)
			continue
		}
		// index metadata may be stale; re-check against the canonical
		// solved-set before handing the challenge out
		if slices.Contains(ch.SolvedBy, identityKey) {
			continue
		}
		if err := s.repo.TouchUsage(ctx, ch.ID); err != nil {
			s.logger.Warn("failed to touch usage", "id", ch.ID, "error", err)
		}
		return Retrieval{
			Found:      true,
			Challenge:  ch,
			Similarity: m.Score,
			Source:     SourceCache,
		}, true
	}
	return Retrieval{}, false
}

func (s *ChallengeSrvc) retrieveFromStore(ctx context.Context, identityKey, topic, difficulty string) (Retrieval, error) {
	ch, err := s.repo.FindUnsolvedLRU(ctx, topic, difficulty, identityKey)
	if err != nil {
		return Retrieval{Source: SourceNone}, fmt.Errorf("store fallback failed: %w", err)
	}
	if ch == nil {
		return Retrieval{Found: false, Source: SourceNone}, nil
	}
	if err := s.repo.TouchUsage(ctx, ch.ID); err != nil {
		s.logger.Warn("failed to touch usage", "id", ch.ID, "error", err)
	}
	return Retrieval{Found: true, Challenge: ch, Source: SourceFallback}, nil
}

// rankCandidates orders matches by similarity descending, except that
// when two scores differ by less than epsilon the more recently used
// candidate wins. Freshness beating a marginal similarity delta is
// intentional, not a defect.
func rankCandidates(matches []IndexMatch, epsilon float64) []IndexMatch {
	ranked := slices.Clone(matches)
	slices.SortStableFunc(ranked, func(a, b IndexMatch) int {
		if math.Abs(a.Score-b.Score) < epsilon {
			switch {
			case a.Metadata.LastUsedAt > b.Metadata.LastUsedAt:
				return -1
			case a.Metadata.LastUsedAt < b.Metadata.LastUsedAt:
				return 1
			}
			return 0
		}
		if a.Score > b.Score {
			return -1
		}
		return 1
	})
	return ranked
}

func syntheticQuery(topic, difficulty string) string {
	return fmt.Sprintf("%s coding challenge %s difficulty algorithm data structures", topic, difficulty)
}
