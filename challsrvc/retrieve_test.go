package challsrvc

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/codeclash/backend/conf"
	"github.com/stretchr/testify/require"
)

func testChallenge(id, topic, difficulty string, lastUsed time.Time) *Challenge {
	return &Challenge{
		ID:           id,
		Title:        id,
		Description:  "desc",
		Topic:        topic,
		Difficulty:   difficulty,
		Templates:    map[string]string{"python": "def f(): pass"},
		TestCases:    make([]TestCase, 5),
		FunctionName: "f",
		MaxScore:     100,
		LastUsedAt:   lastUsed,
	}
}

func newTestSrvc(repo ChallengeRepo, index VectorIndex, embed Embedder) *ChallengeSrvc {
	return NewChallengeSrvc(repo, index, embed, nil, conf.DefaultTunables())
}

func TestFreshnessWinsOverMarginalSimilarity(t *testing.T) {
	t1 := time.Now().Add(-48 * time.Hour)
	t2 := time.Now().Add(-1 * time.Hour) // more recent

	repo := newFakeRepo()
	require.NoError(t, repo.Insert(context.Background(), testChallenge("older", "arrays", "easy", t1)))
	require.NoError(t, repo.Insert(context.Background(), testChallenge("fresher", "arrays", "easy", t2)))

	index := &fakeIndex{
		available: true,
		matches: []IndexMatch{
			{ID: "older", Score: 0.80, Metadata: IndexMetadata{LastUsedAt: t1.Unix()}},
			{ID: "fresher", Score: 0.78, Metadata: IndexMetadata{LastUsedAt: t2.Unix()}},
		},
	}

	srvc := newTestSrvc(repo, index, &fakeEmbedder{})
	res, err := srvc.GetUnsolvedChallenge(context.Background(), "alice@example.com", "arrays", "easy")
	require.NoError(t, err)
	require.True(t, res.Found)
	require.Equal(t, SourceCache, res.Source)
	// 0.80 vs 0.78 is within the 0.05 epsilon: the fresher candidate wins
	require.Equal(t, "fresher", res.Challenge.ID)
	require.InDelta(t, 0.78, res.Similarity, 1e-9)
}

func TestClearSimilarityGapIgnoresFreshness(t *testing.T) {
	t1 := time.Now().Add(-48 * time.Hour)
	t2 := time.Now().Add(-1 * time.Hour)

	repo := newFakeRepo()
	require.NoError(t, repo.Insert(context.Background(), testChallenge("strong", "arrays", "easy", t1)))
	require.NoError(t, repo.Insert(context.Background(), testChallenge("fresh", "arrays", "easy", t2)))

	index := &fakeIndex{
		available: true,
		matches: []IndexMatch{
			{ID: "strong", Score: 0.92, Metadata: IndexMetadata{LastUsedAt: t1.Unix()}},
			{ID: "fresh", Score: 0.78, Metadata: IndexMetadata{LastUsedAt: t2.Unix()}},
		},
	}

	srvc := newTestSrvc(repo, index, &fakeEmbedder{})
	res, err := srvc.GetUnsolvedChallenge(context.Background(), "alice@example.com", "arrays", "easy")
	require.NoError(t, err)
	require.Equal(t, "strong", res.Challenge.ID)
}

func TestThresholdDiscardsWeakMatches(t *testing.T) {
	repo := newFakeRepo()
	require.NoError(t, repo.Insert(context.Background(), testChallenge("weak", "graphs", "hard", time.Now())))

	index := &fakeIndex{
		available: true,
		matches: []IndexMatch{
			// default threshold for "hard" falls through to the global 0.70
			{ID: "weak", Score: 0.70},
		},
	}

	srvc := newTestSrvc(repo, index, &fakeEmbedder{})
	res, err := srvc.GetUnsolvedChallenge(context.Background(), "bob@example.com", "graphs", "hard")
	require.NoError(t, err)
	// at-threshold score is discarded; the same challenge then arrives
	// through the store fallback
	require.True(t, res.Found)
	require.Equal(t, SourceFallback, res.Source)
	require.Equal(t, "weak", res.Challenge.ID)
}

func TestIndexUnavailableFallsBackToLRU(t *testing.T) {
	repo := newFakeRepo()
	old := testChallenge("used-long-ago", "strings", "medium", time.Now().Add(-72*time.Hour))
	recent := testChallenge("used-recently", "strings", "medium", time.Now().Add(-1*time.Hour))
	require.NoError(t, repo.Insert(context.Background(), old))
	require.NoError(t, repo.Insert(context.Background(), recent))

	srvc := newTestSrvc(repo, &fakeIndex{available: false}, &fakeEmbedder{})
	res, err := srvc.GetUnsolvedChallenge(context.Background(), "carol@example.com", "strings", "medium")
	require.NoError(t, err)
	require.True(t, res.Found)
	require.Equal(t, SourceFallback, res.Source)
	require.Equal(t, "used-long-ago", res.Challenge.ID)

	// usage bookkeeping happened on the way out
	got, err := repo.Get(context.Background(), "used-long-ago")
	require.NoError(t, err)
	require.Equal(t, 1, got.UsageCount)
}

func TestNoUnsolvedChallengeAnywhere(t *testing.T) {
	repo := newFakeRepo()
	solved := testChallenge("done", "dp", "hard", time.Now())
	solved.SolvedBy = []string{"dave@example.com"}
	require.NoError(t, repo.Insert(context.Background(), solved))

	srvc := newTestSrvc(repo, &fakeIndex{available: false}, &fakeEmbedder{})
	res, err := srvc.GetUnsolvedChallenge(context.Background(), "dave@example.com", "dp", "hard")
	require.NoError(t, err)
	require.False(t, res.Found)
	require.Equal(t, SourceNone, res.Source)
}

func TestEmbeddingFailureDegradesToFallback(t *testing.T) {
	repo := newFakeRepo()
	require.NoError(t, repo.Insert(context.Background(), testChallenge("only", "trees", "easy", time.Now())))

	srvc := newTestSrvc(repo, &fakeIndex{available: true}, &fakeEmbedder{err: fmt.Errorf("embed service down")})
	res, err := srvc.GetUnsolvedChallenge(context.Background(), "eve@example.com", "trees", "easy")
	require.NoError(t, err)
	require.Equal(t, SourceFallback, res.Source)
	require.Equal(t, "only", res.Challenge.ID)
}

func TestStaleIndexSolvedSetIsRechecked(t *testing.T) {
	repo := newFakeRepo()
	stale := testChallenge("stale", "arrays", "easy", time.Now())
	stale.SolvedBy = []string{"frank@example.com"}
	fallback := testChallenge("clean", "arrays", "easy", time.Now().Add(-time.Hour))
	require.NoError(t, repo.Insert(context.Background(), stale))
	require.NoError(t, repo.Insert(context.Background(), fallback))

	// the index still thinks "stale" is unsolved by frank
	index := &fakeIndex{
		available: true,
		matches:   []IndexMatch{{ID: "stale", Score: 0.95}},
	}

	srvc := newTestSrvc(repo, index, &fakeEmbedder{})
	res, err := srvc.GetUnsolvedChallenge(context.Background(), "frank@example.com", "arrays", "easy")
	require.NoError(t, err)
	require.True(t, res.Found)
	require.Equal(t, "clean", res.Challenge.ID)
	require.Equal(t, SourceFallback, res.Source)
}
