package challsrvc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/codeclash/backend/conf"
	"github.com/codeclash/backend/srvcerr"
	"github.com/stretchr/testify/require"
)

func validInput() *ChallengeInput {
	tcs := make([]TestCase, 5)
	for i := range tcs {
		tcs[i] = TestCase{
			Input:  ArgList{{Name: "nums", Value: json.RawMessage(`[1,2,3]`)}},
			Output: json.RawMessage(`6`),
		}
	}
	return &ChallengeInput{
		Title:        "Sum of Array",
		Description:  "Given an array of integers, return their sum.",
		Topic:        "arrays",
		Difficulty:   "easy",
		Examples:     []Example{{Input: "nums = [1,2,3]", Output: "6"}},
		Constraints:  []string{"1 <= nums.length <= 1000"},
		Templates:    map[string]string{"python": "def sum_array(nums):\n    pass"},
		TestCases:    tcs,
		FunctionName: "sum_array",
	}
}

func TestStoreChallengeValidation(t *testing.T) {
	srvc := newTestSrvc(newFakeRepo(), &fakeIndex{}, &fakeEmbedder{})

	cases := []struct {
		name   string
		mutate func(*ChallengeInput)
	}{
		{"empty title", func(in *ChallengeInput) { in.Title = " " }},
		{"empty description", func(in *ChallengeInput) { in.Description = "" }},
		{"empty topic", func(in *ChallengeInput) { in.Topic = "" }},
		{"empty templates", func(in *ChallengeInput) { in.Templates = nil }},
		{"too few test cases", func(in *ChallengeInput) { in.TestCases = in.TestCases[:2] }},
		{"empty function name", func(in *ChallengeInput) { in.FunctionName = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(in)
			_, err := srvc.StoreChallenge(context.Background(), in)
			var serr *srvcerr.Error
			require.ErrorAs(t, err, &serr)
			require.Equal(t, ErrCodeInvalidChallenge, serr.ErrorCode())
		})
	}
}

func TestStoreChallengePersistsAndMirrors(t *testing.T) {
	repo := newFakeRepo()
	index := &fakeIndex{available: true}
	srvc := newTestSrvc(repo, index, &fakeEmbedder{})

	ch, err := srvc.StoreChallenge(context.Background(), validInput())
	require.NoError(t, err)
	require.Equal(t, "sum-of-array", ch.ID)
	require.Equal(t, 100, ch.MaxScore)

	stored, err := repo.Get(context.Background(), ch.ID)
	require.NoError(t, err)
	require.Equal(t, "sum_array", stored.FunctionName)
	require.Equal(t, []string{"sum-of-array"}, index.upserts)
}

func TestStoreChallengeDuplicateIsNonFatal(t *testing.T) {
	repo := newFakeRepo()
	srvc := newTestSrvc(repo, &fakeIndex{}, &fakeEmbedder{})

	_, err := srvc.StoreChallenge(context.Background(), validInput())
	require.NoError(t, err)

	_, err = srvc.StoreChallenge(context.Background(), validInput())
	var serr *srvcerr.Error
	require.ErrorAs(t, err, &serr)
	require.Equal(t, ErrCodeChallengeExists, serr.ErrorCode())
}

func TestStoreChallengeSurvivesEmbeddingOutage(t *testing.T) {
	repo := newFakeRepo()
	index := &fakeIndex{available: true}
	srvc := newTestSrvc(repo, index, &fakeEmbedder{err: errors.New("down")})

	ch, err := srvc.StoreChallenge(context.Background(), validInput())
	require.NoError(t, err)
	require.Empty(t, ch.Embedding)
	// without a vector there is nothing to mirror
	require.Empty(t, index.upserts)
}

func TestGenerateChallengeReusesExistingOnCollision(t *testing.T) {
	repo := newFakeRepo()
	gen := &fakeGenerator{input: validInput()}
	srvc := NewChallengeSrvc(repo, &fakeIndex{}, &fakeEmbedder{}, gen, conf.DefaultTunables())

	first, err := srvc.GenerateChallenge(context.Background(), "arrays", "easy")
	require.NoError(t, err)

	second, err := srvc.GenerateChallenge(context.Background(), "arrays", "easy")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 2, gen.calls)
}

func TestMarkSolvedIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	index := &fakeIndex{available: true}
	srvc := newTestSrvc(repo, index, &fakeEmbedder{})

	require.NoError(t, repo.Insert(context.Background(), testChallenge("twice", "arrays", "easy", time.Now())))

	require.NoError(t, srvc.MarkSolved(context.Background(), "twice", "grace@example.com"))
	require.NoError(t, srvc.MarkSolved(context.Background(), "twice", "grace@example.com"))

	ch, err := repo.Get(context.Background(), "twice")
	require.NoError(t, err)
	require.Len(t, ch.SolvedBy, 1)
	// index propagation is attempted each time, best-effort
	require.Len(t, index.updates, 2)
}

func TestArgListPreservesDeclaredKeyOrder(t *testing.T) {
	var tc TestCase
	err := json.Unmarshal([]byte(`{"input":{"b":2,"a":1,"c":3},"output":6}`), &tc)
	require.NoError(t, err)
	require.Len(t, tc.Input, 3)
	require.Equal(t, "b", tc.Input[0].Name)
	require.Equal(t, "a", tc.Input[1].Name)
	require.Equal(t, "c", tc.Input[2].Name)

	round, err := json.Marshal(tc.Input)
	require.NoError(t, err)
	require.JSONEq(t, `{"b":2,"a":1,"c":3}`, string(round))
}
