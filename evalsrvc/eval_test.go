package evalsrvc

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/codeclash/backend/challsrvc"
	"github.com/codeclash/backend/conf"
)

// fakeExecClient answers SubmitBatch with sequential tokens and replays
// a scripted sequence of FetchBatch responses; the last entry repeats.
type fakeExecClient struct {
	submitErr error
	fetches   [][]ExecResult
	fetchCnt  int
	submitted []BatchItem
}

func (f *fakeExecClient) SubmitBatch(ctx context.Context, items []BatchItem) ([]string, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitted = items
	tokens := make([]string, len(items))
	for i := range items {
		tokens[i] = fmt.Sprintf("tok-%d", i)
	}
	return tokens, nil
}

func (f *fakeExecClient) FetchBatch(ctx context.Context, tokens []string) ([]ExecResult, error) {
	idx := f.fetchCnt
	if idx >= len(f.fetches) {
		idx = len(f.fetches) - 1
	}
	f.fetchCnt++
	return f.fetches[idx], nil
}

func acceptedRun(stdout string) ExecResult {
	return ExecResult{
		Status: ExecStatus{ID: 3, Description: "Accepted"},
		Stdout: stdout,
	}
}

func testCases(n int) []challsrvc.TestCase {
	out := make([]challsrvc.TestCase, n)
	for i := range out {
		out[i] = challsrvc.TestCase{
			Input: challsrvc.ArgList{
				{Name: "a", Value: json.RawMessage(fmt.Sprintf("%d", i))},
				{Name: "b", Value: json.RawMessage("2")},
			},
			Output: json.RawMessage(fmt.Sprintf("%d", i+2)),
		}
	}
	return out
}

func testRequest(n int) Request {
	return Request{
		SubmissionID: "subm-1",
		Language:     "python",
		Code:         "def add(a, b):\n    return a + b\n",
		FunctionName: "add",
		TestCases:    testCases(n),
	}
}

// evaluate runs Evaluate against a fake clock, feeding the poller's
// timers until the result arrives.
func evaluate(t *testing.T, client ExecClient, req Request) Result {
	t.Helper()
	fc := clockwork.NewFakeClock()
	srvc := NewEvalSrvc(client, conf.DefaultTunables())
	srvc.clock = fc

	done := make(chan Result, 1)
	go func() {
		done <- srvc.Evaluate(context.Background(), req)
	}()

	for {
		select {
		case res := <-done:
			return res
		default:
		}
		waitCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		if err := fc.BlockUntilContext(waitCtx, 1); err == nil {
			fc.Advance(time.Minute)
		}
		cancel()
	}
}

func TestAllTestsPassingScoresFull(t *testing.T) {
	client := &fakeExecClient{fetches: [][]ExecResult{{
		acceptedRun("2\n"), acceptedRun("3\n"), acceptedRun("4\n"),
		acceptedRun("5\n"), acceptedRun("6\n"),
	}}}

	res := evaluate(t, client, testRequest(5))
	require.Equal(t, StatusAccepted, res.Status)
	require.Equal(t, 100, res.Score)
	require.Len(t, res.TestResults, 5)
	for _, tr := range res.TestResults {
		require.True(t, tr.Passed)
	}
}

func TestPartialPassScoresProportionally(t *testing.T) {
	// three of five correct, fourth wrong output, fifth runtime error
	client := &fakeExecClient{fetches: [][]ExecResult{{
		acceptedRun("2\n"), acceptedRun("3\n"), acceptedRun("4\n"),
		acceptedRun("999\n"),
		{Status: ExecStatus{ID: 11, Description: "Runtime Error (NZEC)"}, Stderr: "boom"},
	}}}

	res := evaluate(t, client, testRequest(5))
	require.Equal(t, StatusRejected, res.Status)
	require.Equal(t, 30, res.Score)
	require.False(t, res.TestResults[3].Passed)
	require.Equal(t, "boom", res.TestResults[4].Stderr)
}

func TestNoTestsPassingScoresZero(t *testing.T) {
	client := &fakeExecClient{fetches: [][]ExecResult{{
		acceptedRun("x"), acceptedRun("x"), acceptedRun("x"),
		acceptedRun("x"), acceptedRun("x"),
	}}}

	res := evaluate(t, client, testRequest(5))
	require.Equal(t, StatusRejected, res.Status)
	require.Equal(t, 0, res.Score)
}

func TestPollingKeepsGoingUntilTerminal(t *testing.T) {
	running := []ExecResult{{Status: ExecStatus{ID: 2, Description: "Processing"}}}
	client := &fakeExecClient{fetches: [][]ExecResult{
		running,
		running,
		{acceptedRun("2\n")},
	}}

	res := evaluate(t, client, testRequest(1))
	require.Equal(t, StatusAccepted, res.Status)
	require.Equal(t, 3, client.fetchCnt)
}

func TestPollingBudgetExhaustedIsAnError(t *testing.T) {
	running := []ExecResult{{Status: ExecStatus{ID: 1, Description: "In Queue"}}}
	client := &fakeExecClient{fetches: [][]ExecResult{running}}

	res := evaluate(t, client, testRequest(1))
	require.Equal(t, StatusError, res.Status)
	require.Equal(t, 0, res.Score)
	require.Empty(t, res.TestResults)
	require.Contains(t, res.ErrMsg, "did not arrive in time")
}

func TestUnsupportedLanguageShortCircuits(t *testing.T) {
	client := &fakeExecClient{}
	req := testRequest(1)
	req.Language = "cobol"

	res := evaluate(t, client, req)
	require.Equal(t, StatusError, res.Status)
	require.Contains(t, res.ErrMsg, "not supported")
	require.Zero(t, client.fetchCnt)
	require.Empty(t, client.submitted)
}

func TestMissingExecClientIsAnErrorResult(t *testing.T) {
	srvc := NewEvalSrvc(nil, conf.DefaultTunables())
	res := srvc.Evaluate(context.Background(), testRequest(1))
	require.Equal(t, StatusError, res.Status)
	require.Contains(t, res.ErrMsg, "not configured")
}

func TestSubmitFailureIsAnErrorResult(t *testing.T) {
	client := &fakeExecClient{submitErr: fmt.Errorf("connection refused")}
	res := evaluate(t, client, testRequest(1))
	require.Equal(t, StatusError, res.Status)
	require.Contains(t, res.ErrMsg, "failed to submit")
}

func TestHarnessPassesArgsInDeclaredOrder(t *testing.T) {
	tc := challsrvc.TestCase{
		Input: challsrvc.ArgList{
			{Name: "haystack", Value: json.RawMessage(`[3,1,2]`)},
			{Name: "needle", Value: json.RawMessage(`2`)},
		},
		Output: json.RawMessage("1"),
	}

	source, err := wrapTestCase(harnesses["python"], "def find(h, n):\n    return h.index(n)\n", "find", tc)
	require.NoError(t, err)
	require.Contains(t, source, `[[3,1,2],2]`)
	require.Contains(t, source, "find(*_args)")

	jsSource, err := wrapTestCase(harnesses["javascript"], "function find(h, n) { return h.indexOf(n); }", "find", tc)
	require.NoError(t, err)
	require.Contains(t, jsSource, "find(..._args)")
}

func TestHarnessQuotesAstralArgsPortably(t *testing.T) {
	tc := challsrvc.TestCase{
		Input: challsrvc.ArgList{
			{Name: "word", Value: json.RawMessage(`"😀"`)},
		},
		Output: json.RawMessage(`1`),
	}

	for _, lang := range []string{"python", "javascript", "typescript"} {
		source, err := wrapTestCase(harnesses[lang], "", "measure", tc)
		require.NoError(t, err)
		// \U escapes are not string escapes in javascript or typescript
		require.NotContains(t, source, `\U0001F600`, lang)
		require.Contains(t, source, "😀", lang)
	}
}

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"42\n", "42"},
		{`  "hello"  `, `"hello"`},
		{"[1, 2,   3]", "[1,2,3]"},
		{`{"b": 1, "a": 2}`, `{"a":2,"b":1}`},
		{"true", "true"},
		{"'raw-single-quoted'", "raw-single-quoted"},
		{"not json at all", "not json at all"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, Canonicalize(c.in), "input %q", c.in)
	}
}
