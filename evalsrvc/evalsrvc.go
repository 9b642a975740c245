package evalsrvc

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/jonboulle/clockwork"

	"github.com/codeclash/backend/conf"
)

const (
	fullScore        = 100
	partialScoreBase = 50
)

// EvalSrvc runs submissions against a challenge's test cases on the
// external execution service and scores the outcome.
type EvalSrvc struct {
	logger *slog.Logger
	client ExecClient
	clock  clockwork.Clock
	tun    conf.Tunables
}

func NewEvalSrvc(client ExecClient, tun conf.Tunables) *EvalSrvc {
	return &EvalSrvc{
		logger: slog.Default().With("module", "eval"),
		client: client,
		clock:  clockwork.NewRealClock(),
		tun:    tun,
	}
}

// Evaluate runs one submission to completion. It never returns an
// error: infrastructure failures come back as a StatusError result so
// the caller always has exactly one terminal outcome to record.
func (e *EvalSrvc) Evaluate(ctx context.Context, req Request) Result {
	logger := e.logger.With("submission_id", req.SubmissionID, "language", req.Language)

	if !IsSupportedLanguage(req.Language) {
		logger.Warn("unsupported language submitted")
		return errorResult(fmt.Sprintf("language %s is not supported", req.Language))
	}
	if e.client == nil {
		logger.Error("evaluation requested without an execution client")
		return errorResult("execution service is not configured")
	}
	if len(req.TestCases) == 0 {
		return errorResult("challenge has no test cases")
	}

	h := harnesses[req.Language]
	items := make([]BatchItem, len(req.TestCases))
	expected := make([]string, len(req.TestCases))
	for i, tc := range req.TestCases {
		source, err := wrapTestCase(h, req.Code, req.FunctionName, tc)
		if err != nil {
			return errorResult(fmt.Sprintf("failed to prepare test case %d: %v", i, err))
		}
		expected[i] = Canonicalize(string(tc.Output))
		items[i] = BatchItem{
			LanguageID:     h.execLangID,
			SourceCode:     source,
			ExpectedOutput: expected[i],
		}
	}

	tokens, err := e.client.SubmitBatch(ctx, items)
	if err != nil {
		logger.Error("failed to submit batch", "error", err)
		return errorResult("failed to submit programs for execution")
	}
	logger.Info("batch dispatched", "programs", len(tokens))

	p := &poller{
		client:       e.client,
		clock:        e.clock,
		initialDelay: e.tun.PollInitialDelay,
		multiplier:   e.tun.PollMultiplier,
		maxDelay:     e.tun.PollMaxDelay,
		maxRounds:    e.tun.PollMaxRounds,
	}
	fetched, err := p.run(ctx, tokens)
	if err != nil {
		logger.Error("polling failed", "error", err)
		return errorResult("execution results did not arrive in time")
	}

	result := e.score(fetched, expected)
	logger.Info("evaluation finished",
		"status", result.Status, "score", result.Score)
	return result
}

func (e *EvalSrvc) score(fetched []ExecResult, expected []string) Result {
	results := make([]TestResult, len(fetched))
	passed := 0
	for i, r := range fetched {
		actual := Canonicalize(r.Stdout)
		ok := r.Status.Success() && actual == expected[i]
		if ok {
			passed++
		}
		results[i] = TestResult{
			Index:         i,
			Passed:        ok,
			StatusDesc:    r.Status.Description,
			Expected:      expected[i],
			Actual:        actual,
			Stderr:        r.Stderr,
			CompileOutput: r.CompileOutput,
		}
	}

	if passed == len(fetched) {
		return Result{Status: StatusAccepted, Score: fullScore, TestResults: results}
	}
	score := int(math.Round(partialScoreBase * float64(passed) / float64(len(fetched))))
	return Result{Status: StatusRejected, Score: score, TestResults: results}
}
