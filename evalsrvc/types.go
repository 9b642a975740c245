package evalsrvc

import (
	"github.com/codeclash/backend/challsrvc"
)

// Status is the terminal outcome of an evaluation.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusError    Status = "error"
)

// Request describes one submission to evaluate.
type Request struct {
	SubmissionID string
	Language     string
	Code         string
	FunctionName string
	TestCases    []challsrvc.TestCase
}

// TestResult is the outcome of a single test case.
type TestResult struct {
	Index         int    `json:"index"`
	Passed        bool   `json:"passed"`
	StatusDesc    string `json:"statusDesc"`
	Expected      string `json:"expected"`
	Actual        string `json:"actual"`
	Stderr        string `json:"stderr,omitempty"`
	CompileOutput string `json:"compileOutput,omitempty"`
}

// Result is delivered exactly once per submission. Infrastructure
// failures surface as StatusError with empty results rather than as a
// panic or a dropped evaluation.
type Result struct {
	Status      Status
	Score       int
	TestResults []TestResult
	ErrMsg      string
}

func errorResult(msg string) Result {
	return Result{Status: StatusError, Score: 0, ErrMsg: msg}
}
