package challsrvc

import (
	"strings"

	"github.com/codeclash/backend/srvcerr"
)

const minTestCases = 3

// validateInput checks the fields every stored challenge must carry.
// Generated payloads that fail here are rejected before anything is
// persisted.
func validateInput(in *ChallengeInput) *srvcerr.Error {
	if strings.TrimSpace(in.Title) == "" {
		return newErrInvalidChallenge("title is empty")
	}
	if strings.TrimSpace(in.Description) == "" {
		return newErrInvalidChallenge("description is empty")
	}
	if strings.TrimSpace(in.Topic) == "" {
		return newErrInvalidChallenge("topic is empty")
	}
	if strings.TrimSpace(in.Difficulty) == "" {
		return newErrInvalidChallenge("difficulty is empty")
	}
	if len(in.Templates) == 0 {
		return newErrInvalidChallenge("template map is empty")
	}
	if len(in.TestCases) < minTestCases {
		return newErrInvalidChallenge("fewer than 3 test cases")
	}
	for _, tc := range in.TestCases {
		if len(tc.Output) == 0 {
			return newErrInvalidChallenge("test case output is missing")
		}
		if tc.Input == nil {
			return newErrInvalidChallenge("test case input is missing")
		}
	}
	if strings.TrimSpace(in.FunctionName) == "" {
		return newErrInvalidChallenge("function name is empty")
	}
	return nil
}
