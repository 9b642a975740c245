package challsrvc

import (
	"fmt"
	"net/http"

	"github.com/codeclash/backend/srvcerr"
)

const ErrCodeChallengeNotFound = "challenge_not_found"

func newErrChallengeNotFound() *srvcerr.Error {
	return srvcerr.New(
		ErrCodeChallengeNotFound,
		"challenge was not found",
	).SetHttpStatusCode(http.StatusNotFound)
}

const ErrCodeChallengeExists = "challenge_exists"

func newErrChallengeExists(id string) *srvcerr.Error {
	return srvcerr.New(
		ErrCodeChallengeExists,
		fmt.Sprintf("challenge %s already exists", id),
	).SetHttpStatusCode(http.StatusConflict)
}

const ErrCodeInvalidChallenge = "invalid_challenge"

func newErrInvalidChallenge(reason string) *srvcerr.Error {
	return srvcerr.New(
		ErrCodeInvalidChallenge,
		fmt.Sprintf("challenge payload is invalid: %s", reason),
	).SetHttpStatusCode(http.StatusBadRequest)
}

const ErrCodeGeneratorUnavailable = "generator_unavailable"

func newErrGeneratorUnavailable() *srvcerr.Error {
	return srvcerr.New(
		ErrCodeGeneratorUnavailable,
		"challenge generator is unavailable",
	).SetHttpStatusCode(http.StatusBadGateway)
}
