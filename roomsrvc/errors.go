package roomsrvc

import (
	"net/http"

	"github.com/codeclash/backend/srvcerr"
)

const ErrCodeRoomNotFound = "room_not_found"

func newErrRoomNotFound() *srvcerr.Error {
	return srvcerr.New(
		ErrCodeRoomNotFound,
		"room was not found",
	).SetHttpStatusCode(http.StatusNotFound)
}

const ErrCodeRoomFull = "room_full"

func newErrRoomFull() *srvcerr.Error {
	return srvcerr.New(
		ErrCodeRoomFull,
		"room is already at capacity",
	).SetHttpStatusCode(http.StatusConflict)
}

const ErrCodeParticipantNotFound = "participant_not_found"

func newErrParticipantNotFound() *srvcerr.Error {
	return srvcerr.New(
		ErrCodeParticipantNotFound,
		"participant was not found in this room",
	).SetHttpStatusCode(http.StatusNotFound)
}

const ErrCodeSubmissionNotFound = "submission_not_found"

func newErrSubmissionNotFound() *srvcerr.Error {
	return srvcerr.New(
		ErrCodeSubmissionNotFound,
		"submission was not found",
	).SetHttpStatusCode(http.StatusNotFound)
}

const ErrCodeUnauthorized = "unauthorized"

func newErrUnauthorized() *srvcerr.Error {
	return srvcerr.New(
		ErrCodeUnauthorized,
		"only the room creator may do that",
	).SetHttpStatusCode(http.StatusForbidden)
}

const ErrCodeNoActiveChallenge = "no_active_challenge"

func newErrNoActiveChallenge() *srvcerr.Error {
	return srvcerr.New(
		ErrCodeNoActiveChallenge,
		"room has no active challenge",
	).SetHttpStatusCode(http.StatusConflict)
}

const ErrCodeRoundUnavailable = "round_unavailable"

func newErrRoundUnavailable() *srvcerr.Error {
	return srvcerr.New(
		ErrCodeRoundUnavailable,
		"no challenge could be retrieved or generated",
	).SetHttpStatusCode(http.StatusBadGateway)
}
