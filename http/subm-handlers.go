package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/codeclash/backend/evalsrvc"
	"github.com/codeclash/backend/logger"
)

func (httpserver *HttpServer) createSubmission(w http.ResponseWriter, r *http.Request) {
	type createSubmissionRequest struct {
		ParticipantID string `json:"participantId"`
		Language      string `json:"language"`
		Code          string `json:"code"`
	}

	var request createSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	subm, err := httpserver.registry.Submit(
		chi.URLParam(r, "roomID"),
		request.ParticipantID,
		request.Language,
		request.Code,
	)
	if err != nil {
		handleJsonSrvcError(logger.FromContext(r.Context()), w, err)
		return
	}
	writeJsonSuccess(w, http.StatusCreated, subm)
}

func (httpserver *HttpServer) getSubmission(w http.ResponseWriter, r *http.Request) {
	subm, err := httpserver.registry.GetSubmission(
		chi.URLParam(r, "roomID"),
		chi.URLParam(r, "submissionID"),
	)
	if err != nil {
		handleJsonSrvcError(logger.FromContext(r.Context()), w, err)
		return
	}
	writeJsonSuccessResponse(w, subm)
}

func (httpserver *HttpServer) listLanguages(w http.ResponseWriter, r *http.Request) {
	writeJsonSuccessResponse(w, evalsrvc.SupportedLanguages())
}
