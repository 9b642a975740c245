package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/codeclash/backend/logger"
	"github.com/codeclash/backend/roomsrvc"
)

func (httpserver *HttpServer) createRoom(w http.ResponseWriter, r *http.Request) {
	type createRoomRequest struct {
		Name            string `json:"name"`
		Topic           string `json:"topic"`
		Difficulty      string `json:"difficulty"`
		Public          bool   `json:"public"`
		CreatorKey      string `json:"creatorKey"`
		RoundTimeLimitS int    `json:"roundTimeLimitS,omitempty"`
	}

	var request createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	snap := httpserver.registry.CreateRoom(roomsrvc.CreateRoomParams{
		Name:           request.Name,
		Topic:          request.Topic,
		Difficulty:     request.Difficulty,
		Public:         request.Public,
		CreatorKey:     request.CreatorKey,
		RoundTimeLimit: time.Duration(request.RoundTimeLimitS) * time.Second,
	})

	writeJsonSuccess(w, http.StatusCreated, snap)
}

func (httpserver *HttpServer) listRooms(w http.ResponseWriter, r *http.Request) {
	writeJsonSuccessResponse(w, httpserver.registry.ListPublicRooms())
}

func (httpserver *HttpServer) getRoom(w http.ResponseWriter, r *http.Request) {
	snap, err := httpserver.registry.Snapshot(chi.URLParam(r, "roomID"))
	if err != nil {
		handleJsonSrvcError(logger.FromContext(r.Context()), w, err)
		return
	}
	writeJsonSuccessResponse(w, snap)
}

func (httpserver *HttpServer) joinRoom(w http.ResponseWriter, r *http.Request) {
	type joinRequest struct {
		Name         string `json:"name"`
		IdentityKey  string `json:"identityKey,omitempty"`
		SessionToken string `json:"sessionToken,omitempty"`
	}
	type joinResponse struct {
		Participant  *roomsrvc.Participant `json:"participant"`
		SessionToken string                `json:"sessionToken"`
		ConnID       string                `json:"connId"`
	}

	var request joinRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	// each join gets a fresh transient connection id; the client
	// presents it on disconnect and replaces it on reconnect
	connID := uuid.New().String()
	p, err := httpserver.registry.Join(
		chi.URLParam(r, "roomID"),
		roomsrvc.Identity{Name: request.Name, IdentityKey: request.IdentityKey},
		request.SessionToken,
		connID,
	)
	if err != nil {
		handleJsonSrvcError(logger.FromContext(r.Context()), w, err)
		return
	}

	writeJsonSuccess(w, http.StatusCreated, joinResponse{
		Participant:  p,
		SessionToken: p.SessionToken,
		ConnID:       connID,
	})
}

func (httpserver *HttpServer) leaveRoom(w http.ResponseWriter, r *http.Request) {
	type leaveRequest struct {
		ParticipantID string `json:"participantId"`
	}

	var request leaveRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err := httpserver.registry.LeavePermanently(chi.URLParam(r, "roomID"), request.ParticipantID)
	if err != nil {
		handleJsonSrvcError(logger.FromContext(r.Context()), w, err)
		return
	}
	writeJsonSuccessResponse(w, nil)
}

func (httpserver *HttpServer) disconnect(w http.ResponseWriter, r *http.Request) {
	type disconnectRequest struct {
		ConnID string `json:"connId"`
	}

	var request disconnectRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	p, _ := httpserver.registry.MarkDisconnected(request.ConnID)
	writeJsonSuccessResponse(w, p)
}

func (httpserver *HttpServer) generateRound(w http.ResponseWriter, r *http.Request) {
	type generateRequest struct {
		ParticipantID string `json:"participantId"`
	}

	var request generateRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	challenge, err := httpserver.registry.Generate(
		r.Context(), chi.URLParam(r, "roomID"), request.ParticipantID)
	if err != nil {
		handleJsonSrvcError(logger.FromContext(r.Context()), w, err)
		return
	}
	writeJsonSuccessResponse(w, mapChallenge(challenge))
}

func (httpserver *HttpServer) endRoom(w http.ResponseWriter, r *http.Request) {
	type endRequest struct {
		ParticipantID string `json:"participantId"`
	}

	var request endRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	snap, err := httpserver.registry.End(r.Context(), chi.URLParam(r, "roomID"), request.ParticipantID)
	if err != nil {
		handleJsonSrvcError(logger.FromContext(r.Context()), w, err)
		return
	}
	writeJsonSuccessResponse(w, snap)
}

func (httpserver *HttpServer) resetRoom(w http.ResponseWriter, r *http.Request) {
	if err := httpserver.registry.Reset(chi.URLParam(r, "roomID")); err != nil {
		handleJsonSrvcError(logger.FromContext(r.Context()), w, err)
		return
	}
	writeJsonSuccessResponse(w, nil)
}

func (httpserver *HttpServer) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := httpserver.registry.Leaderboard(chi.URLParam(r, "roomID"))
	if err != nil {
		handleJsonSrvcError(logger.FromContext(r.Context()), w, err)
		return
	}
	writeJsonSuccessResponse(w, lb)
}

// streamEvents pushes room events as server-sent events until the
// client goes away.
func (httpserver *HttpServer) streamEvents(w http.ResponseWriter, r *http.Request) {
	events, err := httpserver.registry.Subscribe(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		handleJsonSrvcError(logger.FromContext(r.Context()), w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	enc := json.NewEncoder(w)
	for ev := range events {
		if _, err := w.Write([]byte("data: ")); err != nil {
			return
		}
		if err := enc.Encode(ev); err != nil {
			return
		}
		if _, err := w.Write([]byte("\n")); err != nil {
			return
		}
		flusher.Flush()
	}
}
