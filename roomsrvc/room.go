package roomsrvc

import (
	"context"
	"sort"

	"github.com/codeclash/backend/challsrvc"
	"github.com/codeclash/backend/evalsrvc"
)

// CreateRoom registers a new empty room in the waiting state.
func (r *Registry) CreateRoom(params CreateRoomParams) *RoomSnapshot {
	limit := params.RoundTimeLimit
	if limit <= 0 {
		limit = r.tun.RoundTimeLimit
	}
	room := &Room{
		ID:             newID(),
		Name:           params.Name,
		Topic:          params.Topic,
		Difficulty:     params.Difficulty,
		Public:         params.Public,
		CreatorKey:     params.CreatorKey,
		Status:         StatusWaiting,
		RoundTimeLimit: limit,
		participants:   make(map[string]*Participant),
		submissions:    make(map[string]*Submission),
		submLog:        make(map[string][]string),
		scores:         make(map[string]int),
		LastActivity:   r.clock.Now(),
	}
	r.rooms.Store(room.ID, room)
	r.logger.Info("room created",
		"room_id", room.ID, "name", room.Name, "difficulty", room.Difficulty)

	room.mu.Lock()
	defer room.mu.Unlock()
	snap := room.snapshotLocked()
	return &snap
}

// Snapshot returns a consistent copy of the room's public state.
func (r *Registry) Snapshot(roomID string) (*RoomSnapshot, error) {
	room, ok := r.room(roomID)
	if !ok {
		return nil, newErrRoomNotFound()
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	snap := room.snapshotLocked()
	return &snap, nil
}

// ListPublicRooms returns snapshots of joinable public rooms.
func (r *Registry) ListPublicRooms() []RoomSnapshot {
	out := make([]RoomSnapshot, 0)
	r.rooms.Range(func(_ string, room *Room) bool {
		room.mu.Lock()
		if room.Public && room.Status != StatusCompleted {
			out = append(out, room.snapshotLocked())
		}
		room.mu.Unlock()
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Generate starts a new round. Only the creator may start one, unless
// the room has a single occupant. Concurrent generates for the same
// room are collapsed into one round via single-flight.
func (r *Registry) Generate(ctx context.Context, roomID, participantID string) (*challsrvc.Challenge, error) {
	room, ok := r.room(roomID)
	if !ok {
		return nil, newErrRoomNotFound()
	}

	room.mu.Lock()
	p, ok := room.participants[participantID]
	if !ok {
		room.mu.Unlock()
		return nil, newErrParticipantNotFound()
	}
	if p.IdentityKey != room.CreatorKey && len(room.participants) > 1 {
		room.mu.Unlock()
		return nil, newErrUnauthorized()
	}
	if room.Status == StatusCompleted {
		room.mu.Unlock()
		return nil, newErrNoActiveChallenge()
	}
	identityKey := p.IdentityKey
	topic, difficulty := room.Topic, room.Difficulty
	room.mu.Unlock()

	ch, err, _ := r.genGroup.Do(roomID, func() (interface{}, error) {
		return r.startRound(ctx, room, identityKey, topic, difficulty)
	})
	if err != nil {
		return nil, err
	}
	return ch.(*challsrvc.Challenge), nil
}

func (r *Registry) startRound(ctx context.Context, room *Room, identityKey, topic, difficulty string) (*challsrvc.Challenge, error) {
	retrieval, err := r.chall.GetUnsolvedChallenge(ctx, identityKey, topic, difficulty)
	if err != nil {
		r.logger.Error("challenge retrieval failed", "room_id", room.ID, "error", err)
	}

	var challenge *challsrvc.Challenge
	if retrieval.Found {
		challenge = retrieval.Challenge
		r.logger.Info("round challenge retrieved",
			"room_id", room.ID, "challenge_id", challenge.ID,
			"source", retrieval.Source, "similarity", retrieval.Similarity)
	} else {
		challenge, err = r.chall.GenerateChallenge(ctx, topic, difficulty)
		if err != nil {
			r.logger.Error("challenge generation failed", "room_id", room.ID, "error", err)
			return nil, newErrRoundUnavailable().SetDebug(err)
		}
		r.logger.Info("round challenge generated",
			"room_id", room.ID, "challenge_id", challenge.ID)
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.Current != nil {
		room.History = append(room.History, room.Current.ID)
	}
	now := r.clock.Now()
	room.Current = challenge
	room.Status = StatusActive
	room.RoundStartedAt = ptrTime(now)
	room.RoundEndsAt = ptrTime(now.Add(room.RoundTimeLimit))
	room.touch(now)

	r.broadcast(room, Event{Type: EventRoundStarted, RoomID: room.ID, ChallengeID: challenge.ID})
	return challenge, nil
}

// Submit records a submission and kicks off its evaluation. The
// submission is returned in the pending state; exactly one finalize
// follows, even if the room disappears meanwhile.
func (r *Registry) Submit(roomID, participantID, language, code string) (*Submission, error) {
	room, ok := r.room(roomID)
	if !ok {
		return nil, newErrRoomNotFound()
	}

	room.mu.Lock()
	p, ok := room.participants[participantID]
	if !ok {
		room.mu.Unlock()
		return nil, newErrParticipantNotFound()
	}
	if room.Status != StatusActive || room.Current == nil {
		room.mu.Unlock()
		return nil, newErrNoActiveChallenge()
	}

	subm := &Submission{
		ID:            newID(),
		ParticipantID: participantID,
		ChallengeID:   room.Current.ID,
		Language:      language,
		Code:          code,
		SubmittedAt:   r.clock.Now(),
		Status:        evalsrvc.StatusPending,
	}
	room.submissions[subm.ID] = subm
	room.submLog[participantID] = append(room.submLog[participantID], subm.ID)
	p.Stats.Submissions++
	p.Stats.PreferredLang = language
	p.LastSubm = subm.ID
	room.touch(subm.SubmittedAt)

	req := evalsrvc.Request{
		SubmissionID: subm.ID,
		Language:     language,
		Code:         code,
		FunctionName: room.Current.FunctionName,
		TestCases:    room.Current.TestCases,
	}
	identityKey := p.IdentityKey
	snapshot := *subm
	room.mu.Unlock()

	r.logger.Info("submission received",
		"room_id", roomID, "participant_id", participantID,
		"submission_id", subm.ID, "language", language)

	go func() {
		res := r.eval.Evaluate(context.Background(), req)
		r.finalizeSubmission(roomID, subm.ID, identityKey, res)
	}()

	return &snapshot, nil
}

// finalizeSubmission applies one evaluation result. If the room or the
// submission is gone, or the submission already reached a terminal
// status, it is a no-op.
func (r *Registry) finalizeSubmission(roomID, submissionID, identityKey string, res evalsrvc.Result) {
	room, ok := r.room(roomID)
	if !ok {
		r.logger.Info("dropping evaluation result for deleted room",
			"room_id", roomID, "submission_id", submissionID)
		return
	}

	room.mu.Lock()
	subm, ok := room.submissions[submissionID]
	if !ok || subm.terminal() {
		room.mu.Unlock()
		return
	}

	subm.Status = res.Status
	subm.TestResults = res.TestResults
	subm.Score = res.Score
	subm.ErrMsg = res.ErrMsg

	p := room.participants[subm.ParticipantID]
	if p != nil {
		p.Stats.TotalScore += res.Score
		if res.Status == evalsrvc.StatusAccepted {
			p.Stats.Accepted++
		}
	}
	// any evaluated score accumulates; accepted additionally gates the
	// solved-set below
	if res.Score > 0 {
		room.scores[subm.ParticipantID] += res.Score
	}
	challengeID := subm.ChallengeID
	room.touch(r.clock.Now())
	room.mu.Unlock()

	r.logger.Info("submission finalized",
		"room_id", roomID, "submission_id", submissionID,
		"status", res.Status, "score", res.Score)
	r.broadcast(room, Event{
		Type: EventSubmissionFinalized, RoomID: roomID,
		SubmissionID: submissionID, ChallengeID: challengeID,
	})

	if res.Status == evalsrvc.StatusAccepted && identityKey != "" {
		ctx, cancel := context.WithTimeout(context.Background(), r.tun.ExternalCallTimeout)
		defer cancel()
		if err := r.chall.MarkSolved(ctx, challengeID, identityKey); err != nil {
			r.logger.Warn("failed to mark challenge solved",
				"challenge_id", challengeID, "error", err)
		}
	}
}

// GetSubmission returns a copy of one submission.
func (r *Registry) GetSubmission(roomID, submissionID string) (*Submission, error) {
	room, ok := r.room(roomID)
	if !ok {
		return nil, newErrRoomNotFound()
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	subm, ok := room.submissions[submissionID]
	if !ok {
		return nil, newErrSubmissionNotFound()
	}
	cp := *subm
	return &cp, nil
}

// End completes the room. Creator-only; the current challenge and
// history are preserved for the final leaderboard snapshot, and the
// round outcome is pushed to the stats sink best-effort.
func (r *Registry) End(ctx context.Context, roomID, participantID string) (*RoomSnapshot, error) {
	room, ok := r.room(roomID)
	if !ok {
		return nil, newErrRoomNotFound()
	}

	room.mu.Lock()
	p, ok := room.participants[participantID]
	if !ok {
		room.mu.Unlock()
		return nil, newErrParticipantNotFound()
	}
	if p.IdentityKey != room.CreatorKey {
		room.mu.Unlock()
		return nil, newErrUnauthorized()
	}
	if room.Status == StatusCompleted {
		snap := room.snapshotLocked()
		room.mu.Unlock()
		return &snap, nil
	}

	now := r.clock.Now()
	room.Status = StatusCompleted
	room.RoundEndsAt = ptrTime(now)
	room.touch(now)
	snap := room.snapshotLocked()
	outcome := r.roundOutcomeLocked(room, snap.Leaderboard)
	room.mu.Unlock()

	r.logger.Info("room ended", "room_id", roomID)
	r.broadcast(room, Event{Type: EventRoomEnded, RoomID: roomID})

	if r.sink != nil {
		r.sink.PushRoundOutcome(ctx, outcome)
	}
	return &snap, nil
}

// Reset archives the current challenge and returns the room to the
// waiting state, ready for the next generate.
func (r *Registry) Reset(roomID string) error {
	room, ok := r.room(roomID)
	if !ok {
		return newErrRoomNotFound()
	}

	room.mu.Lock()
	if room.Current != nil {
		room.History = append(room.History, room.Current.ID)
		room.Current = nil
	}
	room.Status = StatusWaiting
	room.RoundStartedAt = nil
	room.RoundEndsAt = nil
	room.touch(r.clock.Now())
	room.mu.Unlock()

	r.broadcast(room, Event{Type: EventRoomReset, RoomID: roomID})
	return nil
}

func (r *Registry) roundOutcomeLocked(room *Room, lb []LeaderboardEntry) RoundOutcome {
	challengeIDs := append([]string(nil), room.History...)
	if room.Current != nil {
		challengeIDs = append(challengeIDs, room.Current.ID)
	}
	outcome := RoundOutcome{RoomID: room.ID, ChallengeIDs: challengeIDs}
	for rank, entry := range lb {
		p := room.participants[entry.ParticipantID]
		if p == nil || p.IdentityKey == "" {
			continue
		}
		solved := make([]string, 0)
		for _, submID := range room.submLog[entry.ParticipantID] {
			if s := room.submissions[submID]; s != nil && s.Status == evalsrvc.StatusAccepted {
				solved = append(solved, s.ChallengeID)
			}
		}
		outcome.Results = append(outcome.Results, ParticipantOutcome{
			IdentityKey:  p.IdentityKey,
			Won:          rank == 0 && entry.Score > 0,
			RatingChange: entry.Score,
			SolvedIDs:    solved,
		})
	}
	return outcome
}
