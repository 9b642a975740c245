package roomsrvc

// Session bookkeeping: joins, reconnects, disconnects, permanent
// leaves. Connection ids are transient; identity survives through the
// session token.

// Join adds a caller to a room. When the presented session token
// matches a currently-disconnected participant of that room, the
// connection is rebound to the existing participant and its identity,
// stats and session token are preserved. Otherwise a fresh participant
// is created, failing with room_full at capacity.
func (r *Registry) Join(roomID string, identity Identity, sessionToken, connID string) (*Participant, error) {
	room, ok := r.room(roomID)
	if !ok {
		return nil, newErrRoomNotFound()
	}

	if sessionToken != "" {
		if p := r.Reconnect(roomID, sessionToken, connID); p != nil {
			return p, nil
		}
		// unknown or expired token falls through to a fresh join
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	// the sweeper may have deleted the room between the registry lookup
	// and acquiring the lock
	if room.deleted {
		return nil, newErrRoomNotFound()
	}
	if len(room.participants) >= r.tun.RoomCapacity {
		return nil, newErrRoomFull()
	}

	p := &Participant{
		ID:          newID(),
		Name:        identity.Name,
		IdentityKey: identity.IdentityKey,
		ConnID:      connID,
		JoinOrder:   room.joinSeq,
	}
	room.joinSeq++

	token, err := r.mintSessionToken(roomID, p.ID)
	if err != nil {
		return nil, err
	}
	p.SessionToken = token

	room.participants[p.ID] = p
	room.touch(r.clock.Now())

	binding := connBinding{roomID: roomID, participantID: p.ID}
	r.conns.Store(connID, binding)
	r.tokens.Store(token, binding)

	r.logger.Info("participant joined",
		"room_id", roomID, "participant_id", p.ID, "name", p.Name)
	r.broadcast(room, Event{Type: EventRosterChanged, RoomID: roomID})
	return p, nil
}

// Reconnect rebinds a disconnected participant to a new connection id.
// Returns nil when the token does not resolve to a disconnected
// participant of this room.
func (r *Registry) Reconnect(roomID, sessionToken, newConnID string) *Participant {
	tokRoomID, participantID, err := r.verifySessionToken(sessionToken)
	if err != nil || tokRoomID != roomID {
		return nil
	}
	room, ok := r.room(roomID)
	if !ok {
		return nil
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.deleted {
		return nil
	}
	p, ok := room.participants[participantID]
	if !ok || !p.Disconnected {
		return nil
	}

	// retire the stale connection mapping before binding the new one
	if p.ConnID != "" {
		r.conns.Delete(p.ConnID)
	}
	p.ConnID = newConnID
	p.Disconnected = false
	p.DisconnectedAt = nil
	room.touch(r.clock.Now())

	r.conns.Store(newConnID, connBinding{roomID: roomID, participantID: p.ID})

	r.logger.Info("participant reconnected",
		"room_id", roomID, "participant_id", p.ID)
	r.broadcast(room, Event{Type: EventRosterChanged, RoomID: roomID})
	return p
}

// MarkDisconnected flags the participant behind a dropped connection.
// The participant stays in the roster until it either reconnects or the
// sweeper evicts it after the grace period.
func (r *Registry) MarkDisconnected(connID string) (*Participant, string) {
	binding, ok := r.conns.LoadAndDelete(connID)
	if !ok {
		return nil, ""
	}
	room, ok := r.room(binding.roomID)
	if !ok {
		return nil, ""
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	p, ok := room.participants[binding.participantID]
	if !ok {
		return nil, ""
	}
	p.ConnID = ""
	p.Disconnected = true
	p.DisconnectedAt = ptrTime(r.clock.Now())
	room.touch(r.clock.Now())

	r.logger.Info("participant disconnected",
		"room_id", binding.roomID, "participant_id", p.ID)
	r.broadcast(room, Event{Type: EventRosterChanged, RoomID: binding.roomID})
	return p, binding.roomID
}

// LeavePermanently removes the participant from the roster and every
// registry mapping, connected or not. Empty rooms are left for the
// sweeper to collect.
func (r *Registry) LeavePermanently(roomID, participantID string) error {
	room, ok := r.room(roomID)
	if !ok {
		return newErrRoomNotFound()
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	return r.removeParticipantLocked(room, participantID)
}

func (r *Registry) removeParticipantLocked(room *Room, participantID string) error {
	p, ok := room.participants[participantID]
	if !ok {
		return newErrParticipantNotFound()
	}
	if p.ConnID != "" {
		r.conns.Delete(p.ConnID)
	}
	if p.SessionToken != "" {
		r.tokens.Delete(p.SessionToken)
	}
	delete(room.participants, participantID)
	room.touch(r.clock.Now())

	r.logger.Info("participant left",
		"room_id", room.ID, "participant_id", participantID)
	r.broadcast(room, Event{Type: EventRosterChanged, RoomID: room.ID})
	return nil
}
