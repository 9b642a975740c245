package roomsrvc

import "context"

type EventType string

const (
	EventRosterChanged       EventType = "roster_changed"
	EventRoundStarted        EventType = "round_started"
	EventSubmissionFinalized EventType = "submission_finalized"
	EventRoomEnded           EventType = "room_ended"
	EventRoomReset           EventType = "room_reset"
)

// Event is what room subscribers observe. Payload details are fetched
// through Snapshot/GetSubmission; the event only says what changed.
type Event struct {
	Type         EventType `json:"type"`
	RoomID       string    `json:"roomId"`
	ChallengeID  string    `json:"challengeId,omitempty"`
	SubmissionID string    `json:"submissionId,omitempty"`
}

// Subscribe returns a channel of room events, closed when ctx is done.
// Slow subscribers lose events rather than blocking room actions.
func (r *Registry) Subscribe(ctx context.Context, roomID string) (<-chan Event, error) {
	room, ok := r.room(roomID)
	if !ok {
		return nil, newErrRoomNotFound()
	}

	ch := make(chan Event, 16)
	room.subsMu.Lock()
	room.subscribers = append(room.subscribers, ch)
	room.subsMu.Unlock()

	go func() {
		<-ctx.Done()
		room.subsMu.Lock()
		for i, sub := range room.subscribers {
			if sub == ch {
				room.subscribers = append(room.subscribers[:i], room.subscribers[i+1:]...)
				break
			}
		}
		room.subsMu.Unlock()
		close(ch)
	}()
	return ch, nil
}

func (r *Registry) broadcast(room *Room, ev Event) {
	room.subsMu.Lock()
	defer room.subsMu.Unlock()
	for _, sub := range room.subscribers {
		select {
		case sub <- ev:
		default:
			r.logger.Warn("dropping event for slow subscriber",
				"room_id", ev.RoomID, "event", ev.Type)
		}
	}
}
