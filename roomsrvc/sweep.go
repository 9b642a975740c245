package roomsrvc

import (
	"context"
)

// RunSweeper periodically evicts participants who stayed disconnected
// past the grace period and deletes rooms that sat empty past the
// inactivity grace. Blocks until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context) {
	ticker := r.clock.NewTicker(r.tun.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			r.sweepOnce()
		}
	}
}

func (r *Registry) sweepOnce() {
	now := r.clock.Now()

	type eviction struct {
		room          *Room
		participantID string
	}
	var evictions []eviction
	var emptyRooms []string

	r.rooms.Range(func(roomID string, room *Room) bool {
		room.mu.Lock()
		for id, p := range room.participants {
			if p.Disconnected && p.DisconnectedAt != nil &&
				now.Sub(*p.DisconnectedAt) >= r.tun.DisconnectGrace {
				evictions = append(evictions, eviction{room: room, participantID: id})
			}
		}
		if len(room.participants) == 0 &&
			now.Sub(room.LastActivity) >= r.tun.RoomInactiveGrace {
			emptyRooms = append(emptyRooms, roomID)
		}
		room.mu.Unlock()
		return true
	})

	for _, ev := range evictions {
		ev.room.mu.Lock()
		// a reconnect may have landed between scan and eviction; the
		// flag is re-checked at the moment of removal
		p, ok := ev.room.participants[ev.participantID]
		if ok && p.Disconnected && p.DisconnectedAt != nil &&
			now.Sub(*p.DisconnectedAt) >= r.tun.DisconnectGrace {
			if err := r.removeParticipantLocked(ev.room, ev.participantID); err != nil {
				r.logger.Warn("failed to evict participant",
					"room_id", ev.room.ID, "participant_id", ev.participantID, "error", err)
			} else {
				r.logger.Info("evicted stale participant",
					"room_id", ev.room.ID, "participant_id", ev.participantID)
			}
		}
		ev.room.mu.Unlock()
	}

	for _, roomID := range emptyRooms {
		room, ok := r.rooms.Load(roomID)
		if !ok {
			continue
		}
		room.mu.Lock()
		if len(room.participants) == 0 &&
			now.Sub(room.LastActivity) >= r.tun.RoomInactiveGrace {
			room.deleted = true
			r.rooms.Delete(roomID)
			r.logger.Info("deleted inactive empty room", "room_id", roomID)
		}
		room.mu.Unlock()
	}
}
