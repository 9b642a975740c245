package roomsrvc

import "sort"

// LeaderboardEntry is one row of a room's derived leaderboard.
type LeaderboardEntry struct {
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
	Score         int    `json:"score"`
	Accepted      int    `json:"accepted"`
	joinOrder     int
}

// Leaderboard returns the room's current standing: cumulative score
// descending, ties broken by ascending join order so rankings stay
// stable across refreshes.
func (r *Registry) Leaderboard(roomID string) ([]LeaderboardEntry, error) {
	room, ok := r.room(roomID)
	if !ok {
		return nil, newErrRoomNotFound()
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return room.leaderboardLocked(), nil
}

func (r *Room) leaderboardLocked() []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(r.participants))
	for _, p := range r.participants {
		entries = append(entries, LeaderboardEntry{
			ParticipantID: p.ID,
			Name:          p.Name,
			Score:         r.scores[p.ID],
			Accepted:      p.Stats.Accepted,
			joinOrder:     p.JoinOrder,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].joinOrder < entries[j].joinOrder
	})
	return entries
}
