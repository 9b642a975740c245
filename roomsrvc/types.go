package roomsrvc

import (
	"sync"
	"time"

	"github.com/codeclash/backend/challsrvc"
	"github.com/codeclash/backend/evalsrvc"
)

type RoomStatus string

const (
	StatusWaiting   RoomStatus = "waiting"
	StatusActive    RoomStatus = "active"
	StatusCompleted RoomStatus = "completed"
)

// ParticipantStats accumulates across reconnects; the registry hands
// the same Participant back when a session token matches.
type ParticipantStats struct {
	Submissions   int    `json:"submissions"`
	Accepted      int    `json:"accepted"`
	TotalScore    int    `json:"totalScore"`
	PreferredLang string `json:"preferredLang,omitempty"`
}

type Participant struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	IdentityKey  string `json:"identityKey,omitempty"`
	SessionToken string `json:"-"`

	ConnID         string     `json:"-"` // empty while disconnected
	Disconnected   bool       `json:"disconnected"`
	DisconnectedAt *time.Time `json:"-"`

	JoinOrder int              `json:"joinOrder"`
	Stats     ParticipantStats `json:"stats"`
	LastSubm  string           `json:"lastSubmissionId,omitempty"`
}

type Submission struct {
	ID            string                `json:"id"`
	ParticipantID string                `json:"participantId"`
	ChallengeID   string                `json:"challengeId"`
	Language      string                `json:"language"`
	Code          string                `json:"-"`
	SubmittedAt   time.Time             `json:"submittedAt"`
	Status        evalsrvc.Status       `json:"status"`
	TestResults   []evalsrvc.TestResult `json:"testResults,omitempty"`
	Score         int                   `json:"score"`
	ErrMsg        string                `json:"errMsg,omitempty"`
}

func (s *Submission) terminal() bool {
	return s.Status != evalsrvc.StatusPending
}

// Room owns its participants and submissions. All mutation happens
// under mu; the registry only routes actions to the right room.
type Room struct {
	mu sync.Mutex

	ID         string
	Name       string
	Topic      string
	Difficulty string
	Public     bool
	CreatorKey string // identity key of the creator

	Status         RoomStatus
	RoundTimeLimit time.Duration
	RoundStartedAt *time.Time
	RoundEndsAt    *time.Time

	Current *challsrvc.Challenge
	History []string // archived challenge ids, append-only

	participants map[string]*Participant
	joinSeq      int
	deleted      bool // set under mu when the sweeper removes the room
	submissions  map[string]*Submission
	submLog      map[string][]string // participant id -> ordered submission ids
	scores       map[string]int     // participant id -> cumulative leaderboard score

	LastActivity time.Time

	subsMu      sync.Mutex
	subscribers []chan Event
}

func (r *Room) touch(now time.Time) {
	r.LastActivity = now
}

// RoomSnapshot is the lock-free copy handed to the HTTP layer and to
// event subscribers.
type RoomSnapshot struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Topic          string             `json:"topic,omitempty"`
	Difficulty     string             `json:"difficulty"`
	Public         bool               `json:"public"`
	Status         RoomStatus         `json:"status"`
	RoundStartedAt *time.Time         `json:"roundStartedAt,omitempty"`
	RoundEndsAt    *time.Time         `json:"roundEndsAt,omitempty"`
	ChallengeID    string             `json:"challengeId,omitempty"`
	ChallengeTitle string             `json:"challengeTitle,omitempty"`
	History        []string           `json:"history,omitempty"`
	Participants   []Participant      `json:"participants"`
	Leaderboard    []LeaderboardEntry `json:"leaderboard"`
}

func (r *Room) snapshotLocked() RoomSnapshot {
	snap := RoomSnapshot{
		ID:             r.ID,
		Name:           r.Name,
		Topic:          r.Topic,
		Difficulty:     r.Difficulty,
		Public:         r.Public,
		Status:         r.Status,
		RoundStartedAt: r.RoundStartedAt,
		RoundEndsAt:    r.RoundEndsAt,
		History:        append([]string(nil), r.History...),
		Participants:   make([]Participant, 0, len(r.participants)),
		Leaderboard:    r.leaderboardLocked(),
	}
	if r.Current != nil {
		snap.ChallengeID = r.Current.ID
		snap.ChallengeTitle = r.Current.Title
	}
	for _, p := range r.participants {
		snap.Participants = append(snap.Participants, *p)
	}
	return snap
}

// Identity is what a joining client presents about itself.
type Identity struct {
	Name        string
	IdentityKey string // e.g. email; optional
}

// CreateRoomParams configures a new room.
type CreateRoomParams struct {
	Name           string
	Topic          string
	Difficulty     string
	Public         bool
	CreatorKey     string
	RoundTimeLimit time.Duration // zero means the configured default
}
