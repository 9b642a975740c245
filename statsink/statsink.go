// Package statsink pushes per-participant round outcomes to the
// profile service queue and records a room history row. Everything
// here is best-effort: failures are logged and never block the
// round-end transition that already committed.
package statsink

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
	"goa.design/clue/log"

	"github.com/codeclash/backend/roomsrvc"
)

type sqsSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type historyWriter interface {
	write(ctx context.Context, row *RoundHistoryRow) error
}

// participantStatsMsg is the queue payload consumed by the profile
// service.
type participantStatsMsg struct {
	IdentityKey        string   `json:"identityKey"`
	Won                bool     `json:"won"`
	RatingChange       int      `json:"ratingChange"`
	SolvedChallengeIds []string `json:"solvedChallengeIds"`
}

type StatSink struct {
	sqsClient sqsSender
	queueURL  string
	history   historyWriter
}

func NewStatSink(sqsClient *sqs.Client, queueURL string, history *DdbRoundHistory) *StatSink {
	s := &StatSink{
		sqsClient: sqsClient,
		queueURL:  queueURL,
	}
	if history != nil {
		s.history = history
	}
	return s
}

// PushRoundOutcome sends one stats message per participant and writes
// the history row. Partial failures are logged and skipped.
func (s *StatSink) PushRoundOutcome(ctx context.Context, outcome roomsrvc.RoundOutcome) {
	for _, res := range outcome.Results {
		msg := participantStatsMsg{
			IdentityKey:        res.IdentityKey,
			Won:                res.Won,
			RatingChange:       res.RatingChange,
			SolvedChallengeIds: res.SolvedIDs,
		}
		body, err := json.Marshal(msg)
		if err != nil {
			log.Errorf(ctx, err, "failed to marshal stats message")
			continue
		}
		if s.sqsClient == nil || s.queueURL == "" {
			continue
		}
		_, err = s.sqsClient.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(s.queueURL),
			MessageBody: aws.String(string(body)),
		})
		if err != nil {
			log.Errorf(ctx, err, "failed to push stats for %s", res.IdentityKey)
		}
	}

	if s.history == nil {
		return
	}
	row := newRoundHistoryRow(outcome)
	if err := s.history.write(ctx, row); err != nil {
		log.Errorf(ctx, err, "failed to write round history for room %s", outcome.RoomID)
	}
}

func newRoundHistoryRow(outcome roomsrvc.RoundOutcome) *RoundHistoryRow {
	standings := make([]HistoryStanding, len(outcome.Results))
	for i, res := range outcome.Results {
		standings[i] = HistoryStanding{
			IdentityKey: res.IdentityKey,
			Won:         res.Won,
			Score:       res.RatingChange,
		}
	}
	return &RoundHistoryRow{
		ID:           uuid.New().String(),
		RoomID:       outcome.RoomID,
		ChallengeIDs: outcome.ChallengeIDs,
		Standings:    standings,
		EndedAt:      time.Now(),
	}
}
