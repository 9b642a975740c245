package statsink

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/require"

	"github.com/codeclash/backend/roomsrvc"
)

type fakeSender struct {
	bodies  []string
	failFor string // identity key whose message errors
}

func (f *fakeSender) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	body := *params.MessageBody
	if f.failFor != "" {
		var msg participantStatsMsg
		if json.Unmarshal([]byte(body), &msg) == nil && msg.IdentityKey == f.failFor {
			return nil, fmt.Errorf("queue unavailable")
		}
	}
	f.bodies = append(f.bodies, body)
	return &sqs.SendMessageOutput{}, nil
}

type fakeHistory struct {
	rows []*RoundHistoryRow
	err  error
}

func (f *fakeHistory) write(ctx context.Context, row *RoundHistoryRow) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, row)
	return nil
}

func sampleOutcome() roomsrvc.RoundOutcome {
	return roomsrvc.RoundOutcome{
		RoomID:       "room-1",
		ChallengeIDs: []string{"sum-of-array"},
		Results: []roomsrvc.ParticipantOutcome{
			{IdentityKey: "alice@example.com", Won: true, RatingChange: 100, SolvedIDs: []string{"sum-of-array"}},
			{IdentityKey: "bob@example.com", Won: false, RatingChange: 30},
		},
	}
}

func TestPushSendsOneMessagePerParticipant(t *testing.T) {
	sender := &fakeSender{}
	history := &fakeHistory{}
	sink := &StatSink{sqsClient: sender, queueURL: "https://queue", history: history}

	sink.PushRoundOutcome(context.Background(), sampleOutcome())

	require.Len(t, sender.bodies, 2)
	var first participantStatsMsg
	require.NoError(t, json.Unmarshal([]byte(sender.bodies[0]), &first))
	require.Equal(t, "alice@example.com", first.IdentityKey)
	require.True(t, first.Won)
	require.Equal(t, 100, first.RatingChange)
	require.Equal(t, []string{"sum-of-array"}, first.SolvedChallengeIds)

	require.Len(t, history.rows, 1)
	require.Equal(t, "room-1", history.rows[0].RoomID)
	require.Len(t, history.rows[0].Standings, 2)
}

func TestPushSurvivesPartialFailures(t *testing.T) {
	sender := &fakeSender{failFor: "alice@example.com"}
	history := &fakeHistory{err: fmt.Errorf("table missing")}
	sink := &StatSink{sqsClient: sender, queueURL: "https://queue", history: history}

	// must not panic or abort: bob's message still goes out
	sink.PushRoundOutcome(context.Background(), sampleOutcome())
	require.Len(t, sender.bodies, 1)
}

func TestPushWithoutQueueIsANoOp(t *testing.T) {
	sink := NewStatSink(nil, "", nil)
	sink.PushRoundOutcome(context.Background(), sampleOutcome())
}
