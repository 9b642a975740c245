package statsink

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/guregu/dynamo/v2"
)

// RoundHistoryRow is one completed room's final standing.
type RoundHistoryRow struct {
	ID           string            `dynamo:"id,hash"`
	RoomID       string            `dynamo:"room_id"`
	ChallengeIDs []string          `dynamo:"challenge_ids,set,omitempty"`
	Standings    []HistoryStanding `dynamo:"standings"`
	EndedAt      time.Time         `dynamo:"ended_at"`
}

type HistoryStanding struct {
	IdentityKey string `dynamo:"identity_key"`
	Won         bool   `dynamo:"won"`
	Score       int    `dynamo:"score"`
}

// DdbRoundHistory stores history rows in DynamoDB.
type DdbRoundHistory struct {
	table *dynamo.Table
}

func NewDdbRoundHistory(ddbClient *dynamodb.Client, tableName string) *DdbRoundHistory {
	db := dynamo.NewFromIface(ddbClient)
	table := db.Table(tableName)
	return &DdbRoundHistory{table: &table}
}

func (h *DdbRoundHistory) write(ctx context.Context, row *RoundHistoryRow) error {
	return h.table.Put(row).Run(ctx)
}
