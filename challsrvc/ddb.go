package challsrvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const topicDifficultyIndex = "topic_difficulty-last_used_at-index"

// DocStore holds the challenge document blobs (see blobstore).
type DocStore interface {
	Put(ctx context.Context, key string, content []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// DdbChallengeRepo is the DynamoDB-backed durable challenge store. The
// row carries everything queries need; the document body lives in the
// blob store under DocKey.
type DdbChallengeRepo struct {
	ddbClient *dynamodb.Client
	tableName string
	docs      DocStore
}

func NewDdbChallengeRepo(ddbClient *dynamodb.Client, tableName string, docs DocStore) *DdbChallengeRepo {
	return &DdbChallengeRepo{
		ddbClient: ddbClient,
		tableName: tableName,
		docs:      docs,
	}
}

// dynamodb challenge metadata row
type ddbChallengeRow struct {
	ID              string    `dynamodbav:"id"`
	Title           string    `dynamodbav:"title"`
	Topic           string    `dynamodbav:"topic"`
	Difficulty      string    `dynamodbav:"difficulty"`
	TopicDifficulty string    `dynamodbav:"topic_difficulty"` // GSI hash key
	FunctionName    string    `dynamodbav:"function_name"`
	MaxScore        int       `dynamodbav:"max_score"`
	SolvedBy        []string  `dynamodbav:"solved_by,stringset,omitempty"`
	UsageCount      int       `dynamodbav:"usage_count"`
	LastUsedAt      int64     `dynamodbav:"last_used_at"`
	CreatedAt       int64     `dynamodbav:"created_at"`
	DocKey          string    `dynamodbav:"doc_key"`
	Embedding       []float32 `dynamodbav:"embedding,omitempty"`
}

func challengeKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

func topicDifficultyKey(topic, difficulty string) string {
	return fmt.Sprintf("%s#%s", topic, difficulty)
}

func docKey(id string) string {
	return fmt.Sprintf("challenges/%s.json.zst", id)
}

func (r *DdbChallengeRepo) Insert(ctx context.Context, ch *Challenge) error {
	doc := challengeDoc{
		Description: ch.Description,
		Examples:    ch.Examples,
		Constraints: ch.Constraints,
		Templates:   ch.Templates,
		TestCases:   ch.TestCases,
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge doc: %w", err)
	}

	key := docKey(ch.ID)
	if err := r.docs.Put(ctx, key, body); err != nil {
		return fmt.Errorf("failed to store challenge doc: %w", err)
	}

	row := ddbChallengeRow{
		ID:              ch.ID,
		Title:           ch.Title,
		Topic:           ch.Topic,
		Difficulty:      ch.Difficulty,
		TopicDifficulty: topicDifficultyKey(ch.Topic, ch.Difficulty),
		FunctionName:    ch.FunctionName,
		MaxScore:        ch.MaxScore,
		SolvedBy:        ch.SolvedBy,
		UsageCount:      ch.UsageCount,
		LastUsedAt:      ch.LastUsedAt.Unix(),
		CreatedAt:       ch.CreatedAt.Unix(),
		DocKey:          key,
		Embedding:       ch.Embedding,
	}
	item, err := attributevalue.MarshalMap(row)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge row: %w", err)
	}

	_, err = r.ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.tableName,
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return newErrChallengeExists(ch.ID)
		}
		return fmt.Errorf("failed to put challenge row: %w", err)
	}
	return nil
}

func (r *DdbChallengeRepo) Get(ctx context.Context, id string) (*Challenge, error) {
	out, err := r.ddbClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &r.tableName,
		Key:       challengeKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge row: %w", err)
	}
	if out.Item == nil {
		return nil, newErrChallengeNotFound()
	}
	var row ddbChallengeRow
	if err := attributevalue.UnmarshalMap(out.Item, &row); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenge row: %w", err)
	}
	return r.assemble(ctx, row)
}

func (r *DdbChallengeRepo) assemble(ctx context.Context, row ddbChallengeRow) (*Challenge, error) {
	body, err := r.docs.Get(ctx, row.DocKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch challenge doc %s: %w", row.DocKey, err)
	}
	var doc challengeDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenge doc: %w", err)
	}
	return &Challenge{
		ID:           row.ID,
		Title:        row.Title,
		Description:  doc.Description,
		Topic:        row.Topic,
		Difficulty:   row.Difficulty,
		Templates:    doc.Templates,
		Examples:     doc.Examples,
		Constraints:  doc.Constraints,
		TestCases:    doc.TestCases,
		FunctionName: row.FunctionName,
		MaxScore:     row.MaxScore,
		SolvedBy:     row.SolvedBy,
		Embedding:    row.Embedding,
		UsageCount:   row.UsageCount,
		LastUsedAt:   time.Unix(row.LastUsedAt, 0).UTC(),
		CreatedAt:    time.Unix(row.CreatedAt, 0).UTC(),
	}, nil
}

// FindUnsolvedLRU queries the topic/difficulty GSI in ascending
// last-used order and returns the first row whose solved-set does not
// contain identityKey.
func (r *DdbChallengeRepo) FindUnsolvedLRU(ctx context.Context, topic, difficulty, identityKey string) (*Challenge, error) {
	keyCond := expression.Key("topic_difficulty").
		Equal(expression.Value(topicDifficultyKey(topic, difficulty)))
	filter := expression.Not(
		expression.Contains(expression.Name("solved_by"), identityKey),
	)
	expr, err := expression.NewBuilder().
		WithKeyCondition(keyCond).
		WithFilter(filter).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 &r.tableName,
		IndexName:                 aws.String(topicDifficultyIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(true), // ascending last_used_at
	}

	paginator := dynamodb.NewQueryPaginator(r.ddbClient, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query challenges: %w", err)
		}
		for _, item := range page.Items {
			var row ddbChallengeRow
			if err := attributevalue.UnmarshalMap(item, &row); err != nil {
				return nil, fmt.Errorf("failed to unmarshal challenge row: %w", err)
			}
			return r.assemble(ctx, row)
		}
	}
	return nil, nil
}

func (r *DdbChallengeRepo) TouchUsage(ctx context.Context, id string) error {
	upd := expression.Add(expression.Name("usage_count"), expression.Value(1)).
		Set(expression.Name("last_used_at"), expression.Value(time.Now().UTC().Unix()))
	expr, err := expression.NewBuilder().WithUpdate(upd).Build()
	if err != nil {
		return fmt.Errorf("failed to build update expression: %w", err)
	}
	_, err = r.ddbClient.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 &r.tableName,
		Key:                       challengeKey(id),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return fmt.Errorf("failed to touch challenge usage: %w", err)
	}
	return nil
}

// AddSolved relies on the DynamoDB string-set ADD semantics being
// idempotent: adding an existing member leaves the set unchanged.
func (r *DdbChallengeRepo) AddSolved(ctx context.Context, id string, identityKey string) error {
	_, err := r.ddbClient.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        &r.tableName,
		Key:              challengeKey(id),
		UpdateExpression: aws.String("ADD solved_by :ik"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ik": &types.AttributeValueMemberSS{Value: []string{identityKey}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to add to solved set: %w", err)
	}
	return nil
}
