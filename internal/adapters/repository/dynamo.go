package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/okian/commentsense/internal/domain/model"
	"github.com/okian/commentsense/pkg/metrics"
)

// keyAttribute is the table's partition key.
const keyAttribute = "event_id"

// DynamoAPI is the subset of the DynamoDB client in use.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoStore writes outcomes to a DynamoDB table keyed by event_id.
type DynamoStore struct {
	api   DynamoAPI
	table string
}

// NewDynamoStore returns a store writing to table.
func NewDynamoStore(api DynamoAPI, table string) (*DynamoStore, error) {
	if table == "" {
		return nil, ErrNoTableName
	}
	return &DynamoStore{api: api, table: table}, nil
}

// Record puts outcome as one item.
func (s *DynamoStore) Record(ctx context.Context, outcome model.Outcome) error {
	if outcome.EventID == "" {
		return ErrMissingID
	}
	item, err := attributevalue.MarshalMap(outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	start := time.Now()
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	metrics.RecordDependencyCall("dynamodb", float64(time.Since(start).Milliseconds()), err)
	if err != nil {
		return fmt.Errorf("put outcome %s: %w", outcome.EventID, err)
	}
	return nil
}

// Get reads the outcome for eventID.
func (s *DynamoStore) Get(ctx context.Context, eventID string) (model.Outcome, error) {
	start := time.Now()
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			keyAttribute: &types.AttributeValueMemberS{Value: eventID},
		},
	})
	metrics.RecordDependencyCall("dynamodb", float64(time.Since(start).Milliseconds()), err)
	if err != nil {
		return model.Outcome{}, fmt.Errorf("get outcome %s: %w", eventID, err)
	}
	if out == nil || len(out.Item) == 0 {
		return model.Outcome{}, ErrNotFound
	}

	var o model.Outcome
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return model.Outcome{}, fmt.Errorf("unmarshal outcome %s: %w", eventID, err)
	}
	return o, nil
}
