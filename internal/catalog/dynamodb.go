package catalog

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/tierstore/tierstore/internal/config"
	"github.com/tierstore/tierstore/internal/tier"
)

// DynamoDBAPI is the subset of the DynamoDB client used by DynamoDBStore.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoDBStore keeps the catalog in a single DynamoDB table keyed by
// pk = "TIER#<tier>" and sk = file name.
type DynamoDBStore struct {
	client    DynamoDBAPI
	tableName string
}

// NewDynamoDBStore creates a DynamoDBStore from the given config.
func NewDynamoDBStore(ctx context.Context, cfg *config.DynamoDBConfig) (*DynamoDBStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("dynamodb config is required")
	}
	if cfg.Table == "" {
		return nil, fmt.Errorf("dynamodb table name is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	if cfg.EndpointURL != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.EndpointURL)
	}

	return NewDynamoDBStoreWithClient(cfg.Table, dynamodb.NewFromConfig(awsCfg)), nil
}

// NewDynamoDBStoreWithClient creates a DynamoDBStore with a caller-supplied
// client, used by tests.
func NewDynamoDBStoreWithClient(table string, client DynamoDBAPI) *DynamoDBStore {
	return &DynamoDBStore{client: client, tableName: table}
}

func pkTier(t tier.Tier) string {
	return "TIER#" + t.String()
}

// Ping describes the table.
func (s *DynamoDBStore) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	})
	return err
}

func (s *DynamoDBStore) Close() error {
	return nil
}

// Put upserts the entry.
func (s *DynamoDBStore) Put(ctx context.Context, e *Entry) error {
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"pk":         &types.AttributeValueMemberS{Value: pkTier(e.Tier)},
			"sk":         &types.AttributeValueMemberS{Value: e.Name},
			"size":       &types.AttributeValueMemberN{Value: strconv.FormatInt(e.Size, 10)},
			"checksum":   &types.AttributeValueMemberS{Value: e.Checksum},
			"mime_type":  &types.AttributeValueMemberS{Value: e.MimeType},
			"updated_at": &types.AttributeValueMemberS{Value: formatTime(e.UpdatedAt)},
		},
	})
	if err != nil {
		return fmt.Errorf("putting catalog entry %s/%s: %w", e.Tier, e.Name, err)
	}
	return nil
}

// Get returns the entry or (nil, nil).
func (s *DynamoDBStore) Get(ctx context.Context, t tier.Tier, name string) (*Entry, error) {
	resp, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: pkTier(t)},
			"sk": &types.AttributeValueMemberS{Value: name},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("getting catalog entry %s/%s: %w", t, name, err)
	}
	if resp.Item == nil {
		return nil, nil
	}
	return itemToEntry(t, resp.Item), nil
}

// List queries the tier's partition, following pagination.
func (s *DynamoDBStore) List(ctx context.Context, t tier.Tier) ([]Entry, error) {
	var out []Entry
	var exclusiveStartKey map[string]types.AttributeValue

	for {
		input := &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			KeyConditionExpression: aws.String("pk = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: pkTier(t)},
			},
		}
		if exclusiveStartKey != nil {
			input.ExclusiveStartKey = exclusiveStartKey
		}

		resp, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("listing catalog entries for %s: %w", t, err)
		}
		for _, item := range resp.Items {
			out = append(out, *itemToEntry(t, item))
		}

		if resp.LastEvaluatedKey == nil {
			break
		}
		exclusiveStartKey = resp.LastEvaluatedKey
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func itemToEntry(t tier.Tier, item map[string]types.AttributeValue) *Entry {
	e := &Entry{
		Tier:      t,
		Name:      getS(item, "sk"),
		Checksum:  getS(item, "checksum"),
		MimeType:  getS(item, "mime_type"),
		UpdatedAt: parseTime(getS(item, "updated_at")),
	}
	if v, ok := item["size"].(*types.AttributeValueMemberN); ok {
		e.Size, _ = strconv.ParseInt(v.Value, 10, 64)
	}
	return e
}

func getS(item map[string]types.AttributeValue, key string) string {
	if v, ok := item[key].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

var _ Store = (*DynamoDBStore)(nil)
