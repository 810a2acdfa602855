package journal

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/rzpsarthak13/rowmap/internal/core"
	"github.com/rzpsarthak13/rowmap/internal/registry"
)

// DynamoDBAPI is the subset of the DynamoDB client the journal uses.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// dynamoItem is one journal entry. The id sorts by append time.
type dynamoItem struct {
	ID string `dynamodbav:"id"`
	core.ChangeEvent
}

// DynamoDBJournal stores events as items of a table keyed by "id".
// Read scans a batch, orders it by id and deletes what it returns.
type DynamoDBJournal struct {
	client    DynamoDBAPI
	tableName string
	mu        sync.RWMutex
	closed    bool
}

// NewDynamoDBJournal loads the AWS configuration and checks that the table exists.
func NewDynamoDBJournal(cfg registry.InternalDynamoDBConfig) (*DynamoDBJournal, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("region is required")
	}
	if cfg.TableName == "" {
		return nil, fmt.Errorf("table name is required")
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	var opts []func(*dynamodb.Options)
	if cfg.Endpoint != "" {
		// LocalStack and friends
		opts = append(opts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	client := dynamodb.NewFromConfig(awsCfg, opts...)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(cfg.TableName)}); err != nil {
		return nil, fmt.Errorf("failed to connect to DynamoDB table %s: %w", cfg.TableName, err)
	}

	log.Printf("[DYNAMODB] Journal ready on table %s (%s)", cfg.TableName, cfg.Region)
	return NewDynamoDBJournalFromClient(client, cfg.TableName), nil
}

// NewDynamoDBJournalFromClient wraps an existing client.
func NewDynamoDBJournalFromClient(client DynamoDBAPI, tableName string) *DynamoDBJournal {
	return &DynamoDBJournal{client: client, tableName: tableName}
}

func (j *DynamoDBJournal) isClosed() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.closed
}

// Append stores the event as a new item.
func (j *DynamoDBJournal) Append(ctx context.Context, event *core.ChangeEvent) error {
	if j.isClosed() {
		return ErrJournalClosed
	}
	if err := checkEvent(event); err != nil {
		return err
	}

	item, err := attributevalue.MarshalMap(dynamoItem{
		ID:          fmt.Sprintf("%020d-%s", event.Timestamp.UnixNano(), uuid.NewString()),
		ChangeEvent: *event,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	_, err = j.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(j.tableName),
		Item:      item,
	})
	if err != nil {
		log.Printf("[DYNAMODB] ERROR: Failed to append to %s: %v", j.tableName, err)
		return fmt.Errorf("failed to append change event: %w", err)
	}
	return nil
}

// Read scans up to batchSize items, returns them oldest first and deletes them.
func (j *DynamoDBJournal) Read(ctx context.Context, batchSize int) ([]*core.ChangeEvent, error) {
	if j.isClosed() {
		return nil, ErrJournalClosed
	}
	batchSize = batchOrDefault(batchSize)

	out, err := j.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(j.tableName),
		Limit:     aws.Int32(int32(batchSize)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan change events: %w", err)
	}

	var items []dynamoItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal change events: %w", err)
	}
	sort.Slice(items, func(a, b int) bool { return items[a].ID < items[b].ID })

	events := make([]*core.ChangeEvent, 0, len(items))
	for i := range items {
		_, err := j.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(j.tableName),
			Key: map[string]types.AttributeValue{
				"id": &types.AttributeValueMemberS{Value: items[i].ID},
			},
		})
		if err != nil {
			return events, fmt.Errorf("failed to delete change event %s: %w", items[i].ID, err)
		}
		event := items[i].ChangeEvent
		events = append(events, &event)
	}
	return events, nil
}

// Size counts the items in the table, or returns 0 if the count fails.
func (j *DynamoDBJournal) Size() int {
	if j.isClosed() {
		return 0
	}
	out, err := j.client.Scan(context.Background(), &dynamodb.ScanInput{
		TableName: aws.String(j.tableName),
		Select:    types.SelectCount,
	})
	if err != nil {
		return 0
	}
	return int(out.Count)
}

// Close marks the journal closed. The AWS client holds no connections to release.
func (j *DynamoDBJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.closed = true
	return nil
}

type dynamoDBFactory struct{}

func (dynamoDBFactory) Type() string { return "dynamodb" }

func (dynamoDBFactory) Create(config registry.InternalJournalConfig) (core.ChangeJournal, error) {
	j, err := NewDynamoDBJournal(config.DynamoDBConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create DynamoDB journal: %w", err)
	}
	return j, nil
}

func validateDynamoDB(config registry.InternalJournalConfig) error {
	dc := config.DynamoDBConfig
	if dc.Region == "" {
		return fmt.Errorf("region is required for DynamoDB")
	}
	if dc.TableName == "" {
		return fmt.Errorf("table_name is required for DynamoDB")
	}
	if (dc.AccessKeyID == "") != (dc.SecretAccessKey == "") {
		return fmt.Errorf("access_key_id and secret_access_key must be set together")
	}
	return nil
}

func init() {
	register(dynamoDBFactory{}, validateDynamoDB)
}
