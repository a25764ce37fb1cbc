// Package dynamo implements interfaces.DurableTable on an AWS DynamoDB table.
//
// Records are stored one item per transaction, keyed by "id". The amount is
// written as a DynamoDB number from its exact decimal string so no precision
// is lost on the way through float64.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/transaction-risk-intake/internal/interfaces"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/models"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/traces"
)

// Compile-time check that Table implements interfaces.DurableTable
var _ interfaces.DurableTable = (*Table)(nil)

// API is the subset of the DynamoDB client used by Table.
// This interface allows for easy mocking in tests.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

const amountAttr = "amount"

// item mirrors models.TransactionRecord minus the amount, which is encoded by hand.
type item struct {
	ID        string `dynamodbav:"id"`
	Timestamp int64  `dynamodbav:"timestamp"`
	User      string `dynamodbav:"user"`
	Currency  string `dynamodbav:"currency"`
	Merchant  string `dynamodbav:"merchant"`
	RiskLevel string `dynamodbav:"risk_level"`
	HighRisk  bool   `dynamodbav:"high_risk"`
}

// Table stores transaction records in a DynamoDB table.
type Table struct {
	client API
	name   string
	logger *slog.Logger
}

// NewTable creates a Table for the named DynamoDB table.
func NewTable(client API, name string, logger *slog.Logger) (*Table, error) {
	if client == nil {
		return nil, errors.New("dynamodb client is required")
	}
	if name == "" {
		return nil, errors.New("table name is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Table{
		client: client,
		name:   name,
		logger: logger.With("component", "dynamo-table", "table", name),
	}, nil
}

func (t *Table) Name() string { return t.name }

// Put writes rec as a single item.
func (t *Table) Put(ctx context.Context, rec models.TransactionRecord) (err error) {
	ctx, end := traces.Start(ctx, "dynamo.PutItem", traces.Table(t.name))
	defer func() { end(err) }()

	av, err := marshalRecord(rec)
	if err != nil {
		return err
	}

	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.name),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("put item %s: %w", rec.ID, err)
	}
	return nil
}

// Scan reads the whole table page by page. DynamoDB gives no ordering, so
// limit only sizes the pages; the caller sorts and truncates.
func (t *Table) Scan(ctx context.Context, limit int) (records []models.TransactionRecord, err error) {
	ctx, end := traces.Start(ctx, "dynamo.Scan", traces.Table(t.name))
	defer func() { end(err) }()

	input := &dynamodb.ScanInput{TableName: aws.String(t.name)}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	paginator := dynamodb.NewScanPaginator(t.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		for _, av := range page.Items {
			rec, err := unmarshalRecord(av)
			if err != nil {
				t.logger.Warn("skipping malformed item", "error", err)
				continue
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

func marshalRecord(rec models.TransactionRecord) (map[string]types.AttributeValue, error) {
	av, err := attributevalue.MarshalMap(item{
		ID:        rec.ID,
		Timestamp: rec.Timestamp,
		User:      rec.User,
		Currency:  rec.Currency,
		Merchant:  rec.Merchant,
		RiskLevel: string(rec.RiskLevel),
		HighRisk:  rec.HighRisk,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal record %s: %w", rec.ID, err)
	}
	av[amountAttr] = &types.AttributeValueMemberN{Value: rec.Amount.String()}
	return av, nil
}

func unmarshalRecord(av map[string]types.AttributeValue) (models.TransactionRecord, error) {
	var it item
	if err := attributevalue.UnmarshalMap(av, &it); err != nil {
		return models.TransactionRecord{}, fmt.Errorf("unmarshal item: %w", err)
	}
	if it.ID == "" {
		return models.TransactionRecord{}, errors.New("item has no id")
	}

	n, ok := av[amountAttr].(*types.AttributeValueMemberN)
	if !ok {
		return models.TransactionRecord{}, fmt.Errorf("item %s: amount is not a number", it.ID)
	}
	amount, err := decimal.NewFromString(n.Value)
	if err != nil {
		return models.TransactionRecord{}, fmt.Errorf("item %s: parse amount: %w", it.ID, err)
	}

	return models.TransactionRecord{
		ID:        it.ID,
		Timestamp: it.Timestamp,
		User:      it.User,
		Amount:    amount,
		Currency:  it.Currency,
		Merchant:  it.Merchant,
		RiskLevel: models.RiskLevel(it.RiskLevel),
		HighRisk:  it.HighRisk,
	}, nil
}
