package apothecary

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// DynamoDBAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error)
}

// DynamoStore is a Store backed by Amazon DynamoDB. Consumed capacity is logged at debug level
// for every item operation.
type DynamoStore struct {
	Client DynamoDBAPI
	Logger *zap.Logger
	// WaitMinDelay is the minimum delay between table status polls (default 3 seconds).
	WaitMinDelay time.Duration
	// WaitTimeout bounds how long CreateTable and DeleteTable wait (default 3 minutes).
	WaitTimeout time.Duration
}

// NewDynamoStore returns a DynamoStore for the provided client.
func NewDynamoStore(client DynamoDBAPI, logger *zap.Logger) DynamoStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return DynamoStore{Client: client, Logger: logger}
}

func (s DynamoStore) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s DynamoStore) waitMinDelay() time.Duration {
	if s.WaitMinDelay <= 0 {
		return 3 * time.Second
	}
	return s.WaitMinDelay
}

func (s DynamoStore) waitTimeout() time.Duration {
	if s.WaitTimeout <= 0 {
		return 3 * time.Minute
	}
	return s.WaitTimeout
}

// storeError translates table-level service errors into this package's sentinels, keeping the
// original error in the chain.
func (s DynamoStore) storeError(op, tableName string, err error) error {
	var nf *types.ResourceNotFoundException
	if errors.As(err, &nf) {
		return fmt.Errorf("%s %s: %w: %w", op, tableName, ErrTableNotFound, err)
	}
	var inUse *types.ResourceInUseException
	if errors.As(err, &inUse) && op == "create table" {
		return fmt.Errorf("%s %s: %w: %w", op, tableName, ErrTableExists, err)
	}
	s.logger().Warn("dynamodb "+op+" failed", append(storeErrorFields(err), zap.String("table", tableName))...)
	return fmt.Errorf("failed to %s %s: %w", op, tableName, err)
}

func (s DynamoStore) logCapacity(op string, cc *types.ConsumedCapacity) {
	if cc == nil {
		return
	}
	s.logger().Debug("consumed capacity",
		zap.String("operation", op),
		zap.String("table", aws.ToString(cc.TableName)),
		zap.Float64("capacityUnits", aws.ToFloat64(cc.CapacityUnits)),
	)
}

// DescribeTable resolves a table reference.
func (s DynamoStore) DescribeTable(ctx context.Context, tableName string) (TableRef, error) {
	out, err := s.Client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(tableName)})
	if err != nil {
		return TableRef{}, s.storeError("describe table", tableName, err)
	}
	t := out.Table
	return TableRef{
		Name:      aws.ToString(t.TableName),
		Status:    string(t.TableStatus),
		ItemCount: aws.ToInt64(t.ItemCount),
	}, nil
}

// CreateTable creates a table for the schema and waits for it to become active.
func (s DynamoStore) CreateTable(ctx context.Context, schema Schema) error {
	if err := schema.Check(); err != nil {
		return err
	}
	startTime := time.Now()
	req := dynamodb.CreateTableInput{
		TableName:            aws.String(schema.TableName),
		TableClass:           types.TableClassStandard,
		AttributeDefinitions: schema.AttributeDefinitions(),
		KeySchema:            schema.KeySchema(),
		BillingMode:          types.BillingModePayPerRequest,
	}
	if schema.ReadCapacity > 0 && schema.WriteCapacity > 0 {
		req.BillingMode = types.BillingModeProvisioned
		req.ProvisionedThroughput = &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(schema.ReadCapacity),
			WriteCapacityUnits: aws.Int64(schema.WriteCapacity),
		}
	}
	create, err := s.Client.CreateTable(ctx, &req)
	if err != nil {
		return s.storeError("create table", schema.TableName, err)
	}
	s.logger().Info("table",
		zap.String("table", aws.ToString(create.TableDescription.TableName)),
		zap.String("status", string(create.TableDescription.TableStatus)),
		zap.Duration("elapsed", time.Since(startTime)))

	waiter := dynamodb.NewTableExistsWaiter(s.Client, func(o *dynamodb.TableExistsWaiterOptions) {
		o.MinDelay = s.waitMinDelay()
		o.MaxDelay = max(s.waitMinDelay(), 120*time.Second)
	})
	describe, err := waiter.WaitForOutput(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(schema.TableName)}, s.waitTimeout())
	if err != nil {
		return fmt.Errorf("failed waiting for table %s to become active: %w", schema.TableName, err)
	}
	s.logger().Info("table",
		zap.String("table", aws.ToString(describe.Table.TableName)),
		zap.String("status", string(describe.Table.TableStatus)),
		zap.Duration("elapsed", time.Since(startTime)))
	return nil
}

// DeleteTable deletes a table and waits until it is gone.
func (s DynamoStore) DeleteTable(ctx context.Context, tableName string) error {
	res, err := s.Client.DeleteTable(ctx, &dynamodb.DeleteTableInput{TableName: aws.String(tableName)})
	if err != nil {
		return s.storeError("delete table", tableName, err)
	}
	s.logger().Info("table",
		zap.String("table", aws.ToString(res.TableDescription.TableName)),
		zap.String("status", string(res.TableDescription.TableStatus)))

	waiter := dynamodb.NewTableNotExistsWaiter(s.Client, func(o *dynamodb.TableNotExistsWaiterOptions) {
		o.MinDelay = s.waitMinDelay()
		o.MaxDelay = max(s.waitMinDelay(), 120*time.Second)
	})
	if err = waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(tableName)}, s.waitTimeout()); err != nil {
		return fmt.Errorf("failed waiting for table %s to be deleted: %w", tableName, err)
	}
	return nil
}

// GetItem reads one item by key; a missing item yields nil.
func (s DynamoStore) GetItem(ctx context.Context, tableName string, key Item) (Item, error) {
	out, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:              aws.String(tableName),
		Key:                    key,
		ReturnConsumedCapacity: types.ReturnConsumedCapacityIndexes,
	})
	if err != nil {
		return nil, s.storeError("get item from", tableName, err)
	}
	s.logCapacity("get", out.ConsumedCapacity)
	if len(out.Item) == 0 {
		return nil, nil
	}
	return out.Item, nil
}

// PutItem writes a whole item.
func (s DynamoStore) PutItem(ctx context.Context, tableName string, item Item) error {
	out, err := s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:              aws.String(tableName),
		Item:                   item,
		ReturnConsumedCapacity: types.ReturnConsumedCapacityIndexes,
	})
	if err != nil {
		return s.storeError("put item in", tableName, err)
	}
	s.logCapacity("put", out.ConsumedCapacity)
	return nil
}

// UpdateItem sets and removes attributes of one item.
func (s DynamoStore) UpdateItem(ctx context.Context, tableName string, key Item, set Item, remove []string) error {
	if len(set) == 0 && len(remove) == 0 {
		return nil
	}
	update, names, values := updateExpression(set, remove)
	req := dynamodb.UpdateItemInput{
		TableName:                aws.String(tableName),
		Key:                      key,
		UpdateExpression:         aws.String(update),
		ExpressionAttributeNames: names,
		ReturnConsumedCapacity:   types.ReturnConsumedCapacityIndexes,
	}
	if len(values) > 0 {
		req.ExpressionAttributeValues = values
	}
	out, err := s.Client.UpdateItem(ctx, &req)
	if err != nil {
		return s.storeError("update item in", tableName, err)
	}
	s.logCapacity("update", out.ConsumedCapacity)
	return nil
}

// updateExpression builds "SET #f0 = :f0, ... REMOVE #f1, ..." with placeholders in sorted
// attribute name order.
func updateExpression(set Item, remove []string) (string, map[string]string, map[string]types.AttributeValue) {
	names := make(map[string]string, len(set)+len(remove))
	values := make(map[string]types.AttributeValue, len(set))
	setNames := make([]string, 0, len(set))
	for name := range set {
		setNames = append(setNames, name)
	}
	sort.Strings(setNames)
	removeNames := append([]string(nil), remove...)
	sort.Strings(removeNames)

	var clauses []string
	i := 0
	if len(setNames) > 0 {
		assignments := make([]string, len(setNames))
		for j, name := range setNames {
			ph := "f" + strconv.Itoa(i)
			names["#"+ph] = name
			values[":"+ph] = set[name]
			assignments[j] = "#" + ph + " = :" + ph
			i++
		}
		clauses = append(clauses, "SET "+strings.Join(assignments, ", "))
	}
	if len(removeNames) > 0 {
		paths := make([]string, len(removeNames))
		for j, name := range removeNames {
			ph := "f" + strconv.Itoa(i)
			names["#"+ph] = name
			paths[j] = "#" + ph
			i++
		}
		clauses = append(clauses, "REMOVE "+strings.Join(paths, ", "))
	}
	return strings.Join(clauses, " "), names, values
}

// DeleteItem deletes one item by key. Deleting an absent key succeeds.
func (s DynamoStore) DeleteItem(ctx context.Context, tableName string, key Item) error {
	out, err := s.Client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:              aws.String(tableName),
		Key:                    key,
		ReturnConsumedCapacity: types.ReturnConsumedCapacityIndexes,
	})
	if err != nil {
		return s.storeError("delete item from", tableName, err)
	}
	s.logCapacity("delete", out.ConsumedCapacity)
	return nil
}

// Scan reads one page of a table, applying the filter on the server.
func (s DynamoStore) Scan(ctx context.Context, tableName string, req ScanRequest) (ScanResult, error) {
	input := dynamodb.ScanInput{
		TableName:              aws.String(tableName),
		ReturnConsumedCapacity: types.ReturnConsumedCapacityIndexes,
	}
	if req.Limit > 0 {
		input.Limit = aws.Int32(int32(min(req.Limit, math.MaxInt32)))
	}
	if len(req.StartKey) > 0 {
		input.ExclusiveStartKey = req.StartKey
	}
	if !req.Filter.IsZero() {
		expr, err := expression.NewBuilder().WithFilter(req.Filter.Condition()).Build()
		if err != nil {
			return ScanResult{}, fmt.Errorf("failed building filter for %s: %w", tableName, err)
		}
		input.FilterExpression = expr.Filter()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}
	out, err := s.Client.Scan(ctx, &input)
	if err != nil {
		return ScanResult{}, s.storeError("scan", tableName, err)
	}
	s.logCapacity("scan", out.ConsumedCapacity)
	res := ScanResult{Items: out.Items}
	if len(out.LastEvaluatedKey) > 0 {
		res.LastKey = out.LastEvaluatedKey
	}
	return res, nil
}
