// Package dynamo provides a kv.Store on a DynamoDB table.
//
// Every item carries a revision number. Reads record the revision they saw
// and the commit is a single TransactWriteItems call whose condition
// expressions require those revisions to be unchanged, so an Update either
// applies all of its writes or none. Lost races surface as kv.ErrConflict and
// are retried with exponential backoff up to Config.MaxAttempts.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cenkalti/backoff/v5"

	"github.com/jacentio/forumledger/kv"
)

var _ kv.Store = (*Store)(nil)

// maxTransactItems is the DynamoDB limit on items in one transaction.
const maxTransactItems = 100

// API is the subset of *dynamodb.Client the store uses.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Store provides transactional key-value operations on one DynamoDB table.
type Store struct {
	client API
	config Config
}

// New creates a new Store instance.
func New(client API, config Config) *Store {
	config.validate()
	return &Store{
		client: client,
		config: config,
	}
}

// Table returns the ledger table name.
func (s *Store) Table() string {
	return s.config.Table
}

// record is the stored shape of one key.
type record struct {
	PK  []byte `dynamodbav:"pk"`
	Val []byte `dynamodbav:"val"`
	Rev int64  `dynamodbav:"rev"`
}

// View runs fn with strongly consistent reads. Nothing is committed.
func (s *Store) View(ctx context.Context, fn func(kv.Reader) error) error {
	return fn(s.newTxn(ctx, true))
}

// Update runs fn and commits its writes in one transaction, retrying the
// whole function when the commit conflicts with a concurrent writer.
func (s *Store) Update(ctx context.Context, fn func(kv.Txn) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.config.RetryBaseDelay

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := s.updateOnce(ctx, fn)
		if err != nil && !errors.Is(err, kv.ErrConflict) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(s.config.MaxAttempts)),
	)
	return err
}

func (s *Store) updateOnce(ctx context.Context, fn func(kv.Txn) error) error {
	t := s.newTxn(ctx, false)
	if err := fn(t); err != nil {
		return err
	}
	return t.commit()
}

// Close is a no-op; the client is owned by the caller.
func (s *Store) Close() error {
	return nil
}

func (s *Store) newTxn(ctx context.Context, readOnly bool) *txn {
	return &txn{
		ctx:      ctx,
		store:    s,
		readOnly: readOnly,
		reads:    make(map[string]observed),
		writes:   make(map[string][]byte),
	}
}

// observed is what a transaction saw for one key.
type observed struct {
	value  []byte
	rev    int64 // 0 when the key was absent
	exists bool
}

type txn struct {
	ctx      context.Context
	store    *Store
	readOnly bool
	reads    map[string]observed
	writes   map[string][]byte
}

func (t *txn) Get(key []byte) ([]byte, error) {
	if err := kv.CheckKey(key); err != nil {
		return nil, err
	}
	if v, ok := t.writes[string(key)]; ok {
		return kv.Clone(v), nil
	}
	obs, err := t.read(key)
	if err != nil {
		return nil, err
	}
	if !obs.exists {
		return nil, kv.ErrNotFound
	}
	return kv.Clone(obs.value), nil
}

func (t *txn) Has(key []byte) (bool, error) {
	if err := kv.CheckKey(key); err != nil {
		return false, err
	}
	if _, ok := t.writes[string(key)]; ok {
		return true, nil
	}
	obs, err := t.read(key)
	if err != nil {
		return false, err
	}
	return obs.exists, nil
}

func (t *txn) Set(key, value []byte) error {
	if err := kv.CheckKey(key); err != nil {
		return err
	}
	if t.readOnly {
		return kv.ErrReadOnly
	}
	if value == nil {
		value = []byte{}
	}
	t.writes[string(key)] = kv.Clone(value)
	return nil
}

// read fetches key once per transaction and remembers its revision.
func (t *txn) read(key []byte) (observed, error) {
	if obs, ok := t.reads[string(key)]; ok {
		return obs, nil
	}

	result, err := t.store.client.GetItem(t.ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(t.store.config.Table),
		Key:            keyAttr(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return observed{}, fmt.Errorf("get item: %w", err)
	}

	var obs observed
	if result.Item != nil {
		var rec record
		if err := attributevalue.UnmarshalMap(result.Item, &rec); err != nil {
			return observed{}, fmt.Errorf("unmarshal item: %w", err)
		}
		obs = observed{value: rec.Val, rev: rec.Rev, exists: true}
		if obs.value == nil {
			obs.value = []byte{}
		}
	}
	t.reads[string(key)] = obs
	return obs, nil
}

// commit builds and executes the transaction.
func (t *txn) commit() error {
	if len(t.writes) == 0 {
		return nil
	}
	items, err := t.transactItems()
	if err != nil {
		return err
	}
	_, err = t.store.client.TransactWriteItems(t.ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	return mapCommitError(err)
}

// transactItems returns one write per written key and one ConditionCheck per
// key that was read but not written. A key that was read is written with a Put
// conditioned on its observed revision. A key that was only written is
// updated in place so its revision keeps counting up from the stored value.
// Keys are sorted so the request is deterministic.
func (t *txn) transactItems() ([]types.TransactWriteItem, error) {
	table := aws.String(t.store.config.Table)

	writeKeys := sortedKeys(t.writes)
	items := make([]types.TransactWriteItem, 0, len(t.writes)+len(t.reads))

	for _, k := range writeKeys {
		obs, wasRead := t.reads[k]
		if !wasRead {
			items = append(items, types.TransactWriteItem{Update: blindUpdate(table, []byte(k), t.writes[k])})
			continue
		}
		item, err := attributevalue.MarshalMap(record{
			PK:  []byte(k),
			Val: t.writes[k],
			Rev: obs.rev + 1,
		})
		if err != nil {
			return nil, fmt.Errorf("marshal item: %w", err)
		}
		cond, names, values := revisionCondition(obs)
		items = append(items, types.TransactWriteItem{Put: &types.Put{
			TableName:                 table,
			Item:                      item,
			ConditionExpression:       aws.String(cond),
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		}})
	}

	for _, k := range sortedKeys(t.reads) {
		if _, written := t.writes[k]; written {
			continue
		}
		cond, names, values := revisionCondition(t.reads[k])
		items = append(items, types.TransactWriteItem{
			ConditionCheck: &types.ConditionCheck{
				TableName:                 table,
				Key:                       keyAttr([]byte(k)),
				ConditionExpression:       aws.String(cond),
				ExpressionAttributeNames:  names,
				ExpressionAttributeValues: values,
			},
		})
	}

	if len(items) > maxTransactItems {
		return nil, fmt.Errorf("dynamo: transaction touches %d items, limit is %d", len(items), maxTransactItems)
	}
	return items, nil
}

// blindUpdateExpression stores a value and advances the stored revision, or
// starts it at 1 for a new item.
const blindUpdateExpression = "SET #val = :val, #rev = if_not_exists(#rev, :zero) + :one"

func blindUpdate(table *string, key, value []byte) *types.Update {
	return &types.Update{
		TableName:        table,
		Key:              keyAttr(key),
		UpdateExpression: aws.String(blindUpdateExpression),
		ExpressionAttributeNames: map[string]string{
			"#val": "val",
			"#rev": "rev",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":val":  &types.AttributeValueMemberB{Value: value},
			":zero": &types.AttributeValueMemberN{Value: "0"},
			":one":  &types.AttributeValueMemberN{Value: "1"},
		},
	}
}

// revisionCondition requires the item to still be at the observed revision.
func revisionCondition(obs observed) (string, map[string]string, map[string]types.AttributeValue) {
	if !obs.exists {
		return "attribute_not_exists(#pk)", map[string]string{"#pk": "pk"}, nil
	}
	return "#rev = :rev",
		map[string]string{"#rev": "rev"},
		map[string]types.AttributeValue{
			":rev": &types.AttributeValueMemberN{Value: strconv.FormatInt(obs.rev, 10)},
		}
}

// mapCommitError maps DynamoDB transaction errors to kv errors.
func mapCommitError(err error) error {
	if err == nil {
		return nil
	}

	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		for _, reason := range txErr.CancellationReasons {
			if reason.Code == nil {
				continue
			}
			switch *reason.Code {
			case "ConditionalCheckFailed", "TransactionConflict":
				return kv.ErrConflict
			}
		}
	}

	var conflictErr *types.TransactionConflictException
	if errors.As(err, &conflictErr) {
		return kv.ErrConflict
	}

	return fmt.Errorf("transact write items: %w", err)
}

func keyAttr(key []byte) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberB{Value: key},
	}
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
