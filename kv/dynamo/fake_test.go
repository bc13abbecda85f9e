package dynamo

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo implements API against an in-memory table. It understands only
// the condition expressions this package emits.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue

	// beforeCommit runs with the lock held at the start of every
	// TransactWriteItems call, to simulate a concurrent writer.
	beforeCommit func(f *fakeDynamo)

	gets    int
	commits int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func pkOf(key map[string]types.AttributeValue) string {
	b, ok := key["pk"].(*types.AttributeValueMemberB)
	if !ok {
		return ""
	}
	return string(b.Value)
}

func revOf(item map[string]types.AttributeValue) int64 {
	n, ok := item["rev"].(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	rev, _ := strconv.ParseInt(n.Value, 10, 64)
	return rev
}

// bump overwrites a stored item's revision as another writer would.
func (f *fakeDynamo) bump(key string) {
	item, ok := f.items[key]
	if !ok {
		item = map[string]types.AttributeValue{
			"pk":  &types.AttributeValueMemberB{Value: []byte(key)},
			"val": &types.AttributeValueMemberB{Value: []byte("other")},
		}
		f.items[key] = item
	}
	item["rev"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(revOf(item)+1, 10)}
}

func (f *fakeDynamo) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++

	item, ok := f.items[pkOf(params.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return &dynamodb.GetItemOutput{Item: out}, nil
}

func (f *fakeDynamo) TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits++

	if f.beforeCommit != nil {
		f.beforeCommit(f)
	}

	reasons := make([]types.CancellationReason, len(params.TransactItems))
	failed := false
	for i, ti := range params.TransactItems {
		reasons[i] = types.CancellationReason{Code: aws.String("None")}

		var key string
		var cond *string
		var values map[string]types.AttributeValue
		switch {
		case ti.Put != nil:
			key, cond, values = pkOf(ti.Put.Item), ti.Put.ConditionExpression, ti.Put.ExpressionAttributeValues
		case ti.Update != nil:
			key, cond, values = pkOf(ti.Update.Key), ti.Update.ConditionExpression, ti.Update.ExpressionAttributeValues
		case ti.ConditionCheck != nil:
			key, cond, values = pkOf(ti.ConditionCheck.Key), ti.ConditionCheck.ConditionExpression, ti.ConditionCheck.ExpressionAttributeValues
		default:
			return nil, fmt.Errorf("fake: unsupported transact item %d", i)
		}

		ok, err := f.evaluate(key, cond, values)
		if err != nil {
			return nil, err
		}
		if !ok {
			reasons[i] = types.CancellationReason{Code: aws.String("ConditionalCheckFailed")}
			failed = true
		}
	}

	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}

	for _, ti := range params.TransactItems {
		switch {
		case ti.Put != nil:
			f.items[pkOf(ti.Put.Item)] = ti.Put.Item
		case ti.Update != nil:
			if err := f.applyUpdate(ti.Update); err != nil {
				return nil, err
			}
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

// applyUpdate executes the blind write update expression.
func (f *fakeDynamo) applyUpdate(u *types.Update) error {
	if aws.ToString(u.UpdateExpression) != blindUpdateExpression {
		return fmt.Errorf("fake: unsupported update expression %q", aws.ToString(u.UpdateExpression))
	}
	key := pkOf(u.Key)
	rev := revOf(f.items[key]) + 1
	f.items[key] = map[string]types.AttributeValue{
		"pk":  &types.AttributeValueMemberB{Value: []byte(key)},
		"val": u.ExpressionAttributeValues[":val"],
		"rev": &types.AttributeValueMemberN{Value: strconv.FormatInt(rev, 10)},
	}
	return nil
}

func (f *fakeDynamo) evaluate(key string, cond *string, values map[string]types.AttributeValue) (bool, error) {
	if cond == nil {
		return true, nil
	}
	item, exists := f.items[key]
	switch *cond {
	case "attribute_not_exists(#pk)":
		return !exists, nil
	case "#rev = :rev":
		want, ok := values[":rev"].(*types.AttributeValueMemberN)
		if !ok {
			return false, fmt.Errorf("fake: missing :rev")
		}
		return exists && strconv.FormatInt(revOf(item), 10) == want.Value, nil
	default:
		return false, fmt.Errorf("fake: unsupported condition %q", *cond)
	}
}
