package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoKV stores each slot as an item keyed by "pk" with the JSON blob in
// the binary attribute "value".
type DynamoKV struct {
	client dynamoAPI
	table  string
}

func NewDynamoKV(client dynamoAPI, table string) *DynamoKV {
	return &DynamoKV{client: client, table: table}
}

func (d *DynamoKV) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.table),
		Key:            map[string]types.AttributeValue{"pk": &types.AttributeValueMemberS{Value: key}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, ErrNoValue
	}

	v, ok := out.Item["value"].(*types.AttributeValueMemberB)
	if !ok {
		return nil, fmt.Errorf("dynamodb item %s has no binary value", key)
	}
	return v.Value, nil
}

func (d *DynamoKV) Put(ctx context.Context, key string, value []byte) error {
	_, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item: map[string]types.AttributeValue{
			"pk":         &types.AttributeValueMemberS{Value: key},
			"value":      &types.AttributeValueMemberB{Value: value},
			"updated_at": &types.AttributeValueMemberN{Value: strconv.FormatInt(time.Now().Unix(), 10)},
		},
	})
	return err
}
