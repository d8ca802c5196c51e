package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/natour-api/internal/domain"
)

// PointRepo provides typed DynamoDB operations for the points table.
type PointRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewPointRepo(client *dynamodb.Client, tableName string) *PointRepo {
	return &PointRepo{client: client, tableName: tableName}
}

func (r *PointRepo) Put(ctx context.Context, p *domain.Point) error {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal point: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *PointRepo) Get(ctx context.Context, pointID string) (*domain.Point, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("point_id", pointID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("point not found: %w", domain.ErrNotFound)
	}
	var p domain.Point
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PointRepo) Update(ctx context.Context, pointID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("point_id", pointID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

func (r *PointRepo) Delete(ctx context.Context, pointID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("point_id", pointID),
	})
	return err
}

// IncrementViews bumps the view counter atomically with an ADD expression;
// concurrent viewers never lose an increment.
func (r *PointRepo) IncrementViews(ctx context.Context, pointID string) (int, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              strKey("point_id", pointID),
		UpdateExpression: aws.String("ADD #v :one"),
		ExpressionAttributeNames: map[string]string{
			"#v": fieldViews,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ConditionExpression: aws.String("attribute_exists(point_id)"),
		ReturnValues:        types.ReturnValueUpdatedNew,
	})
	if err != nil {
		var ccfe *types.ConditionalCheckFailedException
		if errors.As(err, &ccfe) {
			return 0, fmt.Errorf("point not found: %w", domain.ErrNotFound)
		}
		return 0, err
	}
	var views int
	if err := attributevalue.Unmarshal(out.Attributes[fieldViews], &views); err != nil {
		return 0, err
	}
	return views, nil
}

// ScanAll returns every point record, following pagination.
func (r *PointRepo) ScanAll(ctx context.Context) ([]domain.Point, error) {
	var points []domain.Point
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.Point
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		points = append(points, page...)
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return points, nil
}
