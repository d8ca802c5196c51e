package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/natour-api/internal/domain"
)

// PhotoRepo provides typed DynamoDB operations for the photos table.
// Photo bytes live in S3; this table is the metadata and ownership index.
type PhotoRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewPhotoRepo(client *dynamodb.Client, tableName string) *PhotoRepo {
	return &PhotoRepo{client: client, tableName: tableName}
}

func (r *PhotoRepo) Put(ctx context.Context, p *domain.Photo) error {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal photo: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *PhotoRepo) Get(ctx context.Context, photoID string) (*domain.Photo, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("photo_id", photoID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("photo not found: %w", domain.ErrNotFound)
	}
	var p domain.Photo
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PhotoRepo) Delete(ctx context.Context, photoID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("photo_id", photoID),
	})
	return err
}

// GetByUser returns the user's profile photo, if any. Users have at most
// one; a new upload replaces it.
func (r *PhotoRepo) GetByUser(ctx context.Context, userID string) (*domain.Photo, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-index"),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("photo not found: %w", domain.ErrNotFound)
	}
	var p domain.Photo
	if err := attributevalue.UnmarshalMap(out.Items[0], &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByUser returns all photos attached to a user.
func (r *PhotoRepo) ListByUser(ctx context.Context, userID string) ([]domain.Photo, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-index"),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, err
	}
	var photos []domain.Photo
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &photos); err != nil {
		return nil, err
	}
	return photos, nil
}

// ListByPoint returns all photos attached to a point.
func (r *PhotoRepo) ListByPoint(ctx context.Context, pointID string) ([]domain.Photo, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("point_id-index"),
		KeyConditionExpression: aws.String("point_id = :pid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pid": &types.AttributeValueMemberS{Value: pointID},
		},
	})
	if err != nil {
		return nil, err
	}
	var photos []domain.Photo
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &photos); err != nil {
		return nil, err
	}
	return photos, nil
}
