package domain

import "time"

// Photo is an uploaded image attached to exactly one of a user profile or a
// point. The bytes live in S3 under S3Key; this row is the metadata.
type Photo struct {
	PhotoID     string    `json:"id" dynamodbav:"photo_id"`
	UserID      *string   `json:"user_id,omitempty" dynamodbav:"user_id"`
	PointID     *string   `json:"point_id,omitempty" dynamodbav:"point_id"`
	S3Key       string    `json:"-" dynamodbav:"s3_key"`
	URL         string    `json:"image_url" dynamodbav:"url"`
	ContentType string    `json:"content_type" dynamodbav:"content_type"`
	SizeBytes   int64     `json:"size_bytes" dynamodbav:"size_bytes"`
	CreatedAt   time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updated" dynamodbav:"updated_at"`
}
