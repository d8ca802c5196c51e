package domain

import "time"

// Review is a rating left by a user on a point. One review per user per
// point; PK: point_id, SK: user_id.
type Review struct {
	PointID   string    `json:"point_id" dynamodbav:"point_id"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Rating    int       `json:"rating" dynamodbav:"rating"` // 1..5
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateReviewRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"`
}
