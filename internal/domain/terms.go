package domain

import "time"

// Terms is a terms-and-policies document. The platform keeps at most two
// (terms of use and privacy policy).
type Terms struct {
	TermsID   string    `json:"id" dynamodbav:"terms_id"`
	Content   string    `json:"content" dynamodbav:"content"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

type TermsRequest struct {
	Content string `json:"content" validate:"required"`
}
