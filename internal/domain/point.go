package domain

import "time"

// Point types accepted by the directory.
const (
	PointTrail     = "trail"
	PointWaterfall = "water_fall"
	PointPark      = "park"
	PointFarm      = "farm"
	PointOther     = "other"
)

// ValidPointType reports whether t is one of the accepted point types.
func ValidPointType(t string) bool {
	switch t {
	case PointTrail, PointWaterfall, PointPark, PointFarm, PointOther:
		return true
	}
	return false
}

// Point is a user-submitted point of interest. Approved is false until a
// master user approves the submission; IsActive controls visibility on the
// map and can be toggled independently after approval.
type Point struct {
	PointID            string    `json:"id" dynamodbav:"point_id"`
	UserID             string    `json:"user_id" dynamodbav:"user_id"`
	Name               string    `json:"name" dynamodbav:"name"`
	Approved           bool      `json:"status" dynamodbav:"approved"`
	IsActive           bool      `json:"is_active" dynamodbav:"is_active"`
	Views              int       `json:"views" dynamodbav:"views"`
	AvgRating          int       `json:"avg_rating" dynamodbav:"avg_rating"`
	Description        string    `json:"description" dynamodbav:"description"`
	PointType          string    `json:"point_type" dynamodbav:"point_type"`
	WeekStart          string    `json:"week_start" dynamodbav:"week_start"` // YYYY-MM-DD
	WeekEnd            string    `json:"week_end" dynamodbav:"week_end"`
	OpenTime           string    `json:"open_time" dynamodbav:"open_time"` // HH:MM
	CloseTime          string    `json:"close_time" dynamodbav:"close_time"`
	Link               *string   `json:"link,omitempty" dynamodbav:"link"`
	Latitude           *float64  `json:"latitude,omitempty" dynamodbav:"latitude"`
	Longitude          *float64  `json:"longitude,omitempty" dynamodbav:"longitude"`
	ZipCode            string    `json:"zip_code" dynamodbav:"zip_code"`
	City               string    `json:"city" dynamodbav:"city"`
	Neighborhood       string    `json:"neighborhood" dynamodbav:"neighborhood"`
	State              string    `json:"state" dynamodbav:"state"`
	Street             string    `json:"street" dynamodbav:"street"`
	Number             string    `json:"number" dynamodbav:"number"`
	DeactivationReason *string   `json:"deactivation_reason,omitempty" dynamodbav:"deactivation_reason"`
	CreatedAt          time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt          time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreatePointRequest struct {
	Name         string   `json:"name" validate:"required,max=100"`
	Description  string   `json:"description" validate:"required"`
	PointType    string   `json:"point_type" validate:"required"`
	WeekStart    string   `json:"week_start" validate:"required"`
	WeekEnd      string   `json:"week_end" validate:"required"`
	OpenTime     string   `json:"open_time" validate:"required"`
	CloseTime    string   `json:"close_time" validate:"required"`
	Link         *string  `json:"link" validate:"omitempty,url"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	ZipCode      string   `json:"zip_code" validate:"required,max=20"`
	City         string   `json:"city" validate:"required,max=100"`
	Neighborhood string   `json:"neighborhood" validate:"required,max=100"`
	State        string   `json:"state" validate:"required,max=100"`
	Street       string   `json:"street" validate:"required,max=200"`
	Number       string   `json:"number" validate:"required,max=20"`
}

// UpdatePointRequest is a partial edit of a point by its owner.
type UpdatePointRequest struct {
	Name         *string  `json:"name" validate:"omitempty,max=100"`
	Description  *string  `json:"description"`
	PointType    *string  `json:"point_type"`
	WeekStart    *string  `json:"week_start"`
	WeekEnd      *string  `json:"week_end"`
	OpenTime     *string  `json:"open_time"`
	CloseTime    *string  `json:"close_time"`
	Link         *string  `json:"link" validate:"omitempty,url"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	ZipCode      *string  `json:"zip_code" validate:"omitempty,max=20"`
	City         *string  `json:"city" validate:"omitempty,max=100"`
	Neighborhood *string  `json:"neighborhood" validate:"omitempty,max=100"`
	State        *string  `json:"state" validate:"omitempty,max=100"`
	Street       *string  `json:"street" validate:"omitempty,max=200"`
	Number       *string  `json:"number" validate:"omitempty,max=20"`
}

// PointStatusRequest carries the reason when a point is rejected or
// deactivated.
type PointStatusRequest struct {
	DeactivationReason string `json:"deactivation_reason"`
}

// PointOwnerStatusRequest lets the owner pause or resume their own point.
// Deactivation requires a reason; reactivation clears it.
type PointOwnerStatusRequest struct {
	IsActive           *bool  `json:"is_active" validate:"required"`
	DeactivationReason string `json:"deactivation_reason"`
}
