package review

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/natour-api/internal/domain"
)

type Service interface {
	// Add stores a review and recomputes the point's rounded average
	// rating. A user may review a point once.
	Add(ctx context.Context, userID, pointID string, req domain.CreateReviewRequest) (*domain.Review, error)
	ListByPoint(ctx context.Context, pointID string) ([]domain.Review, error)
}

type reviewStore interface {
	Put(ctx context.Context, rev *domain.Review) error
	ListByPoint(ctx context.Context, pointID string) ([]domain.Review, error)
}

type pointStore interface {
	Get(ctx context.Context, pointID string) (*domain.Point, error)
	Update(ctx context.Context, pointID string, updates map[string]interface{}) error
}

type service struct {
	reviewRepo reviewStore
	pointRepo  pointStore
}

type ServiceDeps struct {
	ReviewRepo reviewStore
	PointRepo  pointStore
}

func NewService(deps ServiceDeps) Service {
	return &service{reviewRepo: deps.ReviewRepo, pointRepo: deps.PointRepo}
}

func (s *service) Add(ctx context.Context, userID, pointID string, req domain.CreateReviewRequest) (*domain.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, fmt.Errorf("rating must be between 1 and 5: %w", domain.ErrBadRequest)
	}
	if _, err := s.pointRepo.Get(ctx, pointID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rev := &domain.Review{
		PointID:   pointID,
		UserID:    userID,
		Rating:    req.Rating,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// The store rejects a second review by the same user with a
	// conditional write, so the uniqueness check and the insert are one
	// operation.
	if err := s.reviewRepo.Put(ctx, rev); err != nil {
		return nil, err
	}

	if err := s.recomputeAverage(ctx, pointID); err != nil {
		return nil, err
	}
	return rev, nil
}

func (s *service) ListByPoint(ctx context.Context, pointID string) ([]domain.Review, error) {
	if _, err := s.pointRepo.Get(ctx, pointID); err != nil {
		return nil, err
	}
	return s.reviewRepo.ListByPoint(ctx, pointID)
}

func (s *service) recomputeAverage(ctx context.Context, pointID string) error {
	reviews, err := s.reviewRepo.ListByPoint(ctx, pointID)
	if err != nil {
		return err
	}
	if len(reviews) == 0 {
		return nil
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	avg := int(math.Round(float64(sum) / float64(len(reviews))))
	return s.pointRepo.Update(ctx, pointID, map[string]interface{}{"avg_rating": avg})
}
