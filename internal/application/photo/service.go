package photo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/natour-api/internal/domain"
	"github.com/natour-api/internal/pkg/id"
)

// Presigned download links stay valid this long.
const presignTTL = 15 * time.Minute

// UploadInput is one multipart file to attach.
type UploadInput struct {
	// PointID attaches the photo to a point; nil attaches it to the
	// uploader's profile.
	PointID     *string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Service interface {
	// Upload stores the bytes in S3 and the metadata row in DynamoDB. A
	// profile photo replaces the uploader's previous one; a point photo
	// requires the uploader to own the point.
	Upload(ctx context.Context, uploaderID string, in UploadInput) (*domain.Photo, error)
	// Get returns the photo metadata with a fresh presigned download URL.
	Get(ctx context.Context, photoID string) (*domain.Photo, error)
	ListByPoint(ctx context.Context, pointID string) ([]domain.Photo, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Photo, error)
	// Delete removes the metadata row and the S3 object. Only the owner
	// (or a master, enforced by the caller) may delete.
	Delete(ctx context.Context, requesterID string, isMaster bool, photoID string) error
}

type photoStore interface {
	Put(ctx context.Context, p *domain.Photo) error
	Get(ctx context.Context, photoID string) (*domain.Photo, error)
	Delete(ctx context.Context, photoID string) error
	GetByUser(ctx context.Context, userID string) (*domain.Photo, error)
	ListByPoint(ctx context.Context, pointID string) ([]domain.Photo, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Photo, error)
}

type pointStore interface {
	Get(ctx context.Context, pointID string) (*domain.Point, error)
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type service struct {
	photoRepo photoStore
	pointRepo pointStore
	objects   objectStore
}

type ServiceDeps struct {
	PhotoRepo   photoStore
	PointRepo   pointStore
	ObjectStore objectStore
}

func NewService(deps ServiceDeps) Service {
	return &service{photoRepo: deps.PhotoRepo, pointRepo: deps.PointRepo, objects: deps.ObjectStore}
}

func (s *service) Upload(ctx context.Context, uploaderID string, in UploadInput) (*domain.Photo, error) {
	if !strings.HasPrefix(in.ContentType, "image/") {
		return nil, fmt.Errorf("file must be an image: %w", domain.ErrBadRequest)
	}

	photoID := id.New()
	var key string
	var ownerUser, ownerPoint *string
	if in.PointID != nil {
		p, err := s.pointRepo.Get(ctx, *in.PointID)
		if err != nil {
			return nil, err
		}
		if p.UserID != uploaderID {
			return nil, fmt.Errorf("only the point owner may add photos: %w", domain.ErrForbidden)
		}
		key = fmt.Sprintf("points/%s/%s", *in.PointID, photoID)
		ownerPoint = in.PointID
	} else {
		key = fmt.Sprintf("users/%s/%s", uploaderID, photoID)
		ownerUser = &uploaderID
	}

	url, err := s.objects.Upload(ctx, key, in.Body, in.ContentType)
	if err != nil {
		return nil, err
	}

	// One profile photo per user: remove the previous one after the new
	// upload landed.
	if ownerUser != nil {
		if prev, err := s.photoRepo.GetByUser(ctx, uploaderID); err == nil {
			if err := s.photoRepo.Delete(ctx, prev.PhotoID); err != nil {
				slog.Warn("failed to delete replaced profile photo row", "photo_id", prev.PhotoID, "err", err)
			}
			if err := s.objects.Delete(ctx, prev.S3Key); err != nil {
				slog.Warn("failed to delete replaced profile photo object", "s3_key", prev.S3Key, "err", err)
			}
		}
	}

	now := time.Now().UTC()
	photo := &domain.Photo{
		PhotoID:     photoID,
		UserID:      ownerUser,
		PointID:     ownerPoint,
		S3Key:       key,
		URL:         url,
		ContentType: in.ContentType,
		SizeBytes:   in.Size,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.photoRepo.Put(ctx, photo); err != nil {
		return nil, err
	}
	return photo, nil
}

func (s *service) Get(ctx context.Context, photoID string) (*domain.Photo, error) {
	p, err := s.photoRepo.Get(ctx, photoID)
	if err != nil {
		return nil, err
	}
	url, err := s.objects.PresignedURL(ctx, p.S3Key, presignTTL)
	if err != nil {
		return nil, err
	}
	p.URL = url
	return p, nil
}

func (s *service) ListByPoint(ctx context.Context, pointID string) ([]domain.Photo, error) {
	photos, err := s.photoRepo.ListByPoint(ctx, pointID)
	if err != nil {
		return nil, err
	}
	return s.presignAll(ctx, photos)
}

func (s *service) ListByUser(ctx context.Context, userID string) ([]domain.Photo, error) {
	photos, err := s.photoRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.presignAll(ctx, photos)
}

func (s *service) presignAll(ctx context.Context, photos []domain.Photo) ([]domain.Photo, error) {
	for i := range photos {
		url, err := s.objects.PresignedURL(ctx, photos[i].S3Key, presignTTL)
		if err != nil {
			return nil, err
		}
		photos[i].URL = url
	}
	return photos, nil
}

func (s *service) Delete(ctx context.Context, requesterID string, isMaster bool, photoID string) error {
	p, err := s.photoRepo.Get(ctx, photoID)
	if err != nil {
		return err
	}
	if !isMaster {
		owned, err := s.ownedBy(ctx, p, requesterID)
		if err != nil {
			return err
		}
		if !owned {
			return fmt.Errorf("only the photo owner may delete it: %w", domain.ErrForbidden)
		}
	}
	if err := s.photoRepo.Delete(ctx, photoID); err != nil {
		return err
	}
	if err := s.objects.Delete(ctx, p.S3Key); err != nil {
		slog.Warn("failed to delete photo object", "s3_key", p.S3Key, "err", err)
	}
	return nil
}

// ownedBy reports whether userID owns the photo: directly for a profile
// photo, through point ownership for a point photo.
func (s *service) ownedBy(ctx context.Context, p *domain.Photo, userID string) (bool, error) {
	if p.UserID != nil {
		return *p.UserID == userID, nil
	}
	if p.PointID == nil {
		return false, nil
	}
	point, err := s.pointRepo.Get(ctx, *p.PointID)
	if err != nil {
		return false, err
	}
	return point.UserID == userID, nil
}
