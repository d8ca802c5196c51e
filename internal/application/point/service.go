package point

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/natour-api/internal/domain"
	"github.com/natour-api/internal/pkg/id"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldApproved           = "approved"
	fieldIsActive           = "is_active"
	fieldAvgRating          = "avg_rating"
	fieldDeactivationReason = "deactivation_reason"
)

type Service interface {
	// Create registers a point pending moderation. Masters get an in-app
	// notification and an ops alert, both best-effort.
	Create(ctx context.Context, userID string, req domain.CreatePointRequest) (*domain.Point, error)
	Get(ctx context.Context, pointID string) (*domain.Point, error)
	// List pages through approved active points ordered by name, with an
	// optional case-insensitive name prefix filter.
	List(ctx context.Context, page, perPage int, search string) ([]domain.Point, domain.Page, error)
	// Map returns every approved active point.
	Map(ctx context.Context) ([]domain.Point, error)
	// ListByUser returns every point the user submitted, regardless of
	// moderation state.
	ListByUser(ctx context.Context, userID string) ([]domain.Point, error)
	Update(ctx context.Context, userID, pointID string, req domain.UpdatePointRequest) (*domain.Point, error)
	// SetOwnStatus pauses or resumes a point, owner only. Deactivation
	// requires a reason; reactivation clears it.
	SetOwnStatus(ctx context.Context, userID, pointID string, req domain.PointOwnerStatusRequest) (*domain.Point, error)
	// Approve activates a pending point. Approving an already approved
	// point is an error.
	Approve(ctx context.Context, pointID string) (*domain.Point, error)
	// Reject deactivates a point with a reason.
	Reject(ctx context.Context, pointID, reason string) (*domain.Point, error)
	Delete(ctx context.Context, pointID string) error
	// DeleteOwned deletes a point after checking ownership.
	DeleteOwned(ctx context.Context, userID, pointID string) error
	// AddView atomically increments the view counter and returns the new
	// count.
	AddView(ctx context.Context, pointID string) (int, error)
}

type pointStore interface {
	Put(ctx context.Context, p *domain.Point) error
	Get(ctx context.Context, pointID string) (*domain.Point, error)
	Update(ctx context.Context, pointID string, updates map[string]interface{}) error
	Delete(ctx context.Context, pointID string) error
	IncrementViews(ctx context.Context, pointID string) (int, error)
	ScanAll(ctx context.Context) ([]domain.Point, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	ScanAll(ctx context.Context) ([]domain.User, error)
}

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
}

type mailSender interface {
	SendEmail(to, subject, textBody, htmlBody string) error
}

type opsPublisher interface {
	Publish(ctx context.Context, subject, message string) error
}

type service struct {
	pointRepo        pointStore
	userRepo         userStore
	notificationRepo notificationStore
	mailer           mailSender
	publisher        opsPublisher
}

type ServiceDeps struct {
	PointRepo        pointStore
	UserRepo         userStore
	NotificationRepo notificationStore
	Mailer           mailSender
	Publisher        opsPublisher // nil disables ops alerts
}

func NewService(deps ServiceDeps) Service {
	return &service{
		pointRepo:        deps.PointRepo,
		userRepo:         deps.UserRepo,
		notificationRepo: deps.NotificationRepo,
		mailer:           deps.Mailer,
		publisher:        deps.Publisher,
	}
}

func (s *service) Create(ctx context.Context, userID string, req domain.CreatePointRequest) (*domain.Point, error) {
	if !domain.ValidPointType(req.PointType) {
		return nil, fmt.Errorf("point_type must be one of trail, water_fall, park, farm, other: %w", domain.ErrBadRequest)
	}
	now := time.Now().UTC()
	p := &domain.Point{
		PointID:      id.New(),
		UserID:       userID,
		Name:         req.Name,
		Approved:     false,
		IsActive:     false,
		Description:  req.Description,
		PointType:    req.PointType,
		WeekStart:    req.WeekStart,
		WeekEnd:      req.WeekEnd,
		OpenTime:     req.OpenTime,
		CloseTime:    req.CloseTime,
		Link:         req.Link,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		ZipCode:      req.ZipCode,
		City:         req.City,
		Neighborhood: req.Neighborhood,
		State:        req.State,
		Street:       req.Street,
		Number:       req.Number,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.pointRepo.Put(ctx, p); err != nil {
		return nil, err
	}

	go s.alertModerators(p)
	return p, nil
}

// alertModerators notifies every master user in-app and publishes an ops
// alert about a new submission. Failures are logged, never surfaced.
func (s *service) alertModerators(p *domain.Point) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users, err := s.userRepo.ScanAll(ctx)
	if err != nil {
		slog.Warn("failed to list users for moderation alert", "point_id", p.PointID, "err", err)
	} else {
		msg := fmt.Sprintf("New point %q is waiting for review.", p.Name)
		now := time.Now().UTC()
		for _, u := range users {
			if u.Role != domain.RoleMaster || !u.IsActive {
				continue
			}
			n := &domain.Notification{
				NotificationID: id.New(),
				UserID:         u.UserID,
				Message:        msg,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := s.notificationRepo.Put(ctx, n); err != nil {
				slog.Warn("failed to store moderation notification", "user_id", u.UserID, "err", err)
			}
		}
	}

	if s.publisher != nil {
		msg := fmt.Sprintf("point_id=%s name=%q city=%s submitted for moderation", p.PointID, p.Name, p.City)
		if err := s.publisher.Publish(ctx, "New point submission", msg); err != nil {
			slog.Warn("failed to publish moderation alert", "point_id", p.PointID, "err", err)
		}
	}
}

func (s *service) Get(ctx context.Context, pointID string) (*domain.Point, error) {
	return s.pointRepo.Get(ctx, pointID)
}

func (s *service) List(ctx context.Context, page, perPage int, search string) ([]domain.Point, domain.Page, error) {
	if page < 1 {
		return nil, domain.Page{}, fmt.Errorf("page must be a positive integer: %w", domain.ErrBadRequest)
	}
	if perPage < 1 {
		perPage = 20
	}
	points, err := s.visiblePoints(ctx)
	if err != nil {
		return nil, domain.Page{}, err
	}
	if search != "" {
		prefix := strings.ToLower(search)
		filtered := points[:0]
		for _, p := range points {
			if strings.HasPrefix(strings.ToLower(p.Name), prefix) {
				filtered = append(filtered, p)
			}
		}
		points = filtered
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Name < points[j].Name })

	pg := domain.NewPage(len(points), page, perPage)
	start := (page - 1) * perPage
	if start >= len(points) {
		return []domain.Point{}, pg, nil
	}
	end := start + perPage
	if end > len(points) {
		end = len(points)
	}
	return points[start:end], pg, nil
}

func (s *service) Map(ctx context.Context) ([]domain.Point, error) {
	points, err := s.visiblePoints(ctx)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no active points: %w", domain.ErrNotFound)
	}
	return points, nil
}

func (s *service) ListByUser(ctx context.Context, userID string) ([]domain.Point, error) {
	all, err := s.pointRepo.ScanAll(ctx)
	if err != nil {
		return nil, err
	}
	mine := []domain.Point{}
	for _, p := range all {
		if p.UserID == userID {
			mine = append(mine, p)
		}
	}
	sort.Slice(mine, func(i, j int) bool { return mine[i].Name < mine[j].Name })
	return mine, nil
}

func (s *service) visiblePoints(ctx context.Context) ([]domain.Point, error) {
	all, err := s.pointRepo.ScanAll(ctx)
	if err != nil {
		return nil, err
	}
	visible := all[:0]
	for _, p := range all {
		if p.Approved && p.IsActive {
			visible = append(visible, p)
		}
	}
	return visible, nil
}

func (s *service) Update(ctx context.Context, userID, pointID string, req domain.UpdatePointRequest) (*domain.Point, error) {
	p, err := s.pointRepo.Get(ctx, pointID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, fmt.Errorf("only the point owner may edit it: %w", domain.ErrForbidden)
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.PointType != nil {
		if !domain.ValidPointType(*req.PointType) {
			return nil, fmt.Errorf("point_type must be one of trail, water_fall, park, farm, other: %w", domain.ErrBadRequest)
		}
		updates["point_type"] = *req.PointType
	}
	if req.WeekStart != nil {
		updates["week_start"] = *req.WeekStart
	}
	if req.WeekEnd != nil {
		updates["week_end"] = *req.WeekEnd
	}
	if req.OpenTime != nil {
		updates["open_time"] = *req.OpenTime
	}
	if req.CloseTime != nil {
		updates["close_time"] = *req.CloseTime
	}
	if req.Link != nil {
		updates["link"] = *req.Link
	}
	if req.Latitude != nil {
		updates["latitude"] = *req.Latitude
	}
	if req.Longitude != nil {
		updates["longitude"] = *req.Longitude
	}
	if req.ZipCode != nil {
		updates["zip_code"] = *req.ZipCode
	}
	if req.City != nil {
		updates["city"] = *req.City
	}
	if req.Neighborhood != nil {
		updates["neighborhood"] = *req.Neighborhood
	}
	if req.State != nil {
		updates["state"] = *req.State
	}
	if req.Street != nil {
		updates["street"] = *req.Street
	}
	if req.Number != nil {
		updates["number"] = *req.Number
	}
	if len(updates) == 0 {
		return p, nil
	}
	if err := s.pointRepo.Update(ctx, pointID, updates); err != nil {
		return nil, err
	}
	return s.pointRepo.Get(ctx, pointID)
}

func (s *service) SetOwnStatus(ctx context.Context, userID, pointID string, req domain.PointOwnerStatusRequest) (*domain.Point, error) {
	p, err := s.pointRepo.Get(ctx, pointID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, fmt.Errorf("only the point owner may change its status: %w", domain.ErrForbidden)
	}
	active := *req.IsActive
	updates := map[string]interface{}{fieldIsActive: active}
	if active {
		updates[fieldDeactivationReason] = nil
	} else {
		if strings.TrimSpace(req.DeactivationReason) == "" {
			return nil, fmt.Errorf("deactivation requires a reason: %w", domain.ErrBadRequest)
		}
		updates[fieldDeactivationReason] = req.DeactivationReason
	}
	if err := s.pointRepo.Update(ctx, pointID, updates); err != nil {
		return nil, err
	}
	return s.pointRepo.Get(ctx, pointID)
}

func (s *service) Approve(ctx context.Context, pointID string) (*domain.Point, error) {
	p, err := s.pointRepo.Get(ctx, pointID)
	if err != nil {
		return nil, err
	}
	if p.Approved {
		return nil, fmt.Errorf("point is already approved: %w", domain.ErrBadRequest)
	}
	updates := map[string]interface{}{
		fieldApproved:           true,
		fieldIsActive:           true,
		fieldDeactivationReason: nil,
	}
	if err := s.pointRepo.Update(ctx, pointID, updates); err != nil {
		return nil, err
	}
	go s.notifyOwner(p, true, "")
	return s.pointRepo.Get(ctx, pointID)
}

func (s *service) Reject(ctx context.Context, pointID, reason string) (*domain.Point, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("rejection requires a reason: %w", domain.ErrBadRequest)
	}
	p, err := s.pointRepo.Get(ctx, pointID)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		fieldApproved:           false,
		fieldIsActive:           false,
		fieldDeactivationReason: reason,
	}
	if err := s.pointRepo.Update(ctx, pointID, updates); err != nil {
		return nil, err
	}
	go s.notifyOwner(p, false, reason)
	return s.pointRepo.Get(ctx, pointID)
}

// notifyOwner stores an in-app notification and emails the point owner
// about the moderation outcome, best-effort.
func (s *service) notifyOwner(p *domain.Point, approved bool, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var msg string
	if approved {
		msg = fmt.Sprintf("Your point %q was approved and is now live.", p.Name)
	} else {
		msg = fmt.Sprintf("Your point %q was rejected. Reason: %s", p.Name, reason)
	}
	now := time.Now().UTC()
	n := &domain.Notification{
		NotificationID: id.New(),
		UserID:         p.UserID,
		Message:        msg,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.notificationRepo.Put(ctx, n); err != nil {
		slog.Warn("failed to store moderation outcome notification", "user_id", p.UserID, "err", err)
	}

	owner, err := s.userRepo.Get(ctx, p.UserID)
	if err != nil {
		slog.Warn("failed to load point owner for email", "user_id", p.UserID, "err", err)
		return
	}
	subject := "Your point was approved"
	if !approved {
		subject = "Your point was rejected"
	}
	text := fmt.Sprintf("Hello %s,\n\n%s", owner.Username, msg)
	html := fmt.Sprintf("<p>Hello %s,</p><p>%s</p>", owner.Username, msg)
	if err := s.mailer.SendEmail(owner.Email, subject, text, html); err != nil {
		slog.Warn("failed to send moderation outcome email", "email", owner.Email, "err", err)
	}
}

func (s *service) Delete(ctx context.Context, pointID string) error {
	if _, err := s.pointRepo.Get(ctx, pointID); err != nil {
		return err
	}
	return s.pointRepo.Delete(ctx, pointID)
}

func (s *service) DeleteOwned(ctx context.Context, userID, pointID string) error {
	p, err := s.pointRepo.Get(ctx, pointID)
	if err != nil {
		return err
	}
	if p.UserID != userID {
		return fmt.Errorf("only the point owner may delete it: %w", domain.ErrForbidden)
	}
	return s.pointRepo.Delete(ctx, pointID)
}

func (s *service) AddView(ctx context.Context, pointID string) (int, error) {
	return s.pointRepo.IncrementViews(ctx, pointID)
}
