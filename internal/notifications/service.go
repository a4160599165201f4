package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

// Service is the read side of the inbox; writes happen through Notifier.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type ListParams struct {
	UserID     uuid.UUID
	Type       enums.NotificationType
	UnreadOnly bool
	Limit      int
	Cursor     string
}

// ListResult carries one page plus the caller's total unread count, which the
// vendor dashboard shows as a badge.
type ListResult struct {
	Items  []NotificationDTO `json:"items"`
	Cursor string            `json:"cursor"`
	Unread int64             `json:"unread"`
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifications repository required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	filter, err := params.filter()
	if err != nil {
		return nil, err
	}

	rows, next, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	unread, err := s.repo.CountUnread(ctx, params.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}

	result := &ListResult{Items: fromModels(rows), Unread: unread}
	if next != nil {
		result.Cursor = next.Encode()
	}
	return result, nil
}

func (p ListParams) filter() (inboxFilter, error) {
	if p.UserID == uuid.Nil {
		return inboxFilter{}, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if p.Type != "" && !p.Type.IsValid() {
		return inboxFilter{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown notification type").
			WithDetails(map[string]any{"type": p.Type})
	}
	filter := inboxFilter{
		UserID:     p.UserID,
		Type:       p.Type,
		UnreadOnly: p.UnreadOnly,
		Limit:      pagination.NormalizeLimit(p.Limit),
	}
	if p.Cursor != "" {
		cursor, err := pagination.Decode(p.Cursor)
		if err != nil {
			return inboxFilter{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		filter.Cursor = cursor
	}
	return filter, nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if userID == uuid.Nil || notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and notification id required")
	}
	found, err := s.repo.MarkRead(ctx, userID, notificationID, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !found {
		// also covers another user's notification
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	count, err := s.repo.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}
