package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

type stubRepository struct {
	create      func(n *models.Notification) error
	list        func(filter inboxFilter) ([]models.Notification, *pagination.Cursor, error)
	countUnread func(userID uuid.UUID) (int64, error)
	markRead    func(userID, notificationID uuid.UUID, now time.Time) (bool, error)
	markAllRead func(userID uuid.UUID, now time.Time) (int64, error)
}

func (s *stubRepository) WithTx(*gorm.DB) Repository { return s }

func (s *stubRepository) Create(_ context.Context, n *models.Notification) error {
	if s.create == nil {
		return nil
	}
	return s.create(n)
}

func (s *stubRepository) List(_ context.Context, filter inboxFilter) ([]models.Notification, *pagination.Cursor, error) {
	if s.list == nil {
		return nil, nil, nil
	}
	return s.list(filter)
}

func (s *stubRepository) CountUnread(_ context.Context, userID uuid.UUID) (int64, error) {
	if s.countUnread == nil {
		return 0, nil
	}
	return s.countUnread(userID)
}

func (s *stubRepository) MarkRead(_ context.Context, userID, notificationID uuid.UUID, now time.Time) (bool, error) {
	if s.markRead == nil {
		return true, nil
	}
	return s.markRead(userID, notificationID, now)
}

func (s *stubRepository) MarkAllRead(_ context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	if s.markAllRead == nil {
		return 0, nil
	}
	return s.markAllRead(userID, now)
}

func (s *stubRepository) DeleteReadOlderThan(context.Context, time.Time, int) (int64, error) {
	return 0, nil
}

var fixedNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, repo Repository) *service {
	t.Helper()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	s := svc.(*service)
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestListBuildsFilterAndCursor(t *testing.T) {
	userID := uuid.New()
	row := models.Notification{ID: uuid.New(), UserID: userID, Type: enums.NotificationTypeNewOrder, CreatedAt: fixedNow}
	nextCursor := pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}

	repo := &stubRepository{
		list: func(filter inboxFilter) ([]models.Notification, *pagination.Cursor, error) {
			if filter.UserID != userID || filter.Type != enums.NotificationTypeNewOrder || !filter.UnreadOnly {
				t.Fatalf("unexpected filter %+v", filter)
			}
			if filter.Limit != pagination.DefaultLimit {
				t.Fatalf("expected default limit, got %d", filter.Limit)
			}
			return []models.Notification{row}, &nextCursor, nil
		},
		countUnread: func(uuid.UUID) (int64, error) { return 7, nil },
	}

	result, err := newTestService(t, repo).List(context.Background(), ListParams{
		UserID:     userID,
		Type:       enums.NotificationTypeNewOrder,
		UnreadOnly: true,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].ID != row.ID {
		t.Fatalf("unexpected items %+v", result.Items)
	}
	if result.Unread != 7 {
		t.Fatalf("expected unread 7, got %d", result.Unread)
	}
	decoded, err := pagination.Decode(result.Cursor)
	if err != nil || decoded.ID != row.ID || !decoded.CreatedAt.Equal(row.CreatedAt) {
		t.Fatalf("cursor %q did not round trip: %+v %v", result.Cursor, decoded, err)
	}
}

func TestListRejectsBadInput(t *testing.T) {
	svc := newTestService(t, &stubRepository{})
	cases := map[string]ListParams{
		"missing user": {},
		"bad cursor":   {UserID: uuid.New(), Cursor: "not-a-cursor"},
		"bad type":     {UserID: uuid.New(), Type: "refund_issued"},
	}
	for name, params := range cases {
		if _, err := svc.List(context.Background(), params); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestListWrapsRepositoryFailure(t *testing.T) {
	repo := &stubRepository{
		countUnread: func(uuid.UUID) (int64, error) { return 0, errors.New("connection reset") },
	}
	_, err := newTestService(t, repo).List(context.Background(), ListParams{UserID: uuid.New()})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestMarkReadUsesClockAndReportsMissing(t *testing.T) {
	owner := uuid.New()
	known := uuid.New()
	repo := &stubRepository{
		markRead: func(userID, notificationID uuid.UUID, now time.Time) (bool, error) {
			if !now.Equal(fixedNow) {
				t.Fatalf("expected injected clock, got %s", now)
			}
			return userID == owner && notificationID == known, nil
		},
	}
	svc := newTestService(t, repo)

	if err := svc.MarkRead(context.Background(), owner, known); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if err := svc.MarkRead(context.Background(), uuid.New(), known); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for another user, got %v", err)
	}
	if err := svc.MarkRead(context.Background(), owner, uuid.Nil); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMarkAllRead(t *testing.T) {
	repo := &stubRepository{
		markAllRead: func(uuid.UUID, time.Time) (int64, error) { return 3, nil },
	}
	svc := newTestService(t, repo)
	count, err := svc.MarkAllRead(context.Background(), uuid.New())
	if err != nil || count != 3 {
		t.Fatalf("expected 3 rows, got %d err=%v", count, err)
	}

	repo.markAllRead = func(uuid.UUID, time.Time) (int64, error) { return 0, errors.New("boom") }
	if _, err := svc.MarkAllRead(context.Background(), uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
