package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/civicdesk/api/internal/auth"
	"github.com/civicdesk/api/internal/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UnreadCache caches per-user unread notification counts. Get returns an
// error on a miss; callers fall back to the database.
type UnreadCache interface {
	GetUnreadCount(ctx context.Context, userID int64) (int64, error)
	SetUnreadCount(ctx context.Context, userID int64, count int64) error
	InvalidateUnreadCount(ctx context.Context, userID int64) error
}

type NotificationService struct {
	db    *gorm.DB
	cache UnreadCache
	ttl   time.Duration
	now   func() time.Time

	// OnDispatch, when set, observes every dispatch attempt.
	OnDispatch func(t model.NotificationType, delivered int, err error)
}

func NewNotificationService(db *gorm.DB, cache UnreadCache, ttl time.Duration) *NotificationService {
	return &NotificationService{db: db, cache: cache, ttl: ttl, now: time.Now}
}

// Message describes one notification addressed to a set of users.
type Message struct {
	Type       model.NotificationType
	Title      string
	Body       string
	EntityType string
	EntityID   int64
	Data       map[string]interface{}
}

// Dispatch stores msg once per recipient. It is best-effort: failures are
// logged and reported to OnDispatch but never returned, so the operation
// that triggered the notification is not rolled back.
func (s *NotificationService) Dispatch(ctx context.Context, recipients []int64, msg Message) {
	recipients = uniqueIDs(recipients)
	if len(recipients) == 0 {
		return
	}

	var data datatypes.JSON
	if len(msg.Data) > 0 {
		raw, err := json.Marshal(msg.Data)
		if err != nil {
			log.Printf("[Notify] Failed to encode data for %s: %v", msg.Type, err)
		} else {
			data = datatypes.JSON(raw)
		}
	}

	now := s.now()
	rows := make([]model.Notification, 0, len(recipients))
	for _, userID := range recipients {
		n := model.Notification{
			UserID:     userID,
			Type:       msg.Type,
			Title:      msg.Title,
			Message:    msg.Body,
			EntityType: msg.EntityType,
			Data:       data,
			ExpiresAt:  now.Add(s.ttl),
			CreatedAt:  now,
		}
		if msg.EntityID != 0 {
			id := msg.EntityID
			n.EntityID = &id
		}
		rows = append(rows, n)
	}

	err := s.db.WithContext(ctx).Create(&rows).Error
	if s.OnDispatch != nil {
		delivered := len(rows)
		if err != nil {
			delivered = 0
		}
		s.OnDispatch(msg.Type, delivered, err)
	}
	if err != nil {
		log.Printf("[Notify] Failed to store %s for %d recipients: %v", msg.Type, len(rows), err)
		return
	}

	for _, userID := range recipients {
		s.invalidate(ctx, userID)
	}
}

func (s *NotificationService) invalidate(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUnreadCount(ctx, userID); err != nil {
		log.Printf("[Notify] Failed to invalidate unread count for user %d: %v", userID, err)
	}
}

func (s *NotificationService) live(ctx context.Context, userID int64) *gorm.DB {
	return s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND expires_at > ?", userID, s.now())
}

// List returns the caller's unexpired notifications, newest first.
func (s *NotificationService) List(ctx context.Context, p auth.Principal, unreadOnly bool, page, limit int) ([]model.Notification, int64, error) {
	q := s.live(ctx, p.UserID)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []model.Notification
	err := q.Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&items).Error
	return items, total, err
}

// UnreadCount returns the number of unread, unexpired notifications for the
// caller. A cache failure falls through to the database.
func (s *NotificationService) UnreadCount(ctx context.Context, p auth.Principal) (int64, error) {
	if s.cache != nil {
		if n, err := s.cache.GetUnreadCount(ctx, p.UserID); err == nil {
			return n, nil
		}
	}

	var n int64
	if err := s.live(ctx, p.UserID).Where("read = ?", false).Count(&n).Error; err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.SetUnreadCount(ctx, p.UserID, n); err != nil {
			log.Printf("[Notify] Failed to cache unread count for user %d: %v", p.UserID, err)
		}
	}
	return n, nil
}

// MarkRead marks one of the caller's notifications read. Marking an already
// read notification is a no-op.
func (s *NotificationService) MarkRead(ctx context.Context, p auth.Principal, id int64) (*model.Notification, error) {
	var n model.Notification
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, p.UserID).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("notification", id)
	}
	if err != nil {
		return nil, err
	}
	if n.Read {
		return &n, nil
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(&n).Updates(map[string]interface{}{"read": true, "read_at": now}).Error; err != nil {
		return nil, err
	}
	n.Read = true
	n.ReadAt = &now
	s.invalidate(ctx, p.UserID)
	return &n, nil
}

// MarkAllRead marks every unread notification of the caller read and
// returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, p auth.Principal) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND read = ?", p.UserID, false).
		Updates(map[string]interface{}{"read": true, "read_at": s.now()})
	if res.Error != nil {
		return 0, res.Error
	}
	s.invalidate(ctx, p.UserID)
	return res.RowsAffected, nil
}

// CountExpired counts notifications whose expiry is at or before cutoff.
func (s *NotificationService) CountExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Notification{}).Where("expires_at <= ?", cutoff).Count(&n).Error
	return n, err
}

// PurgeExpired deletes notifications whose expiry is at or before cutoff.
func (s *NotificationService) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", cutoff).Delete(&model.Notification{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge expired notifications: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
