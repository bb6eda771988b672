package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/civicdesk/api/internal/auth"
	"github.com/civicdesk/api/internal/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ActivityService keeps the append-only audit trail of mutating actions.
type ActivityService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewActivityService(db *gorm.DB) *ActivityService {
	return &ActivityService{db: db, now: time.Now}
}

// Record appends an entry. Like notifications it never fails the caller.
func (s *ActivityService) Record(ctx context.Context, actor auth.Principal, action, entityType string, entityID int64, details map[string]interface{}) {
	entry := model.ActivityLog{
		ActorID:    actor.UserID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  s.now(),
	}
	if len(details) > 0 {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = datatypes.JSON(raw)
		}
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Printf("[Activity] Failed to record %s on %s %d: %v", action, entityType, entityID, err)
	}
}

type ActivityFilter struct {
	ActorID    int64
	Action     string
	EntityType string
	EntityID   int64
}

// List returns entries matching f, newest first. Admin only.
func (s *ActivityService) List(ctx context.Context, p auth.Principal, f ActivityFilter, page, limit int) ([]model.ActivityLog, int64, error) {
	if !p.IsAdmin() {
		return nil, 0, ErrForbidden
	}

	q := s.db.WithContext(ctx).Model(&model.ActivityLog{})
	if f.ActorID != 0 {
		q = q.Where("actor_id = ?", f.ActorID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != 0 {
		q = q.Where("entity_id = ?", f.EntityID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []model.ActivityLog
	err := q.Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&items).Error
	return items, total, err
}
