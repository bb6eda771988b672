package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/civicdesk/api/internal/auth"
	"github.com/civicdesk/api/internal/model"
	"github.com/civicdesk/api/internal/validator"
	"github.com/civicdesk/api/internal/workflow"
	"gorm.io/gorm"
)

type EmergencyService struct {
	db       *gorm.DB
	notify   *NotificationService
	activity *ActivityService
	now      func() time.Time
}

func NewEmergencyService(db *gorm.DB, notify *NotificationService, activity *ActivityService) *EmergencyService {
	return &EmergencyService{db: db, notify: notify, activity: activity, now: time.Now}
}

type CreateEmergencyInput struct {
	Type          model.EmergencyType
	Description   string
	ContactNumber string
	Location      model.Location
	Media         model.Media
}

type EmergencyFilter struct {
	Status model.EmergencyStatus
	Type   model.EmergencyType
}

// Create records an emergency and alerts every active officer.
func (s *EmergencyService) Create(ctx context.Context, p auth.Principal, in CreateEmergencyInput) (*model.Emergency, error) {
	if !p.IsCitizen() {
		return nil, fmt.Errorf("%w: only citizens can report emergencies", ErrForbidden)
	}
	in.Description = strings.TrimSpace(in.Description)
	in.ContactNumber = strings.TrimSpace(in.ContactNumber)
	if err := validator.Emergency(in.Type, in.Description, in.ContactNumber, in.Location); err != nil {
		return nil, validationError("%v", err)
	}

	now := s.now()
	e := &model.Emergency{
		Type:          in.Type,
		Status:        model.EmergencyReported,
		Description:   in.Description,
		ContactNumber: in.ContactNumber,
		CitizenID:     p.UserID,
		History: model.StatusHistory{{
			Status:    string(model.EmergencyReported),
			Timestamp: now,
			UpdatedBy: p.UserID,
		}},
		Media:     model.NewAttachments(in.Media),
		Location:  in.Location,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, err
	}

	s.activity.Record(ctx, p, model.ActionEmergencyCreated, model.EntityEmergency, e.ID, map[string]interface{}{
		"type": e.Type,
	})

	var officers []int64
	err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("role = ? AND active = ?", model.RoleOfficer, true).
		Pluck("id", &officers).Error
	if err != nil {
		log.Printf("[Notify] Failed to resolve active officers: %v", err)
		return e, nil
	}
	body := fmt.Sprintf("%s emergency reported", strings.ToUpper(string(e.Type[:1]))+string(e.Type[1:]))
	if e.Location.Address != "" {
		body += " at " + e.Location.Address
	}
	s.notify.Dispatch(ctx, officers, Message{
		Type:       model.NotifyEmergencyReported,
		Title:      "Emergency reported",
		Body:       body,
		EntityType: model.EntityEmergency,
		EntityID:   e.ID,
		Data: map[string]interface{}{
			"type":      e.Type,
			"latitude":  e.Location.Latitude,
			"longitude": e.Location.Longitude,
		},
	})
	return e, nil
}

func (s *EmergencyService) List(ctx context.Context, p auth.Principal, f EmergencyFilter, page, limit int) ([]model.Emergency, int64, error) {
	if f.Status != "" && !workflow.IsValidEmergencyStatus(f.Status) {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownStatus, f.Status)
	}
	if f.Type != "" && !validator.IsEmergencyType(f.Type) {
		return nil, 0, validationError("unknown emergency type %q", f.Type)
	}

	q, err := scopeEmergencies(s.db.WithContext(ctx).Model(&model.Emergency{}), p)
	if err != nil {
		return nil, 0, err
	}
	if f.Status != "" {
		q = q.Where("emergencies.status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("emergencies.type = ?", f.Type)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []model.Emergency
	err = q.Order("emergencies.created_at DESC, emergencies.id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&items).Error
	return items, total, err
}

// CountByStatus returns per-status totals of the emergencies visible to p.
func (s *EmergencyService) CountByStatus(ctx context.Context, p auth.Principal) (map[model.EmergencyStatus]int64, error) {
	q, err := scopeEmergencies(s.db.WithContext(ctx).Model(&model.Emergency{}), p)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Status model.EmergencyStatus
		Count  int64
	}
	if err := q.Select("emergencies.status AS status, COUNT(*) AS count").Group("emergencies.status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[model.EmergencyStatus]int64, len(model.EmergencyStatuses))
	for _, st := range model.EmergencyStatuses {
		counts[st] = 0
	}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func (s *EmergencyService) Get(ctx context.Context, p auth.Principal, id int64) (*model.Emergency, error) {
	var e model.Emergency
	err := s.db.WithContext(ctx).First(&e, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("emergency", id)
	}
	if err != nil {
		return nil, err
	}
	ok, err := canReadEmergency(p, &e)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("emergency", id)
	}
	return &e, nil
}

// ChangeStatus advances an emergency one step along its lifecycle. The
// officer who receives an emergency becomes its responder; afterwards only
// that officer or an admin may advance it.
func (s *EmergencyService) ChangeStatus(ctx context.Context, p auth.Principal, id int64, to model.EmergencyStatus, note string) (*model.Emergency, error) {
	if !p.HasRole(model.RoleOfficer, model.RoleAdmin) {
		return nil, fmt.Errorf("%w: only officers can update emergencies", ErrForbidden)
	}
	e, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if e.RespondingOfficerID != nil && *e.RespondingOfficerID != p.UserID && !p.IsAdmin() {
		return nil, fmt.Errorf("%w: emergency %d is handled by another officer", ErrForbidden, id)
	}

	from := e.Status
	if err := workflow.ValidateEmergencyTransition(from, to); err != nil {
		return nil, err
	}

	now := s.now()
	history := model.AppendHistory(e.History, model.HistoryEntry{
		Status:    string(to),
		Timestamp: now,
		UpdatedBy: p.UserID,
		Note:      strings.TrimSpace(note),
	})
	updates := map[string]interface{}{
		"status":     to,
		"history":    history,
		"updated_at": now,
	}
	claimed := false
	if e.RespondingOfficerID == nil && p.IsOfficer() {
		updates["responding_officer_id"] = p.UserID
		claimed = true
	}

	res := s.db.WithContext(ctx).Model(&model.Emergency{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: emergency %d changed concurrently", ErrConflict, id)
	}

	e.Status = to
	e.History = history
	e.UpdatedAt = now
	if claimed {
		officerID := p.UserID
		e.RespondingOfficerID = &officerID
	}

	s.activity.Record(ctx, p, model.ActionEmergencyStatus, model.EntityEmergency, e.ID, map[string]interface{}{
		"from": from,
		"to":   to,
	})
	s.notify.Dispatch(ctx, []int64{e.CitizenID}, Message{
		Type:       model.NotifyEmergencyStatus,
		Title:      "Emergency status updated",
		Body:       fmt.Sprintf("Your %s emergency is now %s", e.Type, to),
		EntityType: model.EntityEmergency,
		EntityID:   e.ID,
		Data:       map[string]interface{}{"from": from, "to": to},
	})
	return e, nil
}
