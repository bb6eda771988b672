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

type ReportService struct {
	db       *gorm.DB
	notify   *NotificationService
	activity *ActivityService
	now      func() time.Time
}

func NewReportService(db *gorm.DB, notify *NotificationService, activity *ActivityService) *ReportService {
	return &ReportService{db: db, notify: notify, activity: activity, now: time.Now}
}

type CreateReportInput struct {
	Title        string
	Description  string
	DepartmentID int64
	Location     model.Location
	Media        model.Media
}

type ReportFilter struct {
	Status       model.ReportStatus
	DepartmentID int64
	// AssignedTo limits results to reports assigned to this officer.
	AssignedTo   int64
}

// Create files a new report in the submitted status and notifies the
// officers of the target department.
func (s *ReportService) Create(ctx context.Context, p auth.Principal, in CreateReportInput) (*model.Report, error) {
	if !p.IsCitizen() {
		return nil, fmt.Errorf("%w: only citizens can submit reports", ErrForbidden)
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := validator.Report(in.Title, in.Description, in.Location); err != nil {
		return nil, validationError("%v", err)
	}

	var dept model.Department
	err := s.db.WithContext(ctx).Where("id = ? AND active = ?", in.DepartmentID, true).First(&dept).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, validationError("department %d is not accepting reports", in.DepartmentID)
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	report := &model.Report{
		Title:        in.Title,
		Description:  in.Description,
		Status:       model.ReportSubmitted,
		DepartmentID: dept.ID,
		CitizenID:    p.UserID,
		History: model.StatusHistory{{
			Status:    string(model.ReportSubmitted),
			Timestamp: now,
			UpdatedBy: p.UserID,
		}},
		Media:     model.NewAttachments(in.Media),
		Location:  in.Location,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return nil, err
	}
	report.Department = &dept

	s.activity.Record(ctx, p, model.ActionReportCreated, model.EntityReport, report.ID, map[string]interface{}{
		"departmentId": dept.ID,
	})

	officers, err := departmentOfficerIDs(ctx, s.db, dept.ID)
	if err != nil {
		log.Printf("[Notify] Failed to resolve officers of department %d: %v", dept.ID, err)
		return report, nil
	}
	s.notify.Dispatch(ctx, officers, Message{
		Type:       model.NotifyReportSubmitted,
		Title:      "New report submitted",
		Body:       fmt.Sprintf("%q was submitted to %s", report.Title, dept.Name),
		EntityType: model.EntityReport,
		EntityID:   report.ID,
		Data:       map[string]interface{}{"departmentId": dept.ID},
	})
	return report, nil
}

// List returns the reports visible to p, newest first.
func (s *ReportService) List(ctx context.Context, p auth.Principal, f ReportFilter, page, limit int) ([]model.Report, int64, error) {
	q, err := s.filtered(ctx, p, f)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reports []model.Report
	err = q.Preload("Department").
		Order("reports.created_at DESC, reports.id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&reports).Error
	return reports, total, err
}

// All returns every report visible to p matching f, oldest first. It backs
// the export endpoint.
func (s *ReportService) All(ctx context.Context, p auth.Principal, f ReportFilter) ([]model.Report, error) {
	q, err := s.filtered(ctx, p, f)
	if err != nil {
		return nil, err
	}
	var reports []model.Report
	err = q.Preload("Department").Order("reports.id ASC").Find(&reports).Error
	return reports, err
}

func (s *ReportService) filtered(ctx context.Context, p auth.Principal, f ReportFilter) (*gorm.DB, error) {
	if f.Status != "" && !workflow.IsValidReportStatus(f.Status) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, f.Status)
	}
	q, err := scopeReports(ctx, s.db, s.db.WithContext(ctx).Model(&model.Report{}), p, f.DepartmentID)
	if err != nil {
		return nil, err
	}
	if f.Status != "" {
		q = q.Where("reports.status = ?", f.Status)
	}
	if f.AssignedTo != 0 {
		q = q.Where("reports.assigned_officer_id = ?", f.AssignedTo)
	}
	return q, nil
}

// CountByStatus returns per-status totals of the reports visible to p.
func (s *ReportService) CountByStatus(ctx context.Context, p auth.Principal) (map[model.ReportStatus]int64, error) {
	q, err := scopeReports(ctx, s.db, s.db.WithContext(ctx).Model(&model.Report{}), p, 0)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Status model.ReportStatus
		Count  int64
	}
	if err := q.Select("reports.status AS status, COUNT(*) AS count").Group("reports.status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[model.ReportStatus]int64, len(model.ReportStatuses))
	for _, st := range model.ReportStatuses {
		counts[st] = 0
	}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// Get returns a report visible to p. Reports outside the caller's scope are
// reported as not found.
func (s *ReportService) Get(ctx context.Context, p auth.Principal, id int64) (*model.Report, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := canReadReport(ctx, s.db, p, r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("report", id)
	}
	return r, nil
}

func (s *ReportService) load(ctx context.Context, id int64) (*model.Report, error) {
	var r model.Report
	err := s.db.WithContext(ctx).Preload("Department").First(&r, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("report", id)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// loadManaged loads a report p is allowed to mutate.
func (s *ReportService) loadManaged(ctx context.Context, p auth.Principal, id int64) (*model.Report, error) {
	if !p.HasRole(model.RoleOfficer, model.RoleAdmin) {
		return nil, fmt.Errorf("%w: only officers can manage reports", ErrForbidden)
	}
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := canManageReport(ctx, s.db, p, r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: report %d belongs to another department", ErrForbidden, id)
	}
	return r, nil
}

func (s *ReportService) History(ctx context.Context, p auth.Principal, id int64) (model.StatusHistory, error) {
	r, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return r.History, nil
}

// Transitions returns the statuses r may move to next.
func (s *ReportService) Transitions(ctx context.Context, p auth.Principal, id int64) ([]model.ReportStatus, error) {
	r, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return workflow.NextReportStatuses(r.Status), nil
}

// ChangeStatus moves a report to status to, appending one history entry.
// The update is guarded on the status read, so a concurrent change makes
// this call fail with ErrConflict instead of overwriting it. Moving to
// rejected requires a non-empty note, which becomes the rejection reason.
// An unassigned report taken into progress by an officer is assigned to
// that officer.
func (s *ReportService) ChangeStatus(ctx context.Context, p auth.Principal, id int64, to model.ReportStatus, note string) (*model.Report, error) {
	r, err := s.loadManaged(ctx, p, id)
	if err != nil {
		return nil, err
	}

	from := r.Status
	if err := workflow.ValidateReportTransition(from, to); err != nil {
		return nil, err
	}
	note = strings.TrimSpace(note)
	if to == model.ReportRejected && note == "" {
		return nil, ErrReasonRequired
	}

	now := s.now()
	history := model.AppendHistory(r.History, model.HistoryEntry{
		Status:    string(to),
		Timestamp: now,
		UpdatedBy: p.UserID,
		Note:      note,
	})
	updates := map[string]interface{}{
		"status":     to,
		"history":    history,
		"updated_at": now,
	}
	if to == model.ReportRejected {
		updates["rejection_reason"] = note
	}
	autoAssigned := false
	if to == model.ReportInProgress && r.AssignedOfficerID == nil && p.IsOfficer() {
		updates["assigned_officer_id"] = p.UserID
		autoAssigned = true
	}

	res := s.db.WithContext(ctx).Model(&model.Report{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: report %d changed concurrently", ErrConflict, id)
	}

	r.Status = to
	r.History = history
	r.UpdatedAt = now
	if to == model.ReportRejected {
		r.RejectionReason = note
	}
	if autoAssigned {
		officerID := p.UserID
		r.AssignedOfficerID = &officerID
	}

	action := model.ActionReportStatus
	if to == model.ReportRejected {
		action = model.ActionReportRejected
	}
	s.activity.Record(ctx, p, action, model.EntityReport, r.ID, map[string]interface{}{
		"from": from,
		"to":   to,
		"note": note,
	})

	body := fmt.Sprintf("Your report %q is now %s", r.Title, humanStatus(string(to)))
	if to == model.ReportRejected {
		body += ": " + note
	}
	s.notify.Dispatch(ctx, []int64{r.CitizenID}, Message{
		Type:       model.NotifyReportStatus,
		Title:      "Report status updated",
		Body:       body,
		EntityType: model.EntityReport,
		EntityID:   r.ID,
		Data:       map[string]interface{}{"from": from, "to": to},
	})
	return r, nil
}

// Reject is ChangeStatus to rejected with a mandatory reason.
func (s *ReportService) Reject(ctx context.Context, p auth.Principal, id int64, reason string) (*model.Report, error) {
	return s.ChangeStatus(ctx, p, id, model.ReportRejected, reason)
}

// Assign sets the officer responsible for an open report. A zero officerID
// assigns the caller. The assignee must be an active officer of the
// report's department.
func (s *ReportService) Assign(ctx context.Context, p auth.Principal, id, officerID int64) (*model.Report, error) {
	r, err := s.loadManaged(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if workflow.IsReportTerminal(r.Status) {
		return nil, fmt.Errorf("%w: report %d is %s", ErrConflict, id, r.Status)
	}

	if officerID == 0 {
		if !p.IsOfficer() {
			return nil, validationError("officerId is required")
		}
		officerID = p.UserID
	}
	eligible, err := departmentOfficerIDs(ctx, s.db, r.DepartmentID)
	if err != nil {
		return nil, err
	}
	if !containsID(eligible, officerID) {
		return nil, validationError("user %d is not an active officer of department %d", officerID, r.DepartmentID)
	}

	now := s.now()
	res := s.db.WithContext(ctx).Model(&model.Report{}).
		Where("id = ? AND status = ?", id, r.Status).
		Updates(map[string]interface{}{"assigned_officer_id": officerID, "updated_at": now})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: report %d changed concurrently", ErrConflict, id)
	}
	r.AssignedOfficerID = &officerID
	r.UpdatedAt = now

	s.activity.Record(ctx, p, model.ActionReportAssigned, model.EntityReport, r.ID, map[string]interface{}{
		"officerId": officerID,
	})
	if officerID != p.UserID {
		s.notify.Dispatch(ctx, []int64{officerID}, Message{
			Type:       model.NotifyReportAssigned,
			Title:      "Report assigned to you",
			Body:       fmt.Sprintf("You were assigned %q", r.Title),
			EntityType: model.EntityReport,
			EntityID:   r.ID,
		})
	}
	return r, nil
}

// Delete soft deletes a report. Admin only.
func (s *ReportService) Delete(ctx context.Context, p auth.Principal, id int64) error {
	if !p.IsAdmin() {
		return ErrForbidden
	}
	res := s.db.WithContext(ctx).Delete(&model.Report{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("report", id)
	}
	s.activity.Record(ctx, p, model.ActionReportDeleted, model.EntityReport, id, nil)
	return nil
}

// departmentOfficerIDs lists active officers assigned to a department.
func departmentOfficerIDs(ctx context.Context, db *gorm.DB, departmentID int64) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).
		Table("officer_departments").
		Joins("JOIN users ON users.id = officer_departments.user_id").
		Where("officer_departments.department_id = ? AND users.role = ? AND users.active = ? AND users.deleted_at IS NULL",
			departmentID, model.RoleOfficer, true).
		Pluck("users.id", &ids).Error
	return ids, err
}

func humanStatus(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}
