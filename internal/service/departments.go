package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/civicdesk/api/internal/auth"
	"github.com/civicdesk/api/internal/model"
	"gorm.io/gorm"
)

type DepartmentService struct {
	db       *gorm.DB
	activity *ActivityService
}

func NewDepartmentService(db *gorm.DB, activity *ActivityService) *DepartmentService {
	return &DepartmentService{db: db, activity: activity}
}

type DepartmentInput struct {
	Name        string `json:"name" binding:"required"`
	Code        string `json:"code" binding:"required"`
	Description string `json:"description"`
}

func (in *DepartmentInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" || len(in.Name) > 100 {
		return validationError("name must be 1-100 characters")
	}
	if in.Code == "" || len(in.Code) > 32 {
		return validationError("code must be 1-32 characters")
	}
	return nil
}

// ListActive returns the departments citizens can file reports with.
func (s *DepartmentService) ListActive(ctx context.Context) ([]model.Department, error) {
	var items []model.Department
	err := s.db.WithContext(ctx).Where("active = ?", true).Order("name ASC").Find(&items).Error
	return items, err
}

// ListAll includes inactive departments. Admin only.
func (s *DepartmentService) ListAll(ctx context.Context, p auth.Principal) ([]model.Department, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	var items []model.Department
	err := s.db.WithContext(ctx).Order("name ASC").Find(&items).Error
	return items, err
}

// Get returns an active department, or any department for admins.
func (s *DepartmentService) Get(ctx context.Context, p *auth.Principal, id int64) (*model.Department, error) {
	var d model.Department
	err := s.db.WithContext(ctx).First(&d, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !d.Active && (p == nil || !p.IsAdmin())) {
		return nil, notFound("department", id)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ForOfficer returns the active departments the officer is assigned to.
func (s *DepartmentService) ForOfficer(ctx context.Context, p auth.Principal) ([]model.Department, error) {
	if !p.IsOfficer() {
		return nil, ErrForbidden
	}
	ids, err := officerDepartmentIDs(ctx, s.db, p.UserID)
	if err != nil {
		return nil, err
	}
	var items []model.Department
	err = s.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&items).Error
	return items, err
}

func (s *DepartmentService) Create(ctx context.Context, p auth.Principal, in DepartmentInput) (*model.Department, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, 0, in); err != nil {
		return nil, err
	}

	d := &model.Department{Name: in.Name, Code: in.Code, Description: in.Description, Active: true}
	if err := s.db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	s.activity.Record(ctx, p, model.ActionDepartmentCreated, model.EntityDepartment, d.ID, map[string]interface{}{
		"name": d.Name,
		"code": d.Code,
	})
	return d, nil
}

func (s *DepartmentService) Update(ctx context.Context, p auth.Principal, id int64, in DepartmentInput) (*model.Department, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	d, err := s.Get(ctx, &p, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, id, in); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(d).Updates(map[string]interface{}{
		"name":        in.Name,
		"code":        in.Code,
		"description": in.Description,
	}).Error
	if err != nil {
		return nil, err
	}
	d.Name, d.Code, d.Description = in.Name, in.Code, in.Description
	s.activity.Record(ctx, p, model.ActionDepartmentUpdated, model.EntityDepartment, d.ID, nil)
	return d, nil
}

// SetActive enables or disables a department. Inactive departments accept
// no new reports and drop out of officer scopes.
func (s *DepartmentService) SetActive(ctx context.Context, p auth.Principal, id int64, active bool) (*model.Department, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	d, err := s.Get(ctx, &p, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(d).Update("active", active).Error; err != nil {
		return nil, err
	}
	d.Active = active
	s.activity.Record(ctx, p, model.ActionDepartmentActivated, model.EntityDepartment, d.ID, map[string]interface{}{
		"active": active,
	})
	return d, nil
}

func (s *DepartmentService) ensureUnique(ctx context.Context, id int64, in DepartmentInput) error {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Department{}).
		Where("(name = ? OR code = ?) AND id <> ?", in.Name, in.Code, id).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: department name or code already in use", ErrConflict)
	}
	return nil
}
