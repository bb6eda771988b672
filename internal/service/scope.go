package service

import (
	"context"
	"fmt"

	"github.com/civicdesk/api/internal/auth"
	"github.com/civicdesk/api/internal/model"
	"gorm.io/gorm"
)

// officerDepartmentIDs returns the active departments an officer is assigned to.
func officerDepartmentIDs(ctx context.Context, db *gorm.DB, officerID int64) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).
		Table("officer_departments").
		Joins("JOIN departments ON departments.id = officer_departments.department_id").
		Where("officer_departments.user_id = ? AND departments.active = ? AND departments.deleted_at IS NULL", officerID, true).
		Pluck("officer_departments.department_id", &ids).Error
	return ids, err
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// scopeReports narrows q to the reports p may see. A non-zero departmentID
// further restricts the result and must be within the caller's scope.
func scopeReports(ctx context.Context, db *gorm.DB, q *gorm.DB, p auth.Principal, departmentID int64) (*gorm.DB, error) {
	switch p.Role {
	case model.RoleCitizen:
		q = q.Where("reports.citizen_id = ?", p.UserID)
		if departmentID != 0 {
			q = q.Where("reports.department_id = ?", departmentID)
		}
		return q, nil
	case model.RoleOfficer:
		ids, err := officerDepartmentIDs(ctx, db, p.UserID)
		if err != nil {
			return nil, err
		}
		if departmentID != 0 {
			if !containsID(ids, departmentID) {
				return nil, fmt.Errorf("%w: not assigned to department %d", ErrForbidden, departmentID)
			}
			return q.Where("reports.department_id = ?", departmentID), nil
		}
		return q.Where("reports.department_id IN ?", ids), nil
	case model.RoleAdmin:
		if departmentID != 0 {
			q = q.Where("reports.department_id = ?", departmentID)
		}
		return q, nil
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrForbidden, p.Role)
	}
}

// canReadReport mirrors scopeReports for a single loaded row.
func canReadReport(ctx context.Context, db *gorm.DB, p auth.Principal, r *model.Report) (bool, error) {
	switch p.Role {
	case model.RoleCitizen:
		return r.CitizenID == p.UserID, nil
	case model.RoleOfficer:
		ids, err := officerDepartmentIDs(ctx, db, p.UserID)
		if err != nil {
			return false, err
		}
		return containsID(ids, r.DepartmentID), nil
	case model.RoleAdmin:
		return true, nil
	default:
		return false, fmt.Errorf("%w: unknown role %q", ErrForbidden, p.Role)
	}
}

// canManageReport reports whether p may change the status or assignment of r.
func canManageReport(ctx context.Context, db *gorm.DB, p auth.Principal, r *model.Report) (bool, error) {
	switch p.Role {
	case model.RoleCitizen:
		return false, nil
	case model.RoleOfficer:
		return canReadReport(ctx, db, p, r)
	case model.RoleAdmin:
		return true, nil
	default:
		return false, fmt.Errorf("%w: unknown role %q", ErrForbidden, p.Role)
	}
}

// scopeEmergencies narrows q to the emergencies p may see. Emergencies are
// not routed to departments so every officer sees all of them.
func scopeEmergencies(q *gorm.DB, p auth.Principal) (*gorm.DB, error) {
	switch p.Role {
	case model.RoleCitizen:
		return q.Where("emergencies.citizen_id = ?", p.UserID), nil
	case model.RoleOfficer, model.RoleAdmin:
		return q, nil
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrForbidden, p.Role)
	}
}

func canReadEmergency(p auth.Principal, e *model.Emergency) (bool, error) {
	switch p.Role {
	case model.RoleCitizen:
		return e.CitizenID == p.UserID, nil
	case model.RoleOfficer, model.RoleAdmin:
		return true, nil
	default:
		return false, fmt.Errorf("%w: unknown role %q", ErrForbidden, p.Role)
	}
}
