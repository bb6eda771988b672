package service

import (
	"context"

	"github.com/civicdesk/api/internal/auth"
	"github.com/civicdesk/api/internal/model"
	"gorm.io/gorm"
)

type StatsService struct {
	db *gorm.DB
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

type DepartmentCount struct {
	DepartmentID int64  `json:"departmentId"`
	Name         string `json:"name"`
	Open         int64  `json:"open"`
	Total        int64  `json:"total"`
}

type Stats struct {
	ReportsByStatus       map[string]int64  `json:"reportsByStatus"`
	ReportsByDepartment   []DepartmentCount `json:"reportsByDepartment"`
	EmergenciesByStatus   map[string]int64  `json:"emergenciesByStatus"`
	EmergenciesByType     map[string]int64  `json:"emergenciesByType"`
	TotalReports          int64             `json:"totalReports"`
	TotalEmergencies      int64             `json:"totalEmergencies"`
	TotalCitizens         int64             `json:"totalCitizens"`
	TotalOfficers         int64             `json:"totalOfficers"`
	ActiveDepartments     int64             `json:"activeDepartments"`
	UnassignedOpenReports int64             `json:"unassignedOpenReports"`
}

// Collect gathers the admin dashboard numbers. Admin only.
func (s *StatsService) Collect(ctx context.Context, p auth.Principal) (*Stats, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	db := s.db.WithContext(ctx)
	st := &Stats{}

	var err error
	if st.ReportsByStatus, err = groupCount(db.Model(&model.Report{}), "status"); err != nil {
		return nil, err
	}
	if st.EmergenciesByStatus, err = groupCount(db.Model(&model.Emergency{}), "status"); err != nil {
		return nil, err
	}
	if st.EmergenciesByType, err = groupCount(db.Model(&model.Emergency{}), "type"); err != nil {
		return nil, err
	}
	for _, status := range model.ReportStatuses {
		st.TotalReports += withZero(st.ReportsByStatus, string(status))
	}
	for _, status := range model.EmergencyStatuses {
		st.TotalEmergencies += withZero(st.EmergenciesByStatus, string(status))
	}
	for _, t := range model.EmergencyTypes {
		withZero(st.EmergenciesByType, string(t))
	}

	err = db.Model(&model.Department{}).
		Select(`departments.id AS department_id, departments.name AS name,
			COUNT(reports.id) AS total,
			COALESCE(SUM(CASE WHEN reports.status IN ? THEN 1 ELSE 0 END), 0) AS open`,
			[]model.ReportStatus{model.ReportSubmitted, model.ReportInProgress}).
		Joins("LEFT JOIN reports ON reports.department_id = departments.id AND reports.deleted_at IS NULL").
		Group("departments.id, departments.name").
		Order("departments.name ASC").
		Scan(&st.ReportsByDepartment).Error
	if err != nil {
		return nil, err
	}

	if err := db.Model(&model.User{}).Where("role = ?", model.RoleCitizen).Count(&st.TotalCitizens).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.User{}).Where("role = ?", model.RoleOfficer).Count(&st.TotalOfficers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Department{}).Where("active = ?", true).Count(&st.ActiveDepartments).Error; err != nil {
		return nil, err
	}
	err = db.Model(&model.Report{}).
		Where("status IN ? AND assigned_officer_id IS NULL", []model.ReportStatus{model.ReportSubmitted, model.ReportInProgress}).
		Count(&st.UnassignedOpenReports).Error
	if err != nil {
		return nil, err
	}
	return st, nil
}

func groupCount(q *gorm.DB, column string) (map[string]int64, error) {
	var rows []struct {
		GroupKey string
		Count    int64
	}
	err := q.Select(column + " AS group_key, COUNT(*) AS count").Group(column).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.GroupKey] = r.Count
	}
	return out, nil
}

// withZero makes sure key is present in m and returns its value.
func withZero(m map[string]int64, key string) int64 {
	if _, ok := m[key]; !ok {
		m[key] = 0
	}
	return m[key]
}
