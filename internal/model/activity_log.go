package model

import (
	"time"

	"gorm.io/datatypes"
)

// Activity action constants
const (
	ActionReportCreated       = "report.created"
	ActionReportStatus        = "report.status_changed"
	ActionReportRejected      = "report.rejected"
	ActionReportAssigned      = "report.assigned"
	ActionReportDeleted       = "report.deleted"
	ActionEmergencyCreated    = "emergency.created"
	ActionEmergencyStatus     = "emergency.status_changed"
	ActionDepartmentCreated   = "department.created"
	ActionDepartmentUpdated   = "department.updated"
	ActionDepartmentActivated = "department.active_changed"
	ActionOfficerCreated      = "officer.created"
	ActionOfficerAssigned     = "officer.departments_changed"
	ActionUserActivated       = "user.active_changed"
	ActionUserRegistered      = "user.registered"
	ActionUserLogin           = "user.login"
)

type ActivityLog struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorID    int64          `gorm:"not null;index" json:"actorId"`
	ActorRole  Role           `gorm:"not null;size:20" json:"actorRole"`
	Action     string         `gorm:"not null;size:64;index" json:"action"`
	EntityType string         `gorm:"not null;size:32;index:idx_activity_entity,priority:1" json:"entityType"`
	EntityID   int64          `gorm:"index:idx_activity_entity,priority:2" json:"entityId"`
	Details    datatypes.JSON `json:"details,omitempty"`
	CreatedAt  time.Time      `gorm:"index" json:"createdAt"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
