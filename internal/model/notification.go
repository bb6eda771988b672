package model

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationType string

// NotificationType constants
const (
	NotifyReportSubmitted   NotificationType = "report_submitted"
	NotifyReportStatus      NotificationType = "report_status"
	NotifyReportAssigned    NotificationType = "report_assigned"
	NotifyEmergencyReported NotificationType = "emergency_reported"
	NotifyEmergencyStatus   NotificationType = "emergency_status"
	NotifySystem            NotificationType = "system"
)

// Entity type constants shared by notifications and the activity log
const (
	EntityReport     = "report"
	EntityEmergency  = "emergency"
	EntityDepartment = "department"
	EntityUser       = "user"
)

type Notification struct {
	ID         int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64            `gorm:"not null;index:idx_notifications_user_read,priority:1" json:"userId"`
	Type       NotificationType `gorm:"not null;size:32" json:"type"`
	Title      string           `gorm:"not null;size:255" json:"title"`
	Message    string           `gorm:"type:text" json:"message"`
	Read       bool             `gorm:"not null;default:false;index:idx_notifications_user_read,priority:2" json:"read"`
	ReadAt     *time.Time       `json:"readAt,omitempty"`
	EntityType string           `gorm:"size:32" json:"entityType,omitempty"`
	EntityID   *int64           `json:"entityId,omitempty"`
	Data       datatypes.JSON   `json:"data,omitempty"`
	ExpiresAt  time.Time        `gorm:"not null;index" json:"expiresAt"`
	CreatedAt  time.Time        `json:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}
