package model

import (
	"time"

	"gorm.io/gorm"
)

type ReportStatus string

// Report status constants
const (
	ReportSubmitted  ReportStatus = "submitted"
	ReportInProgress ReportStatus = "in_progress"
	ReportResolved   ReportStatus = "resolved"
	ReportRejected   ReportStatus = "rejected"
)

// ReportStatuses lists every report status in lifecycle order.
var ReportStatuses = []ReportStatus{ReportSubmitted, ReportInProgress, ReportResolved, ReportRejected}

type Report struct {
	ID                int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Title             string         `gorm:"not null;size:200" json:"title"`
	Description       string         `gorm:"type:text" json:"description"`
	Status            ReportStatus   `gorm:"not null;size:20;index" json:"status"`
	DepartmentID      int64          `gorm:"not null;index" json:"departmentId"`
	Department        *Department    `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	CitizenID         int64          `gorm:"not null;index" json:"citizenId"`
	AssignedOfficerID *int64         `gorm:"index" json:"assignedOfficerId,omitempty"`
	RejectionReason   string         `gorm:"type:text" json:"rejectionReason,omitempty"`
	History           StatusHistory  `gorm:"not null" json:"history"`
	Media             Attachments    `json:"media"`
	Location          Location       `gorm:"embedded" json:"location"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Report) TableName() string {
	return "reports"
}
