package model

import (
	"time"

	"gorm.io/gorm"
)

type EmergencyType string

// EmergencyType constants
const (
	EmergencyPolice   EmergencyType = "police"
	EmergencyMedical  EmergencyType = "medical"
	EmergencyFire     EmergencyType = "fire"
	EmergencyDisaster EmergencyType = "disaster"
)

// EmergencyTypes lists the accepted emergency types.
var EmergencyTypes = []EmergencyType{EmergencyPolice, EmergencyMedical, EmergencyFire, EmergencyDisaster}

type EmergencyStatus string

// EmergencyStatus constants, in lifecycle order
const (
	EmergencyReported   EmergencyStatus = "reported"
	EmergencyReceived   EmergencyStatus = "received"
	EmergencyDispatched EmergencyStatus = "dispatched"
	EmergencyResolved   EmergencyStatus = "resolved"
)

// EmergencyStatuses lists every emergency status in lifecycle order.
var EmergencyStatuses = []EmergencyStatus{EmergencyReported, EmergencyReceived, EmergencyDispatched, EmergencyResolved}

type Emergency struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Type                EmergencyType   `gorm:"not null;size:20;index" json:"type"`
	Status              EmergencyStatus `gorm:"not null;size:20;index" json:"status"`
	Description         string          `gorm:"type:text" json:"description"`
	ContactNumber       string          `gorm:"not null;size:32" json:"contactNumber"`
	CitizenID           int64           `gorm:"not null;index" json:"citizenId"`
	RespondingOfficerID *int64          `gorm:"index" json:"respondingOfficerId,omitempty"`
	History             StatusHistory   `gorm:"not null" json:"history"`
	Media               Attachments     `json:"media"`
	Location            Location        `gorm:"embedded" json:"location"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
	DeletedAt           gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Emergency) TableName() string {
	return "emergencies"
}
