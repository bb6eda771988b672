package model

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Role is the closed set of user kinds. Every switch over Role must handle
// all three variants and fail on anything else.
type Role string

const (
	RoleCitizen Role = "citizen"
	RoleOfficer Role = "officer"
	RoleAdmin   Role = "admin"
)

// ParseRole converts a stored or claimed role string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCitizen, RoleOfficer, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Provider constants
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

type User struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider     string         `gorm:"not null;size:20;default:'local'" json:"provider"`
	ProviderID   string         `gorm:"size:255;index" json:"-"`
	Email        string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Name         string         `gorm:"size:255" json:"name"`
	Phone        string         `gorm:"size:32" json:"phone,omitempty"`
	AvatarURL    string         `json:"avatarUrl,omitempty"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	Role         Role           `gorm:"not null;size:20;index" json:"role"`
	Active       bool           `gorm:"not null;default:true" json:"active"`
	Departments  []Department   `gorm:"many2many:officer_departments;" json:"departments,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// DepartmentIDs returns the ids of the loaded department assignments.
func (u *User) DepartmentIDs() []int64 {
	ids := make([]int64, 0, len(u.Departments))
	for _, d := range u.Departments {
		ids = append(ids, d.ID)
	}
	return ids
}
