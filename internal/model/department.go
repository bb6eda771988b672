package model

import (
	"time"

	"gorm.io/gorm"
)

type Department struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string         `gorm:"not null;size:255;uniqueIndex" json:"name"`
	Code        string         `gorm:"not null;size:32;uniqueIndex" json:"code"`
	Description string         `gorm:"type:text" json:"description"`
	Active      bool           `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Department) TableName() string {
	return "departments"
}
