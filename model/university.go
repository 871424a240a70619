package model

import (
	"time"

	"gorm.io/gorm"
)

// University represents a partner institution students apply to
type University struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null;uniqueIndex" json:"name"`
	Code      string         `gorm:"uniqueIndex;not null" json:"code"`
	Country   string         `gorm:"type:varchar(100)" json:"country"`
	City      string         `gorm:"type:varchar(100)" json:"city"`
	Website   string         `gorm:"type:varchar(255)" json:"website"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
