package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationType represents the type/severity of notification
type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeWarning NotificationType = "warning"
	NotificationTypeError   NotificationType = "error"
)

// NotificationCategory represents the category of notification
type NotificationCategory string

const (
	NotificationCategoryApplication NotificationCategory = "application"
	NotificationCategoryCommission  NotificationCategory = "commission"
	NotificationCategoryPayment     NotificationCategory = "payment"
	NotificationCategoryGeneral     NotificationCategory = "general"
)

// AgentNotification represents a notification for an agent
type AgentNotification struct {
	ID        uint                 `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
	DeletedAt gorm.DeletedAt       `gorm:"index" json:"-"`
	AgentID   uint                 `gorm:"index;not null" json:"agent_id"`
	Type      NotificationType     `gorm:"type:varchar(20);not null" json:"type"`
	Category  NotificationCategory `gorm:"type:varchar(30);not null" json:"category"`
	Title     string               `gorm:"type:varchar(255);not null" json:"title"`
	Message   string               `gorm:"type:text" json:"message"`
	Read      bool                 `gorm:"default:false" json:"read"`
	Metadata  datatypes.JSON       `gorm:"type:jsonb" json:"metadata,omitempty"`

	// Relationships
	Agent Agent `gorm:"foreignKey:AgentID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for AgentNotification
func (AgentNotification) TableName() string {
	return "agent_notifications"
}

// NotificationMetadata carries common context fields on lifecycle events.
type NotificationMetadata struct {
	StudentID     uint    `json:"student_id,omitempty"`
	StudentName   string  `json:"student_name,omitempty"`
	ApplicationID string  `json:"application_id,omitempty"`
	Program       string  `json:"program,omitempty"`
	Institute     string  `json:"institute,omitempty"`
	Status        string  `json:"status,omitempty"`
	Amount        float64 `json:"amount,omitempty"`
	TransactionID string  `json:"transaction_id,omitempty"`
}
