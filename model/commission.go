package model

import (
	"time"

	"gorm.io/gorm"
)

// CommissionStatus represents the payout state of a commission
type CommissionStatus string

const (
	CommissionStatusPending  CommissionStatus = "Pending"
	CommissionStatusApproved CommissionStatus = "Approved"
	CommissionStatusPaid     CommissionStatus = "Paid"
	CommissionStatusRejected CommissionStatus = "Rejected"
)

// IsValid reports whether s is a known commission status.
func (s CommissionStatus) IsValid() bool {
	switch s {
	case CommissionStatusPending, CommissionStatusApproved, CommissionStatusPaid, CommissionStatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether s admits no further transition.
func (s CommissionStatus) IsTerminal() bool {
	return s == CommissionStatusPaid || s == CommissionStatusRejected
}

// CommissionType categorizes what a commission was earned for
type CommissionType string

const (
	CommissionTypeApplicationFee CommissionType = "Application Fee"
	CommissionTypeEnrollment     CommissionType = "Enrollment"
	CommissionTypeBonus          CommissionType = "Bonus"
	CommissionTypeMonthly        CommissionType = "Monthly Commission"
)

// Commission is a monetary credit owed to an agent. Auto-generated rows
// reference the application they were derived from; at most one commission
// exists per (student, application) pair.
type Commission struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	AgentID       uint    `gorm:"not null;index" json:"agent_id"`
	StudentID     *uint   `gorm:"index;uniqueIndex:idx_commission_application" json:"student_id,omitempty"`
	ApplicationID *string `gorm:"type:varchar(36);uniqueIndex:idx_commission_application" json:"application_id,omitempty"`

	Amount float64          `gorm:"not null" json:"amount"`
	Type   CommissionType   `gorm:"type:varchar(30);default:'Application Fee'" json:"type"`
	Status CommissionStatus `gorm:"type:varchar(20);default:'Pending';index" json:"status"`

	Month string `gorm:"type:varchar(10)" json:"month"`
	Year  int    `json:"year"`

	Description     string     `gorm:"type:text" json:"description"`
	ApprovedBy      string     `gorm:"type:varchar(255)" json:"approved_by,omitempty"`
	ApprovedDate    *time.Time `json:"approved_date,omitempty"`
	PaidDate        *time.Time `json:"paid_date,omitempty"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason,omitempty"`

	Program   string `gorm:"type:varchar(255)" json:"program,omitempty"`
	Institute string `gorm:"type:varchar(255)" json:"institute,omitempty"`

	// Relationships
	Agent   Agent    `gorm:"foreignKey:AgentID" json:"-"`
	Student *Student `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}
