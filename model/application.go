package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ApplicationStatus represents the lifecycle state of an application
type ApplicationStatus string

const (
	ApplicationStatusPending      ApplicationStatus = "Pending"
	ApplicationStatusSubmitted    ApplicationStatus = "Submitted"
	ApplicationStatusInProgress   ApplicationStatus = "In Progress"
	ApplicationStatusDocRequested ApplicationStatus = "Doc Requested"
	ApplicationStatusAccepted     ApplicationStatus = "Accepted"
	ApplicationStatusRejected     ApplicationStatus = "Rejected"
	ApplicationStatusWithdrawn    ApplicationStatus = "Withdrawn"
	ApplicationStatusApproved     ApplicationStatus = "Approved"
	ApplicationStatusPaid         ApplicationStatus = "Paid"
)

// ApplicationStatuses is the closed set of accepted status values.
var ApplicationStatuses = []ApplicationStatus{
	ApplicationStatusPending,
	ApplicationStatusSubmitted,
	ApplicationStatusInProgress,
	ApplicationStatusDocRequested,
	ApplicationStatusAccepted,
	ApplicationStatusRejected,
	ApplicationStatusWithdrawn,
	ApplicationStatusApproved,
	ApplicationStatusPaid,
}

// IsValid reports whether s is a member of the closed status set.
func (s ApplicationStatus) IsValid() bool {
	for _, known := range ApplicationStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is permitted out of s.
func (s ApplicationStatus) IsTerminal() bool {
	return s == ApplicationStatusRejected || s == ApplicationStatusWithdrawn || s == ApplicationStatusPaid
}

// Application represents a single program/institute submission owned by a
// student. The tuple (student, program, institute, start date) is unique,
// which is the duplicate-submission guard.
type Application struct {
	ID        uint           `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ApplicationID string `gorm:"type:varchar(36);uniqueIndex;not null" json:"application_id"` // UUID
	StudentID     uint   `gorm:"not null;index;uniqueIndex:idx_application_dedup" json:"student_id"`

	Program   string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_application_dedup" json:"program"`
	Institute string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_application_dedup" json:"institute"`
	StartDate time.Time `gorm:"not null;uniqueIndex:idx_application_dedup" json:"start_date"`

	ApplyDate   time.Time  `gorm:"not null" json:"apply_date"`
	PaymentDate *time.Time `json:"payment_date,omitempty"`

	Status              ApplicationStatus `gorm:"type:varchar(20);default:'Pending'" json:"status"`
	Requirements        string            `gorm:"type:text" json:"requirements"`
	RequirementsPartner string            `gorm:"type:text" json:"requirements_partner"`
	CurrentStage        string            `gorm:"type:varchar(100)" json:"current_stage"`

	// Pending document request, present while status is Doc Requested
	DocumentRequest datatypes.JSON `gorm:"type:jsonb" json:"document_request,omitempty"`

	LastUpdated time.Time `json:"last_updated"`

	// Relationships
	Student       Student             `gorm:"foreignKey:StudentID" json:"-"`
	StatusHistory []ApplicationStatusChange `gorm:"foreignKey:ApplicationRowID;constraint:OnDelete:CASCADE" json:"status_history,omitempty"`
}

// DocumentRequestDetails is the structured payload stored in DocumentRequest.
type DocumentRequestDetails struct {
	DocumentTypes []string  `json:"document_types"`
	Message       string    `json:"message,omitempty"`
	DueDate       time.Time `json:"due_date"`
	RequestedAt   time.Time `json:"requested_at"`
}

// ApplicationStatusChange is one audit entry in an application's status trail.
type ApplicationStatusChange struct {
	ID               uint              `gorm:"primaryKey" json:"id"`
	ApplicationRowID uint              `gorm:"not null;index" json:"-"`
	PreviousStatus   ApplicationStatus `gorm:"type:varchar(20);not null" json:"previous_status"`
	Status           ApplicationStatus `gorm:"type:varchar(20);not null" json:"status"`
	Note             string            `gorm:"type:text" json:"note,omitempty"`
	ChangedBy        string            `gorm:"type:varchar(255)" json:"changed_by,omitempty"`
	ChangedAt        time.Time         `gorm:"autoCreateTime" json:"changed_at"`
}

// TableName specifies the table name for ApplicationStatusChange
func (ApplicationStatusChange) TableName() string {
	return "application_status_changes"
}
