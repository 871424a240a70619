package model

import (
	"time"

	"gorm.io/gorm"
)

// StudentStatus represents the overall profile status of a student
type StudentStatus string

const (
	StudentStatusPending  StudentStatus = "Pending"
	StudentStatusActive   StudentStatus = "Active"
	StudentStatusInactive StudentStatus = "Inactive"
	StudentStatusApproved StudentStatus = "Approved"
	StudentStatusRejected StudentStatus = "Rejected"
)

// Student represents a prospective student managed by an agent.
// Email and passport number are globally unique; applications live in their
// own table keyed back to the student so status updates are row-level writes.
type Student struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	FirstName  string `gorm:"not null" json:"first_name"`
	MiddleName string `json:"middle_name,omitempty"`
	LastName   string `gorm:"not null" json:"last_name"`

	DateOfBirth        time.Time `gorm:"not null" json:"date_of_birth"`
	CitizenOf          string    `gorm:"type:varchar(100);not null" json:"citizen_of"`
	PassportNumber     string    `gorm:"uniqueIndex;not null" json:"passport_number"`
	PassportExpiryDate time.Time `gorm:"not null" json:"passport_expiry_date"`
	Gender             string    `gorm:"type:varchar(10);not null" json:"gender"` // Male, Female, Other

	Email       string `gorm:"uniqueIndex;not null" json:"email"`
	PhoneNumber string `gorm:"type:varchar(30);not null" json:"phone_number"`

	ReferralSource    string        `gorm:"type:varchar(100)" json:"referral_source,omitempty"`
	Status            StudentStatus `gorm:"type:varchar(20);default:'Pending'" json:"status"`
	CountryOfInterest string        `gorm:"type:varchar(100)" json:"country_of_interest,omitempty"`
	ServiceOfInterest string        `gorm:"type:varchar(100)" json:"service_of_interest,omitempty"`
	ConditionsAccepted bool         `gorm:"not null" json:"conditions_accepted"`

	AgentID          *uint `gorm:"index" json:"agent_id,omitempty"` // nullable until assigned
	ApplicationCount int   `gorm:"default:0" json:"application_count"`

	// Relationships
	Agent        *Agent        `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
	Applications []Application `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"applications,omitempty"`
}

// FullName returns the student's display name.
func (s *Student) FullName() string {
	return s.FirstName + " " + s.LastName
}
