package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentRequestStatus represents the processing state of a payout request
type PaymentRequestStatus string

const (
	PaymentRequestStatusPending  PaymentRequestStatus = "Pending"
	PaymentRequestStatusApproved PaymentRequestStatus = "Approved"
	PaymentRequestStatusPaid     PaymentRequestStatus = "Paid"
	PaymentRequestStatusRejected PaymentRequestStatus = "Rejected"
)

// IsValid reports whether s is a known payment request status.
func (s PaymentRequestStatus) IsValid() bool {
	switch s {
	case PaymentRequestStatusPending, PaymentRequestStatusApproved, PaymentRequestStatusPaid, PaymentRequestStatusRejected:
		return true
	}
	return false
}

// BankDetails holds the payout destination on a payment request.
type BankDetails struct {
	AccountName   string `json:"account_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
	RoutingNumber string `json:"routing_number,omitempty"`
	SwiftCode     string `json:"swift_code,omitempty"`
}

// PaymentRequest is an agent-initiated request to withdraw accumulated
// commission balance. The requested amount may not exceed the agent's
// currently-Approved commission total at creation time.
type PaymentRequest struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	AgentID     uint                 `gorm:"not null;index" json:"agent_id"`
	Amount      float64              `gorm:"not null" json:"amount"`
	Status      PaymentRequestStatus `gorm:"type:varchar(20);default:'Pending';index" json:"status"`
	RequestDate time.Time            `gorm:"autoCreateTime" json:"request_date"`
	BankDetails datatypes.JSON       `gorm:"type:jsonb" json:"bank_details,omitempty"`
	Notes       string               `gorm:"type:text" json:"notes,omitempty"`

	ProcessedBy     string     `gorm:"type:varchar(255)" json:"processed_by,omitempty"`
	ProcessedDate   *time.Time `json:"processed_date,omitempty"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason,omitempty"`

	// Relationships
	Agent Agent `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
}

// TableName specifies the table name for PaymentRequest
func (PaymentRequest) TableName() string {
	return "payment_requests"
}

// Payment is an immutable ledger entry recording a completed transfer.
// Rows are only ever appended.
type Payment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`

	AgentID       uint      `gorm:"not null;index" json:"agent_id"`
	StudentID     *uint     `gorm:"index" json:"student_id,omitempty"`
	Amount        float64   `gorm:"not null" json:"amount"`
	Method        string    `gorm:"type:varchar(50);not null" json:"method"`
	TransactionID string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"transaction_id"`
	Status        string    `gorm:"type:varchar(20);default:'completed'" json:"status"`
	PaymentDate   time.Time `gorm:"not null;index" json:"payment_date"`

	// Relationships
	Agent Agent `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
}
