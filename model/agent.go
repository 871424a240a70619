package model

import (
	"time"

	"gorm.io/gorm"
)

// Agent represents a recruitment partner who manages students and earns
// commission on successful application outcomes.
type Agent struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	FirstName    string         `gorm:"not null" json:"first_name"`
	LastName     string         `gorm:"not null" json:"last_name"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Phone        string         `gorm:"type:varchar(30)" json:"phone"`
	Country      string         `gorm:"type:varchar(100)" json:"country"`
	Role         string         `gorm:"type:varchar(20);default:'agent'" json:"role"` // agent, admin
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	TokenVersion int            `gorm:"default:0" json:"-"` // Increment to invalidate all agent tokens

	ConsentAccepted bool   `gorm:"default:false" json:"consent_accepted"`
	ProfilePicture  string `gorm:"type:varchar(512)" json:"profile_picture"` // blob storage URL

	ResetPasswordToken   string     `gorm:"type:varchar(128)" json:"-"`
	ResetPasswordExpires *time.Time `json:"-"`

	// Relationships
	Documents       []AgentDocument  `gorm:"foreignKey:AgentID;constraint:OnDelete:CASCADE" json:"documents,omitempty"`
	Students        []Student        `gorm:"foreignKey:AgentID" json:"-"`
	Commissions     []Commission     `gorm:"foreignKey:AgentID" json:"-"`
	PaymentRequests []PaymentRequest `gorm:"foreignKey:AgentID;constraint:OnDelete:CASCADE" json:"-"`
}

// FullName returns the agent's display name.
func (a *Agent) FullName() string {
	return a.FirstName + " " + a.LastName
}

// AgentDocument is an uploaded verification document. Only the blob storage
// reference is persisted; the file itself lives in object storage.
type AgentDocument struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	AgentID    uint           `gorm:"not null;index" json:"agent_id"`
	Title      string         `gorm:"type:varchar(255);not null" json:"title"`
	FileURL    string         `gorm:"type:varchar(512);not null" json:"file_url"`
	Verified   bool           `gorm:"default:false" json:"verified"`
	UploadedAt time.Time      `gorm:"autoCreateTime" json:"uploaded_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for AgentDocument
func (AgentDocument) TableName() string {
	return "agent_documents"
}
