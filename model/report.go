package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Report is a monthly read-only snapshot aggregated from students,
// applications and commissions. Rows are appended, never updated; readers
// wanting the latest snapshot for a period order by created_at.
type Report struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Month string `gorm:"type:varchar(10);not null;index:idx_report_period" json:"month"` // short month name, e.g. "Aug"
	Year  int    `gorm:"not null;index:idx_report_period" json:"year"`

	MonthlyApplications int     `gorm:"default:0" json:"monthly_applications"`
	MonthlyRevenue      float64 `gorm:"default:0" json:"monthly_revenue"`
	ActiveAgents        int     `gorm:"default:0" json:"active_agents"`
	SuccessRate         float64 `gorm:"default:0" json:"success_rate"`
	ChartValue          int     `gorm:"default:0" json:"chart_value"`
	TotalApplications   int     `gorm:"default:0" json:"total_applications"`
	ApprovalRate        float64 `gorm:"default:0" json:"approval_rate"`
	ProcessingTimeDays  int     `gorm:"default:0" json:"processing_time_days"`

	SourceCountries datatypes.JSON `gorm:"type:jsonb" json:"source_countries,omitempty"`
	PopularPrograms datatypes.JSON `gorm:"type:jsonb" json:"popular_programs,omitempty"`
	TopAgents       datatypes.JSON `gorm:"type:jsonb" json:"top_agents,omitempty"`
}

// CountryShare is one entry of a report's source-country breakdown.
type CountryShare struct {
	Country    string `json:"country"`
	Percentage int    `json:"percentage"`
}

// ProgramStat is one entry of a report's popular-program breakdown.
type ProgramStat struct {
	Program      string `json:"program"`
	University   string `json:"university"`
	Applications int    `json:"applications"`
}

// AgentStat is one entry of a report's top-agent breakdown.
type AgentStat struct {
	Name         string `json:"name"`
	Applications int    `json:"applications"`
	SuccessRate  int    `json:"success_rate"`
}
