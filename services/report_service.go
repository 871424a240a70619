package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/studylane/agency-api/model"
	"github.com/studylane/agency-api/utils/apperrors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Breakdown sizes on a report snapshot
const (
	topCountryLimit = 3
	topProgramLimit = 2
	topAgentLimit   = 2
)

// ReportService builds and serves monthly aggregate snapshots
type ReportService struct {
	db *gorm.DB
}

// NewReportService creates a new report service
func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

// acceptedStatuses are the application states counted as successful
// outcomes. Accepted applications keep progressing, so the later states
// count too.
var acceptedStatuses = []model.ApplicationStatus{
	model.ApplicationStatusAccepted,
	model.ApplicationStatusApproved,
	model.ApplicationStatusPaid,
}

// Generate computes and appends the snapshot for one calendar month. Reports
// are append-only: regenerating a period adds a newer row, it never rewrites
// the old one. All breakdowns use deterministic ordering (count descending,
// name ascending) so repeated runs over unchanged data produce equal rows.
func (s *ReportService) Generate(ctx context.Context, month time.Month, year int) (*model.Report, error) {
	if year < 2000 || year > 2200 {
		return nil, apperrors.NewValidation("Invalid report period", map[string]string{
			"year": fmt.Sprintf("year %d is out of range", year),
		})
	}

	periodStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)

	report := &model.Report{
		Month: periodStart.Format("Jan"),
		Year:  year,
	}

	db := s.db.WithContext(ctx)

	var monthlyApplications int64
	if err := db.Model(&model.Application{}).
		Where("created_at >= ? AND created_at < ?", periodStart, periodEnd).
		Count(&monthlyApplications).Error; err != nil {
		return nil, apperrors.NewStorage("Failed to count monthly applications", err)
	}
	report.MonthlyApplications = int(monthlyApplications)
	report.ChartValue = int(monthlyApplications)

	// Revenue is the Approved commission volume booked for the period
	if err := db.Model(&model.Commission{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("status = ? AND month = ? AND year = ?",
			model.CommissionStatusApproved, report.Month, year).
		Scan(&report.MonthlyRevenue).Error; err != nil {
		return nil, apperrors.NewStorage("Failed to sum monthly revenue", err)
	}

	var activeAgents int64
	if err := db.Model(&model.Agent{}).
		Where("is_active = ?", true).
		Count(&activeAgents).Error; err != nil {
		return nil, apperrors.NewStorage("Failed to count active agents", err)
	}
	report.ActiveAgents = int(activeAgents)

	var totalApplications int64
	if err := db.Model(&model.Application{}).Count(&totalApplications).Error; err != nil {
		return nil, apperrors.NewStorage("Failed to count applications", err)
	}
	report.TotalApplications = int(totalApplications)

	var totalAccepted int64
	if err := db.Model(&model.Application{}).
		Where("status IN ?", acceptedStatuses).
		Count(&totalAccepted).Error; err != nil {
		return nil, apperrors.NewStorage("Failed to count accepted applications", err)
	}
	if totalApplications > 0 {
		rate := round2(float64(totalAccepted) / float64(totalApplications) * 100)
		report.SuccessRate = rate
		report.ApprovalRate = rate
	}

	// Average apply-to-payment turnaround for period applications that
	// actually reached payment
	var processingDays *float64
	if err := db.Model(&model.Application{}).
		Select("AVG(EXTRACT(EPOCH FROM (payment_date - apply_date)) / 86400)").
		Where("created_at >= ? AND created_at < ? AND payment_date IS NOT NULL",
			periodStart, periodEnd).
		Scan(&processingDays).Error; err != nil {
		return nil, apperrors.NewStorage("Failed to compute processing time", err)
	}
	if processingDays != nil {
		report.ProcessingTimeDays = int(*processingDays + 0.5)
	}

	sourceCountries, err := s.sourceCountries(ctx)
	if err != nil {
		return nil, err
	}
	popularPrograms, err := s.popularPrograms(ctx)
	if err != nil {
		return nil, err
	}
	topAgents, err := s.topAgents(ctx)
	if err != nil {
		return nil, err
	}

	if report.SourceCountries, err = marshalJSONB(sourceCountries); err != nil {
		return nil, err
	}
	if report.PopularPrograms, err = marshalJSONB(popularPrograms); err != nil {
		return nil, err
	}
	if report.TopAgents, err = marshalJSONB(topAgents); err != nil {
		return nil, err
	}

	if err := db.Create(report).Error; err != nil {
		return nil, apperrors.NewStorage("Failed to store report", err)
	}

	return report, nil
}

func (s *ReportService) sourceCountries(ctx context.Context) ([]model.CountryShare, error) {
	var totalStudents int64
	if err := s.db.WithContext(ctx).Model(&model.Student{}).Count(&totalStudents).Error; err != nil {
		return nil, apperrors.NewStorage("Failed to count students", err)
	}

	var rows []struct {
		Country string
		Count   int64
	}
	err := s.db.WithContext(ctx).Model(&model.Student{}).
		Select("citizen_of AS country, COUNT(*) AS count").
		Group("citizen_of").
		Order("count DESC, country ASC").
		Limit(topCountryLimit).
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.NewStorage("Failed to aggregate source countries", err)
	}

	shares := make([]model.CountryShare, 0, len(rows))
	for _, row := range rows {
		pct := 0
		if totalStudents > 0 {
			pct = int(float64(row.Count)/float64(totalStudents)*100 + 0.5)
		}
		shares = append(shares, model.CountryShare{Country: row.Country, Percentage: pct})
	}
	return shares, nil
}

func (s *ReportService) popularPrograms(ctx context.Context) ([]model.ProgramStat, error) {
	var rows []struct {
		Program   string
		Institute string
		Count     int64
	}
	err := s.db.WithContext(ctx).Model(&model.Application{}).
		Select("program, institute, COUNT(*) AS count").
		Group("program, institute").
		Order("count DESC, program ASC, institute ASC").
		Limit(topProgramLimit).
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.NewStorage("Failed to aggregate popular programs", err)
	}

	stats := make([]model.ProgramStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, model.ProgramStat{
			Program:      row.Program,
			University:   row.Institute,
			Applications: int(row.Count),
		})
	}
	return stats, nil
}

func (s *ReportService) topAgents(ctx context.Context) ([]model.AgentStat, error) {
	var rows []struct {
		Name     string
		Count    int64
		Accepted int64
	}
	err := s.db.WithContext(ctx).Model(&model.Application{}).
		Joins("JOIN students ON students.id = applications.student_id").
		Joins("JOIN agents ON agents.id = students.agent_id").
		Select("CONCAT(agents.first_name, ' ', agents.last_name) AS name, COUNT(*) AS count, COUNT(*) FILTER (WHERE applications.status IN ?) AS accepted",
			acceptedStatuses).
		Group("agents.id, agents.first_name, agents.last_name").
		Order("count DESC, name ASC").
		Limit(topAgentLimit).
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.NewStorage("Failed to aggregate top agents", err)
	}

	stats := make([]model.AgentStat, 0, len(rows))
	for _, row := range rows {
		successRate := 0
		if row.Count > 0 {
			successRate = int(float64(row.Accepted)/float64(row.Count)*100 + 0.5)
		}
		stats = append(stats, model.AgentStat{
			Name:         row.Name,
			Applications: int(row.Count),
			SuccessRate:  successRate,
		})
	}
	return stats, nil
}

// Latest returns the newest snapshot for a period
func (s *ReportService) Latest(ctx context.Context, month time.Month, year int) (*model.Report, error) {
	var report model.Report
	err := s.db.WithContext(ctx).
		Where("month = ? AND year = ?", time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("Jan"), year).
		Order("created_at DESC").
		First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("No report for this period")
		}
		return nil, apperrors.NewStorage("Failed to load report", err)
	}
	return &report, nil
}

// List returns all snapshots, newest first
func (s *ReportService) List(ctx context.Context, limit, offset int) ([]model.Report, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&model.Report{}).Count(&total).Error; err != nil {
		return nil, 0, apperrors.NewStorage("Failed to count reports", err)
	}

	if limit <= 0 {
		limit = 50
	}

	var reports []model.Report
	if err := s.db.WithContext(ctx).
		Order("year DESC, created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&reports).Error; err != nil {
		return nil, 0, apperrors.NewStorage("Failed to fetch reports", err)
	}
	return reports, total, nil
}

// Trends returns the latest snapshot of each of the most recent periods,
// newest snapshot first, up to the requested count (default 6). The
// newest-row-per-period pick runs in SQL so the table never loads into
// memory.
func (s *ReportService) Trends(ctx context.Context, count int) ([]model.Report, error) {
	if count <= 0 {
		count = 6
	}

	var trends []model.Report
	err := s.db.WithContext(ctx).Raw(`
		SELECT * FROM (
			SELECT DISTINCT ON (month, year) *
			FROM reports
			WHERE deleted_at IS NULL
			ORDER BY month, year, created_at DESC
		) latest
		ORDER BY created_at DESC
		LIMIT ?`, count).
		Scan(&trends).Error
	if err != nil {
		return nil, apperrors.NewStorage("Failed to fetch report trends", err)
	}
	return trends, nil
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

func marshalJSONB(v interface{}) (datatypes.JSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, apperrors.NewStorage("Failed to encode report breakdown", err)
	}
	return datatypes.JSON(data), nil
}
