package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/studylane/agency-api/model"
	"github.com/studylane/agency-api/utils/apperrors"
	"github.com/studylane/agency-api/utils/cache"
	"gorm.io/gorm"
)

// Commission amounts by program tier
const (
	commissionAmountDefault = 500
	commissionAmountMaster  = 750
	commissionAmountPhD     = 1000
)

const dashboardStatsCacheKey = "commissions:dashboard_stats"
const dashboardStatsCacheTTL = 5 * time.Minute

// AmountForProgram returns the commission amount earned for an accepted
// application into the given program. Matching is a case-insensitive
// substring check on the program name.
func AmountForProgram(program string) float64 {
	p := strings.ToLower(program)
	switch {
	case strings.Contains(p, "master"):
		return commissionAmountMaster
	case strings.Contains(p, "phd"):
		return commissionAmountPhD
	default:
		return commissionAmountDefault
	}
}

// CommissionService manages commission generation and payout state
type CommissionService struct {
	db       *gorm.DB
	cache    *cache.RedisCache
	notifier *NotificationService
}

// NewCommissionService creates a new commission service. The cache is
// optional; a nil cache disables dashboard caching.
func NewCommissionService(db *gorm.DB, redisCache *cache.RedisCache, notifier *NotificationService) *CommissionService {
	return &CommissionService{db: db, cache: redisCache, notifier: notifier}
}

// AutoGenerate creates the commission earned by an accepted application.
// Exactly one commission can exist per application: a repeat call for the
// same application is a conflict, backed by a unique index on
// (student_id, application_id).
func (s *CommissionService) AutoGenerate(ctx context.Context, studentID uint, applicationID string, generatedBy string) (*model.Commission, error) {
	var student model.Student
	if err := s.db.WithContext(ctx).First(&student, studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("Student not found")
		}
		return nil, apperrors.NewStorage("Failed to load student", err)
	}

	if student.AgentID == nil {
		return nil, apperrors.NewValidation("Student has no agent to credit", map[string]string{
			"agent_id": "student is not assigned to an agent",
		})
	}

	var app model.Application
	if err := s.db.WithContext(ctx).
		Where("student_id = ? AND application_id = ?", studentID, applicationID).
		First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("Application not found")
		}
		return nil, apperrors.NewStorage("Failed to load application", err)
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&model.Commission{}).
		Where("student_id = ? AND application_id = ?", studentID, applicationID).
		Count(&existing).Error; err != nil {
		return nil, apperrors.NewStorage("Failed to check existing commission", err)
	}
	if existing > 0 {
		return nil, apperrors.NewConflict("Commission already generated for this application")
	}

	now := time.Now()
	commission := &model.Commission{
		AgentID:       *student.AgentID,
		StudentID:     &student.ID,
		ApplicationID: &app.ApplicationID,
		Amount:        AmountForProgram(app.Program),
		Type:          model.CommissionTypeApplicationFee,
		Status:        model.CommissionStatusApproved,
		Month:         now.Format("Jan"),
		Year:          now.Year(),
		Description:   fmt.Sprintf("Commission for %s at %s (%s)", app.Program, app.Institute, student.FullName()),
		ApprovedBy:    generatedBy,
		ApprovedDate:  &now,
		Program:       app.Program,
		Institute:     app.Institute,
	}

	if err := s.db.WithContext(ctx).Create(commission).Error; err != nil {
		// The unique index is the backstop for racing generators
		if strings.Contains(err.Error(), "idx_commission_application") ||
			strings.Contains(err.Error(), "duplicate key") {
			return nil, apperrors.NewConflict("Commission already generated for this application")
		}
		return nil, apperrors.NewStorage("Failed to create commission", err)
	}

	s.invalidateDashboard(ctx)

	if s.notifier != nil {
		s.notifier.Notify(ctx, CreateNotificationRequest{
			AgentID:  commission.AgentID,
			Type:     model.NotificationTypeSuccess,
			Category: model.NotificationCategoryCommission,
			Title:    "Commission earned",
			Message:  fmt.Sprintf("You earned $%.2f for %s's application to %s", commission.Amount, student.FullName(), app.Institute),
			Metadata: &model.NotificationMetadata{
				StudentID:     student.ID,
				StudentName:   student.FullName(),
				ApplicationID: app.ApplicationID,
				Program:       app.Program,
				Institute:     app.Institute,
				Amount:        commission.Amount,
			},
		})
	}

	return commission, nil
}

// CreateCommissionInput holds the fields for a manually-entered commission
type CreateCommissionInput struct {
	AgentID     uint
	StudentID   *uint
	Amount      float64
	Type        model.CommissionType
	Description string
}

// Create records a manual commission (bonus, monthly, adjustments). Manual
// rows start Pending and carry no application reference.
func (s *CommissionService) Create(ctx context.Context, in CreateCommissionInput) (*model.Commission, error) {
	fields := make(map[string]string)
	if in.AgentID == 0 {
		fields["agent_id"] = "agent is required"
	}
	if in.Amount <= 0 {
		fields["amount"] = "amount must be positive"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidation("Invalid commission", fields)
	}

	var agent model.Agent
	if err := s.db.WithContext(ctx).First(&agent, in.AgentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("Agent not found")
		}
		return nil, apperrors.NewStorage("Failed to load agent", err)
	}

	typ := in.Type
	if typ == "" {
		typ = model.CommissionTypeBonus
	}

	now := time.Now()
	commission := &model.Commission{
		AgentID:     in.AgentID,
		StudentID:   in.StudentID,
		Amount:      in.Amount,
		Type:        typ,
		Status:      model.CommissionStatusPending,
		Month:       now.Format("Jan"),
		Year:        now.Year(),
		Description: in.Description,
	}

	if err := s.db.WithContext(ctx).Create(commission).Error; err != nil {
		return nil, apperrors.NewStorage("Failed to create commission", err)
	}

	s.invalidateDashboard(ctx)
	return commission, nil
}

// UpdateCommissionStatus moves a commission between payout states. Paid and
// Rejected are terminal; rejection requires a reason.
func (s *CommissionService) UpdateCommissionStatus(ctx context.Context, commissionID uint, status model.CommissionStatus, actor, rejectionReason string) (*model.Commission, error) {
	if !status.IsValid() {
		return nil, apperrors.NewValidation("Invalid commission status", map[string]string{
			"status": fmt.Sprintf("unknown status %q", status),
		})
	}
	if status == model.CommissionStatusRejected && rejectionReason == "" {
		return nil, apperrors.NewValidation("Rejection requires a reason", map[string]string{
			"rejection_reason": "rejection reason is required",
		})
	}

	var commission model.Commission
	if err := s.db.WithContext(ctx).First(&commission, commissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("Commission not found")
		}
		return nil, apperrors.NewStorage("Failed to load commission", err)
	}

	if commission.Status.IsTerminal() {
		return nil, apperrors.NewConflict(
			fmt.Sprintf("Commission is already %s and cannot change", commission.Status))
	}
	if commission.Status == status {
		return nil, apperrors.NewConflict(fmt.Sprintf("Commission is already %s", status))
	}

	now := time.Now()
	updates := map[string]interface{}{"status": status}
	switch status {
	case model.CommissionStatusApproved:
		updates["approved_by"] = actor
		updates["approved_date"] = now
	case model.CommissionStatusPaid:
		updates["paid_date"] = now
	case model.CommissionStatusRejected:
		updates["rejection_reason"] = rejectionReason
	}

	result := s.db.WithContext(ctx).Model(&model.Commission{}).
		Where("id = ? AND status = ?", commission.ID, commission.Status).
		Updates(updates)
	if result.Error != nil {
		return nil, apperrors.NewStorage("Failed to update commission status", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.NewConflict("Commission was modified concurrently, retry")
	}

	s.invalidateDashboard(ctx)

	if err := s.db.WithContext(ctx).First(&commission, commissionID).Error; err != nil {
		return nil, apperrors.NewStorage("Failed to reload commission", err)
	}
	return &commission, nil
}

// ListCommissionsOptions filters the commission listing
type ListCommissionsOptions struct {
	AgentID *uint
	Status  model.CommissionStatus
	Month   string
	Year    int
	Limit   int
	Offset  int
}

// ListCommissions returns commissions newest first
func (s *CommissionService) ListCommissions(ctx context.Context, opts ListCommissionsOptions) ([]model.Commission, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.Commission{})

	if opts.AgentID != nil {
		query = query.Where("agent_id = ?", *opts.AgentID)
	}
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}
	if opts.Month != "" {
		query = query.Where("month = ?", opts.Month)
	}
	if opts.Year > 0 {
		query = query.Where("year = ?", opts.Year)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.NewStorage("Failed to count commissions", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	var commissions []model.Commission
	if err := query.Preload("Student").
		Order("created_at DESC").
		Limit(limit).
		Offset(opts.Offset).
		Find(&commissions).Error; err != nil {
		return nil, 0, apperrors.NewStorage("Failed to fetch commissions", err)
	}

	return commissions, total, nil
}

// AgentCommissionSummary aggregates one agent's commission balances
type AgentCommissionSummary struct {
	AgentID         uint    `json:"agent_id"`
	PendingAmount   float64 `json:"pending_amount"`
	ApprovedAmount  float64 `json:"approved_amount"`
	PaidAmount      float64 `json:"paid_amount"`
	PendingCount    int64   `json:"pending_count"`
	ApprovedCount   int64   `json:"approved_count"`
	PaidCount       int64   `json:"paid_count"`
	TotalEarned     float64 `json:"total_earned"`
	AvailableToDraw float64 `json:"available_to_draw"`
}

// AgentSummary computes an agent's commission balances. AvailableToDraw is
// the Approved total, the ceiling for payment requests.
func (s *CommissionService) AgentSummary(ctx context.Context, agentID uint) (*AgentCommissionSummary, error) {
	var rows []struct {
		Status model.CommissionStatus
		Total  float64
		Count  int64
	}
	err := s.db.WithContext(ctx).Model(&model.Commission{}).
		Select("status, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("agent_id = ?", agentID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.NewStorage("Failed to aggregate commissions", err)
	}

	summary := &AgentCommissionSummary{AgentID: agentID}
	for _, row := range rows {
		switch row.Status {
		case model.CommissionStatusPending:
			summary.PendingAmount = row.Total
			summary.PendingCount = row.Count
		case model.CommissionStatusApproved:
			summary.ApprovedAmount = row.Total
			summary.ApprovedCount = row.Count
		case model.CommissionStatusPaid:
			summary.PaidAmount = row.Total
			summary.PaidCount = row.Count
		}
	}
	summary.TotalEarned = summary.PendingAmount + summary.ApprovedAmount + summary.PaidAmount
	summary.AvailableToDraw = summary.ApprovedAmount

	return summary, nil
}

// DashboardStats is the admin-wide commission overview
type DashboardStats struct {
	TotalCommissions  int64   `json:"total_commissions"`
	TotalAmount       float64 `json:"total_amount"`
	PendingApproval   int64   `json:"pending_approval"`
	PaidThisMonth     float64 `json:"paid_this_month"`
	ApprovedUnsettled float64 `json:"approved_unsettled"`
	// GrowthPercent compares this month's paid volume to last month's
	GrowthPercent float64 `json:"growth_percent"`
}

// GetDashboardStats returns the admin commission overview, cached briefly
// in Redis. A cache failure falls through to the database.
func (s *CommissionService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	if s.cache != nil {
		var cached DashboardStats
		if err := s.cache.GetJSON(ctx, dashboardStatsCacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	stats := &DashboardStats{}
	db := s.db.WithContext(ctx).Model(&model.Commission{})

	if err := db.Count(&stats.TotalCommissions).Error; err != nil {
		return nil, apperrors.NewStorage("Failed to count commissions", err)
	}

	var totals struct {
		Total             float64
		ApprovedUnsettled float64
	}
	err := s.db.WithContext(ctx).Model(&model.Commission{}).
		Select("COALESCE(SUM(amount), 0) AS total, COALESCE(SUM(amount) FILTER (WHERE status = ?), 0) AS approved_unsettled",
			model.CommissionStatusApproved).
		Scan(&totals).Error
	if err != nil {
		return nil, apperrors.NewStorage("Failed to sum commissions", err)
	}
	stats.TotalAmount = totals.Total
	stats.ApprovedUnsettled = totals.ApprovedUnsettled

	if err := s.db.WithContext(ctx).Model(&model.Commission{}).
		Where("status = ?", model.CommissionStatusPending).
		Count(&stats.PendingApproval).Error; err != nil {
		return nil, apperrors.NewStorage("Failed to count pending commissions", err)
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&model.Commission{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("status = ? AND month = ? AND year = ?",
			model.CommissionStatusPaid, now.Format("Jan"), now.Year()).
		Scan(&stats.PaidThisMonth).Error; err != nil {
		return nil, apperrors.NewStorage("Failed to sum paid commissions", err)
	}

	lastMonth := now.AddDate(0, -1, 0)
	var paidLastMonth float64
	if err := s.db.WithContext(ctx).Model(&model.Commission{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("status = ? AND month = ? AND year = ?",
			model.CommissionStatusPaid, lastMonth.Format("Jan"), lastMonth.Year()).
		Scan(&paidLastMonth).Error; err != nil {
		return nil, apperrors.NewStorage("Failed to sum paid commissions", err)
	}
	if paidLastMonth > 0 {
		stats.GrowthPercent = (stats.PaidThisMonth - paidLastMonth) / paidLastMonth * 100
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, dashboardStatsCacheKey, stats, dashboardStatsCacheTTL); err != nil {
			log.Printf("dashboard stats cache write failed: %v", err)
		}
	}

	return stats, nil
}

func (s *CommissionService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, dashboardStatsCacheKey); err != nil {
		log.Printf("dashboard stats cache invalidation failed: %v", err)
	}
}
