package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/studylane/agency-api/model"
)

const stalePaymentRequestAge = 30 * 24 * time.Hour
const notificationRetention = 90 * 24 * time.Hour

// GeneratePreviousMonthReport snapshots the month that just ended.
// Runs on the 1st of each month.
func (m *CronManager) GeneratePreviousMonthReport() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	jobName := "generate_monthly_report"

	prev := time.Now().UTC().AddDate(0, -1, 0)
	report, err := m.reports.Generate(ctx, prev.Month(), prev.Year())
	if err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to generate report for %s %d: %w", prev.Month(), prev.Year(), err))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Generated report %s %d: %d applications, %.2f revenue",
		report.Month, report.Year, report.MonthlyApplications, report.MonthlyRevenue))
}

// RefreshCurrentMonthReport appends a fresh snapshot for the running month
// so dashboards stay close to live. Runs daily.
func (m *CronManager) RefreshCurrentMonthReport() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	jobName := "refresh_current_month_report"

	now := time.Now().UTC()
	report, err := m.reports.Generate(ctx, now.Month(), now.Year())
	if err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to refresh report for %s %d: %w", now.Month(), now.Year(), err))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Refreshed report %s %d", report.Month, report.Year))
}

// SweepStalePaymentRequests rejects payout requests left Pending past the
// review window. Runs daily.
func (m *CronManager) SweepStalePaymentRequests() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	jobName := "sweep_stale_payment_requests"

	swept, err := m.payments.SweepStalePendingRequests(ctx, stalePaymentRequestAge)
	if err != nil {
		m.logJobError(jobName, err)
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Rejected %d stale payment requests", swept))
}

// CleanupTokenBlacklist drops blacklist rows whose tokens expired anyway.
// Runs hourly.
func (m *CronManager) CleanupTokenBlacklist() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	jobName := "cleanup_token_blacklist"

	removed, err := m.blacklist.CleanupExpired(ctx)
	if err != nil {
		m.logJobError(jobName, err)
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Removed %d expired blacklist entries", removed))
}

// CleanupOldNotifications purges read notifications past the retention
// window. Runs daily.
func (m *CronManager) CleanupOldNotifications() {
	jobName := "cleanup_old_notifications"

	cutoff := time.Now().Add(-notificationRetention)
	result := m.db.Unscoped().
		Where("read = ? AND created_at < ?", true, cutoff).
		Delete(&model.AgentNotification{})
	if result.Error != nil {
		m.logJobError(jobName, result.Error)
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Purged %d old notifications", result.RowsAffected))
}
