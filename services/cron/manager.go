package cron

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/studylane/agency-api/model"
	"github.com/studylane/agency-api/services"
	"github.com/studylane/agency-api/utils/auth"
	"gorm.io/gorm"
)

// CronManager manages all scheduled background jobs
type CronManager struct {
	cron      *cron.Cron
	db        *gorm.DB
	reports   *services.ReportService
	payments  *services.PaymentService
	blacklist *auth.BlacklistService
}

// NewCronManager creates a new cron manager
func NewCronManager(db *gorm.DB, reports *services.ReportService, payments *services.PaymentService, blacklist *auth.BlacklistService) *CronManager {
	// Seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron:      c,
		db:        db,
		reports:   reports,
		payments:  payments,
		blacklist: blacklist,
	}
}

// Start registers and starts all jobs
func (m *CronManager) Start() error {
	log.Println("Starting cron jobs...")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()

	log.Println("Cron jobs started successfully")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (m *CronManager) Stop() {
	log.Println("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("Cron jobs stopped")
}

func (m *CronManager) registerJobs() error {
	// 1. Monthly at 01:00 on the 1st: snapshot the month that just ended
	_, err := m.cron.AddFunc("0 0 1 1 * *", func() {
		m.logJobStart("generate_monthly_report")
		m.GeneratePreviousMonthReport()
	})
	if err != nil {
		return err
	}

	// 2. Daily at 03:00: refresh the running snapshot for the current month
	_, err = m.cron.AddFunc("0 0 3 * * *", func() {
		m.logJobStart("refresh_current_month_report")
		m.RefreshCurrentMonthReport()
	})
	if err != nil {
		return err
	}

	// 3. Daily at 02:00: reject payment requests stuck in Pending
	_, err = m.cron.AddFunc("0 0 2 * * *", func() {
		m.logJobStart("sweep_stale_payment_requests")
		m.SweepStalePaymentRequests()
	})
	if err != nil {
		return err
	}

	// 4. Every hour: drop expired token blacklist entries
	_, err = m.cron.AddFunc("0 0 * * * *", func() {
		m.logJobStart("cleanup_token_blacklist")
		m.CleanupTokenBlacklist()
	})
	if err != nil {
		return err
	}

	// 5. Daily at 04:00: purge old read notifications
	_, err = m.cron.AddFunc("0 0 4 * * *", func() {
		m.logJobStart("cleanup_old_notifications")
		m.CleanupOldNotifications()
	})
	if err != nil {
		return err
	}

	log.Println("All cron jobs registered successfully")
	return nil
}

// logJobStart logs the start of a cron job
func (m *CronManager) logJobStart(jobName string) {
	log.Printf("[CRON] Starting job: %s at %s", jobName, time.Now().Format(time.RFC3339))

	cronLog := model.CronJobLog{
		JobName:   jobName,
		Status:    "running",
		StartedAt: time.Now(),
	}
	m.db.Create(&cronLog)
}

// logJobComplete logs successful completion of a cron job
func (m *CronManager) logJobComplete(jobName string, message string) {
	log.Printf("[CRON] Completed job: %s - %s", jobName, message)

	m.db.Model(&model.CronJobLog{}).
		Where("job_name = ? AND status = ?", jobName, "running").
		Order("started_at DESC").
		Limit(1).
		Updates(map[string]interface{}{
			"status":       "completed",
			"completed_at": time.Now(),
			"message":      message,
		})
}

// logJobError logs a cron job failure
func (m *CronManager) logJobError(jobName string, err error) {
	log.Printf("[CRON] Error in job: %s - %v", jobName, err)

	m.db.Model(&model.CronJobLog{}).
		Where("job_name = ? AND status = ?", jobName, "running").
		Order("started_at DESC").
		Limit(1).
		Updates(map[string]interface{}{
			"status":       "failed",
			"completed_at": time.Now(),
			"error_msg":    err.Error(),
		})
}
