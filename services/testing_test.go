package services

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/studylane/agency-api/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens the integration test database. Tests using it are
// skipped unless RUN_INTEGRATION_TESTS=true and TEST_DATABASE_URL point at a
// disposable PostgreSQL instance.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=true to run.")
	}

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("Skipping integration test. Set TEST_DATABASE_URL to a test database DSN.")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := db.AutoMigrate(
		&model.Agent{},
		&model.AgentDocument{},
		&model.JWTTokenBlacklist{},
		&model.Student{},
		&model.Application{},
		&model.ApplicationStatusChange{},
		&model.Commission{},
		&model.PaymentRequest{},
		&model.Payment{},
		&model.University{},
		&model.Report{},
		&model.CronJobLog{},
		&model.AgentNotification{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	// Hard-delete everything between tests, newest tables first
	for _, table := range []string{
		"agent_notifications",
		"application_status_changes",
		"payments",
		"payment_requests",
		"commissions",
		"applications",
		"students",
		"reports",
		"cron_job_logs",
		"jwt_token_blacklist",
		"agent_documents",
		"agents",
	} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("failed to clean table %s: %v", table, err)
		}
	}

	return db
}

func createTestAgent(t *testing.T, db *gorm.DB) *model.Agent {
	t.Helper()

	agent := &model.Agent{
		FirstName:    "Test",
		LastName:     "Agent",
		Email:        fmt.Sprintf("agent-%s@example.com", uuid.New().String()[:8]),
		PasswordHash: "not-a-real-hash",
		Role:         "agent",
		IsActive:     true,
	}
	if err := db.Create(agent).Error; err != nil {
		t.Fatalf("failed to create test agent: %v", err)
	}
	return agent
}

func createTestStudent(t *testing.T, db *gorm.DB, agentID uint) *model.Student {
	t.Helper()

	suffix := uuid.New().String()[:8]
	student := &model.Student{
		FirstName:          "Test",
		LastName:           "Student",
		DateOfBirth:        time.Date(2000, 1, 15, 0, 0, 0, 0, time.UTC),
		CitizenOf:          "India",
		PassportNumber:     "P" + suffix,
		PassportExpiryDate: time.Now().AddDate(5, 0, 0),
		Gender:             "Female",
		Email:              fmt.Sprintf("student-%s@example.com", suffix),
		PhoneNumber:        "+911234567890",
		Status:             model.StudentStatusActive,
		ConditionsAccepted: true,
		AgentID:            &agentID,
	}
	if err := db.Create(student).Error; err != nil {
		t.Fatalf("failed to create test student: %v", err)
	}
	return student
}
