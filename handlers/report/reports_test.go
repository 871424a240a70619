package report

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/studylane/agency-api/model"
	"github.com/studylane/agency-api/services"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupReportApp(t *testing.T) *fiber.App {
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
		&model.Student{},
		&model.Application{},
		&model.ApplicationStatusChange{},
		&model.Commission{},
		&model.Report{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	if err := db.Exec("DELETE FROM reports").Error; err != nil {
		t.Fatalf("failed to clean reports: %v", err)
	}

	handler := NewReportHandler(services.NewReportService(db))
	app := fiber.New()
	app.Post("/reports/generate", handler.Generate)
	return app
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to encode body: %v", err)
	}
	return bytes.NewReader(data)
}

func TestGenerateDefaultsToCurrentMonth(t *testing.T) {
	app := setupReportApp(t)

	req := httptest.NewRequest("POST", "/reports/generate", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var body struct {
		Success bool         `json:"success"`
		Data    model.Report `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	now := time.Now().UTC()
	if body.Data.Month != now.Format("Jan") {
		t.Errorf("expected month %q, got %q", now.Format("Jan"), body.Data.Month)
	}
	if body.Data.Year != now.Year() {
		t.Errorf("expected year %d, got %d", now.Year(), body.Data.Year)
	}
}

func TestGenerateRejectsBadMonth(t *testing.T) {
	app := setupReportApp(t)

	req := httptest.NewRequest("POST", "/reports/generate", jsonBody(t, map[string]int{"month": 13, "year": 2027}))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", resp.StatusCode)
	}
}
