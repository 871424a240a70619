package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/studylane/agency-api/model"
	"github.com/studylane/agency-api/utils/apperrors"
)

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{33.333333, 33.33},
		{66.666666, 66.67},
		{100, 100},
		{0.005, 0.01},
	}
	for _, tt := range tests {
		if got := round2(tt.in); got != tt.want {
			t.Errorf("round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGenerateReportValidation(t *testing.T) {
	svc := NewReportService(nil)

	for _, year := range []int{1999, 2201, 0, -5} {
		if _, err := svc.Generate(context.Background(), time.January, year); apperrors.KindOf(err) != apperrors.KindValidation {
			t.Errorf("expected validation error for year %d, got %v", year, err)
		}
	}
}

func TestGenerateReportSnapshot(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	agent := createTestAgent(t, db)
	student := createTestStudent(t, db, agent.ID)

	now := time.Now().UTC()
	month := now.Month()
	year := now.Year()

	appSvc := NewApplicationService(db, nil)
	accepted, err := appSvc.CreateApplication(ctx, student.ID, CreateApplicationInput{
		Program:   "Master of Computer Science",
		Institute: "University of Toronto",
		StartDate: now.AddDate(1, 0, 0),
		ApplyDate: now,
	})
	if err != nil {
		t.Fatalf("create application failed: %v", err)
	}
	if _, err := appSvc.CreateApplication(ctx, student.ID, CreateApplicationInput{
		Program:   "Master of Engineering",
		Institute: "University of British Columbia",
		StartDate: now.AddDate(1, 1, 0),
		ApplyDate: now,
	}); err != nil {
		t.Fatalf("create application failed: %v", err)
	}

	// Move one application to a successful outcome
	for _, next := range []model.ApplicationStatus{
		model.ApplicationStatusSubmitted,
		model.ApplicationStatusInProgress,
		model.ApplicationStatusAccepted,
	} {
		if _, err := appSvc.UpdateApplicationStatus(ctx, student.ID, accepted.ApplicationID, UpdateStatusInput{
			Status:    next,
			ChangedBy: agent.Email,
		}); err != nil {
			t.Fatalf("transition to %s failed: %v", next, err)
		}
	}

	if err := db.Create(&model.Commission{
		AgentID: agent.ID,
		Amount:  750,
		Type:    model.CommissionTypeApplicationFee,
		Status:  model.CommissionStatusApproved,
		Month:   now.Format("Jan"),
		Year:    year,
	}).Error; err != nil {
		t.Fatalf("seed approved commission failed: %v", err)
	}

	svc := NewReportService(db)
	report, err := svc.Generate(ctx, month, year)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if report.MonthlyApplications != 2 {
		t.Errorf("expected 2 monthly applications, got %d", report.MonthlyApplications)
	}
	if report.MonthlyRevenue != 750 {
		t.Errorf("expected monthly revenue 750, got %v", report.MonthlyRevenue)
	}
	if report.ActiveAgents != 1 {
		t.Errorf("expected 1 active agent, got %d", report.ActiveAgents)
	}
	if report.SuccessRate != 50 {
		t.Errorf("expected success rate 50, got %v", report.SuccessRate)
	}

	var countries []model.CountryShare
	if err := json.Unmarshal(report.SourceCountries, &countries); err != nil {
		t.Fatalf("failed to decode source countries: %v", err)
	}
	if len(countries) != 1 || countries[0].Country != "India" || countries[0].Percentage != 100 {
		t.Errorf("unexpected source countries: %+v", countries)
	}

	// Regeneration appends, never rewrites, and over unchanged data the
	// computed fields come out identical
	second, err := svc.Generate(ctx, month, year)
	if err != nil {
		t.Fatalf("regenerate failed: %v", err)
	}
	if second.MonthlyApplications != report.MonthlyApplications {
		t.Errorf("monthly applications changed: %d vs %d", second.MonthlyApplications, report.MonthlyApplications)
	}
	if second.MonthlyRevenue != report.MonthlyRevenue {
		t.Errorf("monthly revenue changed: %v vs %v", second.MonthlyRevenue, report.MonthlyRevenue)
	}
	if second.ActiveAgents != report.ActiveAgents {
		t.Errorf("active agents changed: %d vs %d", second.ActiveAgents, report.ActiveAgents)
	}
	if second.SuccessRate != report.SuccessRate || second.ApprovalRate != report.ApprovalRate {
		t.Errorf("rates changed: %v/%v vs %v/%v",
			second.SuccessRate, second.ApprovalRate, report.SuccessRate, report.ApprovalRate)
	}
	if second.ProcessingTimeDays != report.ProcessingTimeDays {
		t.Errorf("processing time changed: %d vs %d", second.ProcessingTimeDays, report.ProcessingTimeDays)
	}
	if string(second.SourceCountries) != string(report.SourceCountries) {
		t.Errorf("source countries changed: %s vs %s", second.SourceCountries, report.SourceCountries)
	}
	if string(second.PopularPrograms) != string(report.PopularPrograms) {
		t.Errorf("popular programs changed: %s vs %s", second.PopularPrograms, report.PopularPrograms)
	}
	if string(second.TopAgents) != string(report.TopAgents) {
		t.Errorf("top agents changed: %s vs %s", second.TopAgents, report.TopAgents)
	}
	var count int64
	if err := db.Model(&model.Report{}).
		Where("month = ? AND year = ?", report.Month, year).
		Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 snapshot rows after regeneration, got %d", count)
	}

	// Latest returns the newer row
	latest, err := svc.Latest(ctx, month, year)
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if latest.ID == report.ID {
		t.Error("expected Latest to return the regenerated snapshot")
	}
}

func TestTrendsDeduplicatesPeriods(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewReportService(db)

	// Two snapshots of the same period plus two other periods
	seed := []model.Report{
		{Month: "Jan", Year: 2027, MonthlyApplications: 1},
		{Month: "Jan", Year: 2027, MonthlyApplications: 5},
		{Month: "Feb", Year: 2027, MonthlyApplications: 3},
		{Month: "Dec", Year: 2026, MonthlyApplications: 2},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed report failed: %v", err)
		}
		// Distinct created_at ordering
		created := time.Now().Add(time.Duration(i-len(seed)) * time.Minute)
		if err := db.Model(&seed[i]).Update("created_at", created).Error; err != nil {
			t.Fatalf("backdate failed: %v", err)
		}
	}

	trends, err := svc.Trends(ctx, 6)
	if err != nil {
		t.Fatalf("trends failed: %v", err)
	}
	if len(trends) != 3 {
		t.Fatalf("expected 3 distinct periods, got %d", len(trends))
	}

	// Newest snapshot per period wins
	for _, r := range trends {
		if r.Month == "Jan" && r.Year == 2027 && r.MonthlyApplications != 5 {
			t.Errorf("expected newest Jan 2027 snapshot, got applications=%d", r.MonthlyApplications)
		}
	}

	limited, err := svc.Trends(ctx, 2)
	if err != nil {
		t.Fatalf("trends failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected trends capped at 2, got %d", len(limited))
	}
}
