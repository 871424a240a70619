package services

import (
	"context"
	"testing"
	"time"

	"github.com/studylane/agency-api/model"
	"github.com/studylane/agency-api/utils/apperrors"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from model.ApplicationStatus
		to   model.ApplicationStatus
		want bool
	}{
		{"pending to submitted", model.ApplicationStatusPending, model.ApplicationStatusSubmitted, true},
		{"pending to doc requested", model.ApplicationStatusPending, model.ApplicationStatusDocRequested, true},
		{"pending to accepted skips review", model.ApplicationStatusPending, model.ApplicationStatusAccepted, false},
		{"submitted to in progress", model.ApplicationStatusSubmitted, model.ApplicationStatusInProgress, true},
		{"submitted to doc requested", model.ApplicationStatusSubmitted, model.ApplicationStatusDocRequested, true},
		{"submitted back to pending", model.ApplicationStatusSubmitted, model.ApplicationStatusPending, false},
		{"doc requested back to submitted", model.ApplicationStatusDocRequested, model.ApplicationStatusSubmitted, true},
		{"doc requested to in progress", model.ApplicationStatusDocRequested, model.ApplicationStatusInProgress, true},
		{"in progress to accepted", model.ApplicationStatusInProgress, model.ApplicationStatusAccepted, true},
		{"in progress to rejected", model.ApplicationStatusInProgress, model.ApplicationStatusRejected, true},
		{"in progress to doc requested", model.ApplicationStatusInProgress, model.ApplicationStatusDocRequested, true},
		{"in progress to paid skips approval", model.ApplicationStatusInProgress, model.ApplicationStatusPaid, false},
		{"accepted to approved", model.ApplicationStatusAccepted, model.ApplicationStatusApproved, true},
		{"accepted to rejected", model.ApplicationStatusAccepted, model.ApplicationStatusRejected, false},
		{"approved to paid", model.ApplicationStatusApproved, model.ApplicationStatusPaid, true},
		{"withdraw from pending", model.ApplicationStatusPending, model.ApplicationStatusWithdrawn, true},
		{"withdraw from in progress", model.ApplicationStatusInProgress, model.ApplicationStatusWithdrawn, true},
		{"withdraw from approved", model.ApplicationStatusApproved, model.ApplicationStatusWithdrawn, true},
		{"rejected is terminal", model.ApplicationStatusRejected, model.ApplicationStatusSubmitted, false},
		{"withdrawn is terminal", model.ApplicationStatusWithdrawn, model.ApplicationStatusPending, false},
		{"paid is terminal", model.ApplicationStatusPaid, model.ApplicationStatusWithdrawn, false},
		{"no self transition", model.ApplicationStatusSubmitted, model.ApplicationStatusSubmitted, false},
		{"no terminal self transition", model.ApplicationStatusPaid, model.ApplicationStatusPaid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestCreateApplicationInputValidate(t *testing.T) {
	valid := CreateApplicationInput{
		Program:   "Master of Computer Science",
		Institute: "University of Toronto",
		StartDate: time.Date(2027, 9, 1, 0, 0, 0, 0, time.UTC),
		ApplyDate: time.Now(),
	}
	if err := valid.validate(); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}

	missing := CreateApplicationInput{}
	err := missing.validate()
	if err == nil {
		t.Fatal("expected validation error for empty input")
	}
	if apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("expected validation kind, got %s", apperrors.KindOf(err))
	}
	fields := apperrors.FieldsOf(err)
	for _, f := range []string{"program", "institute", "start_date", "apply_date"} {
		if _, ok := fields[f]; !ok {
			t.Errorf("expected field error for %q", f)
		}
	}

	badStatus := valid
	badStatus.Status = "Floating"
	if err := badStatus.validate(); err == nil {
		t.Error("expected validation error for unknown status")
	}
}

func TestCreateApplicationDuplicateGuard(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	agent := createTestAgent(t, db)
	student := createTestStudent(t, db, agent.ID)

	svc := NewApplicationService(db, nil)
	in := CreateApplicationInput{
		Program:   "Master of Data Science",
		Institute: "University of British Columbia",
		StartDate: time.Date(2027, 1, 10, 0, 0, 0, 0, time.UTC),
		ApplyDate: time.Now(),
	}

	app, err := svc.CreateApplication(ctx, student.ID, in)
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if app.Status != model.ApplicationStatusPending {
		t.Errorf("expected new application to be Pending, got %s", app.Status)
	}

	if _, err := svc.CreateApplication(ctx, student.ID, in); apperrors.KindOf(err) != apperrors.KindConflict {
		t.Errorf("expected conflict on duplicate application, got %v", err)
	}

	var reloaded model.Student
	if err := db.First(&reloaded, student.ID).Error; err != nil {
		t.Fatalf("failed to reload student: %v", err)
	}
	if reloaded.ApplicationCount != 1 {
		t.Errorf("expected application_count 1, got %d", reloaded.ApplicationCount)
	}
}

func TestUpdateApplicationStatusLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	agent := createTestAgent(t, db)
	student := createTestStudent(t, db, agent.ID)
	svc := NewApplicationService(db, nil)

	app, err := svc.CreateApplication(ctx, student.ID, CreateApplicationInput{
		Program:   "PhD in Physics",
		Institute: "Technical University of Munich",
		StartDate: time.Date(2027, 4, 1, 0, 0, 0, 0, time.UTC),
		ApplyDate: time.Now(),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Illegal jump straight to Accepted
	_, err = svc.UpdateApplicationStatus(ctx, student.ID, app.ApplicationID, UpdateStatusInput{
		Status:    model.ApplicationStatusAccepted,
		ChangedBy: agent.Email,
	})
	if apperrors.KindOf(err) != apperrors.KindConflict {
		t.Fatalf("expected conflict on illegal transition, got %v", err)
	}

	// Walk the legal path
	for _, next := range []model.ApplicationStatus{
		model.ApplicationStatusSubmitted,
		model.ApplicationStatusInProgress,
		model.ApplicationStatusAccepted,
		model.ApplicationStatusApproved,
	} {
		if _, err := svc.UpdateApplicationStatus(ctx, student.ID, app.ApplicationID, UpdateStatusInput{
			Status:    next,
			Note:      "moving along",
			ChangedBy: agent.Email,
		}); err != nil {
			t.Fatalf("transition to %s failed: %v", next, err)
		}
	}

	got, err := svc.GetApplication(ctx, student.ID, app.ApplicationID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != model.ApplicationStatusApproved {
		t.Errorf("expected Approved, got %s", got.Status)
	}
	if len(got.StatusHistory) != 4 {
		t.Errorf("expected 4 status changes, got %d", len(got.StatusHistory))
	}
	if len(got.StatusHistory) > 0 {
		first := got.StatusHistory[0]
		if first.PreviousStatus != model.ApplicationStatusPending || first.Status != model.ApplicationStatusSubmitted {
			t.Errorf("unexpected first history entry: %s -> %s", first.PreviousStatus, first.Status)
		}
	}
}

func TestUpdateApplicationStatusOverride(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	agent := createTestAgent(t, db)
	student := createTestStudent(t, db, agent.ID)
	svc := NewApplicationService(db, nil)

	app, err := svc.CreateApplication(ctx, student.ID, CreateApplicationInput{
		Program:   "Bachelor of Commerce",
		Institute: "University of Sydney",
		StartDate: time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC),
		ApplyDate: time.Now(),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Override allows skipping review stages
	if _, err := svc.UpdateApplicationStatus(ctx, student.ID, app.ApplicationID, UpdateStatusInput{
		Status:    model.ApplicationStatusAccepted,
		ChangedBy: "admin@example.com",
		Override:  true,
	}); err != nil {
		t.Fatalf("override transition failed: %v", err)
	}

	// But never out of a terminal state
	if _, err := svc.UpdateApplicationStatus(ctx, student.ID, app.ApplicationID, UpdateStatusInput{
		Status:    model.ApplicationStatusWithdrawn,
		ChangedBy: "admin@example.com",
	}); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	_, err = svc.UpdateApplicationStatus(ctx, student.ID, app.ApplicationID, UpdateStatusInput{
		Status:    model.ApplicationStatusPending,
		ChangedBy: "admin@example.com",
		Override:  true,
	})
	if apperrors.KindOf(err) != apperrors.KindConflict {
		t.Errorf("expected conflict reviving withdrawn application, got %v", err)
	}
}

func TestRequestDocuments(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	agent := createTestAgent(t, db)
	student := createTestStudent(t, db, agent.ID)
	svc := NewApplicationService(db, nil)

	app, err := svc.CreateApplication(ctx, student.ID, CreateApplicationInput{
		Program:   "Master of Engineering",
		Institute: "University of Melbourne",
		StartDate: time.Date(2027, 7, 1, 0, 0, 0, 0, time.UTC),
		ApplyDate: time.Now(),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.RequestDocuments(ctx, student.ID, app.ApplicationID, DocumentRequestInput{}); err == nil {
		t.Error("expected validation error with no document types")
	}

	updated, err := svc.RequestDocuments(ctx, student.ID, app.ApplicationID, DocumentRequestInput{
		DocumentTypes: []string{"passport", "transcript"},
		Message:       "Please upload certified copies",
		RequestedBy:   agent.Email,
	})
	if err != nil {
		t.Fatalf("request documents failed: %v", err)
	}
	if updated.Status != model.ApplicationStatusDocRequested {
		t.Errorf("expected Doc Requested, got %s", updated.Status)
	}
	if len(updated.DocumentRequest) == 0 {
		t.Error("expected document request details to be stored")
	}

	// Resolving the request clears the stored details
	resolved, err := svc.UpdateApplicationStatus(ctx, student.ID, app.ApplicationID, UpdateStatusInput{
		Status:    model.ApplicationStatusSubmitted,
		ChangedBy: agent.Email,
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	var reloaded model.Application
	if err := db.First(&reloaded, resolved.ID).Error; err != nil {
		t.Fatalf("failed to reload application: %v", err)
	}
	if len(reloaded.DocumentRequest) != 0 {
		t.Error("expected document request to be cleared after leaving Doc Requested")
	}
}

func TestBulkUpdateApplicationStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	agent := createTestAgent(t, db)
	student := createTestStudent(t, db, agent.ID)
	svc := NewApplicationService(db, nil)

	mkApp := func(program string) *model.Application {
		app, err := svc.CreateApplication(ctx, student.ID, CreateApplicationInput{
			Program:   program,
			Institute: "University of Manchester",
			StartDate: time.Date(2027, 9, 1, 0, 0, 0, 0, time.UTC),
			ApplyDate: time.Now(),
		})
		if err != nil {
			t.Fatalf("create %s failed: %v", program, err)
		}
		return app
	}

	first := mkApp("Master of Finance")
	second := mkApp("Master of Law")

	// Move one ahead so the bulk transition fails for it
	if _, err := svc.UpdateApplicationStatus(ctx, student.ID, second.ApplicationID, UpdateStatusInput{
		Status:    model.ApplicationStatusSubmitted,
		ChangedBy: agent.Email,
	}); err != nil {
		t.Fatalf("pre-transition failed: %v", err)
	}

	result := svc.BulkUpdateApplicationStatus(ctx, []BulkStatusItem{
		{StudentID: student.ID, ApplicationID: first.ApplicationID},
		{StudentID: student.ID, ApplicationID: second.ApplicationID},
		{StudentID: student.ID, ApplicationID: "nonexistent"},
	}, UpdateStatusInput{
		Status:    model.ApplicationStatusSubmitted,
		ChangedBy: agent.Email,
	})

	if len(result.Succeeded) != 1 {
		t.Errorf("expected 1 success, got %d", len(result.Succeeded))
	}
	if len(result.Failed) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(result.Failed))
	}
	codes := map[string]bool{}
	for _, f := range result.Failed {
		codes[f.Code] = true
	}
	if !codes[string(apperrors.KindConflict)] || !codes[string(apperrors.KindNotFound)] {
		t.Errorf("expected one conflict and one not-found failure, got %v", codes)
	}
}
