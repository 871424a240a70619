package services

import (
	"context"
	"testing"
	"time"

	"github.com/studylane/agency-api/model"
	"github.com/studylane/agency-api/utils/apperrors"
)

func TestAmountForProgram(t *testing.T) {
	tests := []struct {
		program string
		want    float64
	}{
		{"PhD in Computer Science", 1000},
		{"Master of Data Science", 750},
		{"MASTER OF LAWS", 750},
		// "master" wins when both substrings appear
		{"Masters pathway to PhD", 750},
		// No doctor tier: only the "phd" substring pays the top rate
		{"Doctor of Medicine", 500},
		{"Bachelor of Commerce", 500},
		{"Diploma in Hospitality", 500},
		{"", 500},
	}

	for _, tt := range tests {
		t.Run(tt.program, func(t *testing.T) {
			if got := AmountForProgram(tt.program); got != tt.want {
				t.Errorf("AmountForProgram(%q) = %v, want %v", tt.program, got, tt.want)
			}
		})
	}
}

func TestAutoGenerateCommission(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	agent := createTestAgent(t, db)
	student := createTestStudent(t, db, agent.ID)

	appSvc := NewApplicationService(db, nil)
	app, err := appSvc.CreateApplication(ctx, student.ID, CreateApplicationInput{
		Program:   "Master of Computer Science",
		Institute: "University of Toronto",
		StartDate: time.Date(2027, 9, 1, 0, 0, 0, 0, time.UTC),
		ApplyDate: time.Now(),
	})
	if err != nil {
		t.Fatalf("create application failed: %v", err)
	}

	svc := NewCommissionService(db, nil, nil)
	commission, err := svc.AutoGenerate(ctx, student.ID, app.ApplicationID, "admin@example.com")
	if err != nil {
		t.Fatalf("auto-generate failed: %v", err)
	}
	if commission.Amount != 750 {
		t.Errorf("expected master-tier amount 750, got %v", commission.Amount)
	}
	if commission.Status != model.CommissionStatusApproved {
		t.Errorf("expected Approved, got %s", commission.Status)
	}
	if commission.AgentID != agent.ID {
		t.Errorf("expected commission credited to agent %d, got %d", agent.ID, commission.AgentID)
	}
	if commission.ApprovedDate == nil {
		t.Error("expected approved date to be stamped")
	}

	// One commission per application
	if _, err := svc.AutoGenerate(ctx, student.ID, app.ApplicationID, "admin@example.com"); apperrors.KindOf(err) != apperrors.KindConflict {
		t.Errorf("expected conflict on repeat generation, got %v", err)
	}

	// Unknown application
	if _, err := svc.AutoGenerate(ctx, student.ID, "nonexistent", "admin@example.com"); apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Errorf("expected not-found for unknown application, got %v", err)
	}
}

func TestAutoGenerateRequiresAgent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	agent := createTestAgent(t, db)
	student := createTestStudent(t, db, agent.ID)

	appSvc := NewApplicationService(db, nil)
	app, err := appSvc.CreateApplication(ctx, student.ID, CreateApplicationInput{
		Program:   "Bachelor of Arts",
		Institute: "University of Melbourne",
		StartDate: time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC),
		ApplyDate: time.Now(),
	})
	if err != nil {
		t.Fatalf("create application failed: %v", err)
	}

	if err := db.Model(&model.Student{}).Where("id = ?", student.ID).Update("agent_id", nil).Error; err != nil {
		t.Fatalf("failed to detach agent: %v", err)
	}

	svc := NewCommissionService(db, nil, nil)
	if _, err := svc.AutoGenerate(ctx, student.ID, app.ApplicationID, "admin@example.com"); apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("expected validation error for unassigned student, got %v", err)
	}
}

func TestUpdateCommissionStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	agent := createTestAgent(t, db)
	svc := NewCommissionService(db, nil, nil)

	commission, err := svc.Create(ctx, CreateCommissionInput{
		AgentID:     agent.ID,
		Amount:      200,
		Description: "Quarterly bonus",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if commission.Status != model.CommissionStatusPending {
		t.Fatalf("expected manual commission to start Pending, got %s", commission.Status)
	}
	if commission.Type != model.CommissionTypeBonus {
		t.Errorf("expected default type Bonus, got %s", commission.Type)
	}

	// Rejection requires a reason
	if _, err := svc.UpdateCommissionStatus(ctx, commission.ID, model.CommissionStatusRejected, "admin", ""); apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("expected validation error for missing rejection reason, got %v", err)
	}

	approved, err := svc.UpdateCommissionStatus(ctx, commission.ID, model.CommissionStatusApproved, "admin@example.com", "")
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if approved.ApprovedBy != "admin@example.com" || approved.ApprovedDate == nil {
		t.Error("expected approval stamps")
	}

	// Same-status update is a conflict
	if _, err := svc.UpdateCommissionStatus(ctx, commission.ID, model.CommissionStatusApproved, "admin", ""); apperrors.KindOf(err) != apperrors.KindConflict {
		t.Errorf("expected conflict on same-status update, got %v", err)
	}

	paid, err := svc.UpdateCommissionStatus(ctx, commission.ID, model.CommissionStatusPaid, "admin", "")
	if err != nil {
		t.Fatalf("pay failed: %v", err)
	}
	if paid.PaidDate == nil {
		t.Error("expected paid date to be stamped")
	}

	// Paid is terminal
	if _, err := svc.UpdateCommissionStatus(ctx, commission.ID, model.CommissionStatusPending, "admin", ""); apperrors.KindOf(err) != apperrors.KindConflict {
		t.Errorf("expected conflict changing a paid commission, got %v", err)
	}
}

func TestAgentSummary(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	agent := createTestAgent(t, db)
	other := createTestAgent(t, db)
	svc := NewCommissionService(db, nil, nil)

	seed := []struct {
		agentID uint
		amount  float64
		status  model.CommissionStatus
	}{
		{agent.ID, 500, model.CommissionStatusPending},
		{agent.ID, 750, model.CommissionStatusApproved},
		{agent.ID, 1000, model.CommissionStatusApproved},
		{agent.ID, 300, model.CommissionStatusPaid},
		{other.ID, 9999, model.CommissionStatusApproved},
	}
	for _, c := range seed {
		if err := db.Create(&model.Commission{
			AgentID: c.agentID,
			Amount:  c.amount,
			Type:    model.CommissionTypeBonus,
			Status:  c.status,
			Month:   "Jan",
			Year:    2027,
		}).Error; err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	summary, err := svc.AgentSummary(ctx, agent.ID)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.PendingAmount != 500 || summary.PendingCount != 1 {
		t.Errorf("pending: got %v/%d", summary.PendingAmount, summary.PendingCount)
	}
	if summary.ApprovedAmount != 1750 || summary.ApprovedCount != 2 {
		t.Errorf("approved: got %v/%d", summary.ApprovedAmount, summary.ApprovedCount)
	}
	if summary.PaidAmount != 300 || summary.PaidCount != 1 {
		t.Errorf("paid: got %v/%d", summary.PaidAmount, summary.PaidCount)
	}
	if summary.TotalEarned != 2550 {
		t.Errorf("total earned: got %v", summary.TotalEarned)
	}
	if summary.AvailableToDraw != summary.ApprovedAmount {
		t.Errorf("available to draw should equal approved amount, got %v", summary.AvailableToDraw)
	}
}
