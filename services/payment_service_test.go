package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/studylane/agency-api/model"
	"github.com/studylane/agency-api/utils/apperrors"
)

func TestNotificationTypeForDecision(t *testing.T) {
	tests := []struct {
		status model.PaymentRequestStatus
		want   model.NotificationType
	}{
		{model.PaymentRequestStatusRejected, model.NotificationTypeWarning},
		{model.PaymentRequestStatusPaid, model.NotificationTypeSuccess},
		{model.PaymentRequestStatusApproved, model.NotificationTypeInfo},
	}
	for _, tt := range tests {
		if got := notificationTypeForDecision(tt.status); got != tt.want {
			t.Errorf("notificationTypeForDecision(%s) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestCreatePaymentRequestBalanceGuard(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	agent := createTestAgent(t, db)
	svc := NewPaymentService(db, nil)

	// No approved balance yet
	_, err := svc.CreatePaymentRequest(ctx, CreatePaymentRequestInput{AgentID: agent.ID, Amount: 100})
	if apperrors.KindOf(err) != apperrors.KindValidation {
		t.Fatalf("expected validation error with zero balance, got %v", err)
	}

	for _, amount := range []float64{500, 750} {
		if err := db.Create(&model.Commission{
			AgentID: agent.ID,
			Amount:  amount,
			Type:    model.CommissionTypeApplicationFee,
			Status:  model.CommissionStatusApproved,
			Month:   "Feb",
			Year:    2027,
		}).Error; err != nil {
			t.Fatalf("seed commission failed: %v", err)
		}
	}

	if _, err := svc.CreatePaymentRequest(ctx, CreatePaymentRequestInput{AgentID: agent.ID, Amount: 1250.01}); apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("expected validation error above balance, got %v", err)
	}

	// Requesting exactly the balance is allowed
	request, err := svc.CreatePaymentRequest(ctx, CreatePaymentRequestInput{
		AgentID: agent.ID,
		Amount:  1250,
		Notes:   "full drawdown",
	})
	if err != nil {
		t.Fatalf("expected full-balance request to succeed, got %v", err)
	}
	if request.Status != model.PaymentRequestStatusPending {
		t.Errorf("expected Pending, got %s", request.Status)
	}

	if _, err := svc.CreatePaymentRequest(ctx, CreatePaymentRequestInput{AgentID: agent.ID, Amount: -5}); apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("expected validation error for negative amount, got %v", err)
	}
}

func TestProcessPaymentRequestSettlesAgent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	agent := createTestAgent(t, db)
	svc := NewPaymentService(db, nil)

	for _, amount := range []float64{500, 1000} {
		if err := db.Create(&model.Commission{
			AgentID: agent.ID,
			Amount:  amount,
			Type:    model.CommissionTypeApplicationFee,
			Status:  model.CommissionStatusApproved,
			Month:   "Mar",
			Year:    2027,
		}).Error; err != nil {
			t.Fatalf("seed commission failed: %v", err)
		}
	}

	request, err := svc.CreatePaymentRequest(ctx, CreatePaymentRequestInput{AgentID: agent.ID, Amount: 1500})
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}

	processed, err := svc.ProcessPaymentRequest(ctx, request.ID, ProcessPaymentRequestInput{
		Status:      model.PaymentRequestStatusPaid,
		ProcessedBy: "admin@example.com",
	})
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if processed.Status != model.PaymentRequestStatusPaid {
		t.Errorf("expected Paid, got %s", processed.Status)
	}

	// One ledger entry for the request amount
	var payments []model.Payment
	if err := db.Where("agent_id = ?", agent.ID).Find(&payments).Error; err != nil {
		t.Fatalf("fetch payments failed: %v", err)
	}
	if len(payments) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(payments))
	}
	if payments[0].Amount != 1500 {
		t.Errorf("expected ledger amount 1500, got %v", payments[0].Amount)
	}
	if !strings.HasPrefix(payments[0].TransactionID, "TXN-") {
		t.Errorf("unexpected transaction id %q", payments[0].TransactionID)
	}
	if payments[0].Method != "bank_transfer" {
		t.Errorf("expected default method bank_transfer, got %q", payments[0].Method)
	}

	// Every approved commission of the agent is settled
	var approvedLeft int64
	if err := db.Model(&model.Commission{}).
		Where("agent_id = ? AND status = ?", agent.ID, model.CommissionStatusApproved).
		Count(&approvedLeft).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if approvedLeft != 0 {
		t.Errorf("expected all approved commissions settled, %d left", approvedLeft)
	}

	// Re-processing is a conflict
	if _, err := svc.ProcessPaymentRequest(ctx, request.ID, ProcessPaymentRequestInput{
		Status:      model.PaymentRequestStatusPaid,
		ProcessedBy: "admin@example.com",
	}); apperrors.KindOf(err) != apperrors.KindConflict {
		t.Errorf("expected conflict on double processing, got %v", err)
	}
}

func TestProcessPaymentRequestValidation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	svc := NewPaymentService(db, nil)

	if _, err := svc.ProcessPaymentRequest(ctx, 1, ProcessPaymentRequestInput{
		Status: model.PaymentRequestStatusPending,
	}); apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("expected validation error for Pending decision, got %v", err)
	}

	if _, err := svc.ProcessPaymentRequest(ctx, 1, ProcessPaymentRequestInput{
		Status: model.PaymentRequestStatusRejected,
	}); apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("expected validation error for rejection without reason, got %v", err)
	}

	if _, err := svc.ProcessPaymentRequest(ctx, 99999, ProcessPaymentRequestInput{
		Status:      model.PaymentRequestStatusApproved,
		ProcessedBy: "admin",
	}); apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Errorf("expected not-found for unknown request, got %v", err)
	}
}

func TestSweepStalePendingRequests(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	agent := createTestAgent(t, db)
	svc := NewPaymentService(db, nil)

	stale := &model.PaymentRequest{
		AgentID:     agent.ID,
		Amount:      100,
		Status:      model.PaymentRequestStatusPending,
		RequestDate: time.Now().Add(-45 * 24 * time.Hour),
	}
	fresh := &model.PaymentRequest{
		AgentID:     agent.ID,
		Amount:      200,
		Status:      model.PaymentRequestStatusPending,
		RequestDate: time.Now().Add(-2 * 24 * time.Hour),
	}
	for _, r := range []*model.PaymentRequest{stale, fresh} {
		if err := db.Create(r).Error; err != nil {
			t.Fatalf("seed request failed: %v", err)
		}
	}

	swept, err := svc.SweepStalePendingRequests(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if swept != 1 {
		t.Errorf("expected 1 swept request, got %d", swept)
	}

	var reloaded model.PaymentRequest
	if err := db.First(&reloaded, stale.ID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Status != model.PaymentRequestStatusRejected || reloaded.ProcessedBy != "system" {
		t.Errorf("expected system rejection, got %s by %q", reloaded.Status, reloaded.ProcessedBy)
	}

	var freshReloaded model.PaymentRequest
	if err := db.First(&freshReloaded, fresh.ID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if freshReloaded.Status != model.PaymentRequestStatusPending {
		t.Errorf("fresh request should stay Pending, got %s", freshReloaded.Status)
	}
}
