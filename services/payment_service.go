package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/studylane/agency-api/model"
	"github.com/studylane/agency-api/utils/apperrors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentService manages payout requests and the payment ledger
type PaymentService struct {
	db       *gorm.DB
	notifier *NotificationService
}

// NewPaymentService creates a new payment service
func NewPaymentService(db *gorm.DB, notifier *NotificationService) *PaymentService {
	return &PaymentService{db: db, notifier: notifier}
}

// CreatePaymentRequestInput holds the fields for a new payout request
type CreatePaymentRequestInput struct {
	AgentID     uint
	Amount      float64
	BankDetails *model.BankDetails
	Notes       string
}

// CreatePaymentRequest opens a payout request for an agent. The amount is
// capped by the agent's Approved commission balance; requesting exactly the
// balance is allowed.
func (s *PaymentService) CreatePaymentRequest(ctx context.Context, in CreatePaymentRequestInput) (*model.PaymentRequest, error) {
	if in.Amount <= 0 {
		return nil, apperrors.NewValidation("Invalid payment request", map[string]string{
			"amount": "amount must be positive",
		})
	}

	var agent model.Agent
	if err := s.db.WithContext(ctx).First(&agent, in.AgentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("Agent not found")
		}
		return nil, apperrors.NewStorage("Failed to load agent", err)
	}

	var approvedBalance float64
	if err := s.db.WithContext(ctx).Model(&model.Commission{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("agent_id = ? AND status = ?", in.AgentID, model.CommissionStatusApproved).
		Scan(&approvedBalance).Error; err != nil {
		return nil, apperrors.NewStorage("Failed to compute approved balance", err)
	}

	if in.Amount > approvedBalance {
		return nil, apperrors.NewValidation("Requested amount exceeds approved balance", map[string]string{
			"amount": fmt.Sprintf("requested %.2f but approved balance is %.2f", in.Amount, approvedBalance),
		})
	}

	request := &model.PaymentRequest{
		AgentID:     in.AgentID,
		Amount:      in.Amount,
		Status:      model.PaymentRequestStatusPending,
		RequestDate: time.Now(),
		Notes:       in.Notes,
	}
	if in.BankDetails != nil {
		detailsJSON, err := json.Marshal(in.BankDetails)
		if err != nil {
			return nil, apperrors.NewStorage("Failed to encode bank details", err)
		}
		request.BankDetails = datatypes.JSON(detailsJSON)
	}

	if err := s.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, apperrors.NewStorage("Failed to create payment request", err)
	}

	return request, nil
}

// ProcessPaymentRequestInput holds the admin decision on a payout request
type ProcessPaymentRequestInput struct {
	Status          model.PaymentRequestStatus
	ProcessedBy     string
	RejectionReason string
	// Method is the transfer method recorded on the ledger when paying
	Method string
}

// ProcessPaymentRequest resolves a Pending payout request. Marking it Paid
// settles the agent: one ledger entry is appended and every Approved
// commission of the agent flips to Paid, all inside one transaction.
func (s *PaymentService) ProcessPaymentRequest(ctx context.Context, requestID uint, in ProcessPaymentRequestInput) (*model.PaymentRequest, error) {
	switch in.Status {
	case model.PaymentRequestStatusApproved, model.PaymentRequestStatusPaid, model.PaymentRequestStatusRejected:
	default:
		return nil, apperrors.NewValidation("Invalid processing decision", map[string]string{
			"status": fmt.Sprintf("decision must be Approved, Paid or Rejected, got %q", in.Status),
		})
	}
	if in.Status == model.PaymentRequestStatusRejected && in.RejectionReason == "" {
		return nil, apperrors.NewValidation("Rejection requires a reason", map[string]string{
			"rejection_reason": "rejection reason is required",
		})
	}

	var request model.PaymentRequest
	if err := s.db.WithContext(ctx).First(&request, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("Payment request not found")
		}
		return nil, apperrors.NewStorage("Failed to load payment request", err)
	}

	if request.Status != model.PaymentRequestStatusPending {
		return nil, apperrors.NewConflict(
			fmt.Sprintf("Payment request is already %s", request.Status))
	}

	now := time.Now()
	var payment *model.Payment

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Conditional on Pending so two admins cannot both settle it
		result := tx.Model(&model.PaymentRequest{}).
			Where("id = ? AND status = ?", request.ID, model.PaymentRequestStatusPending).
			Updates(map[string]interface{}{
				"status":           in.Status,
				"processed_by":     in.ProcessedBy,
				"processed_date":   now,
				"rejection_reason": in.RejectionReason,
			})
		if result.Error != nil {
			return apperrors.NewStorage("Failed to update payment request", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.NewConflict("Payment request was processed concurrently")
		}

		if in.Status != model.PaymentRequestStatusPaid {
			return nil
		}

		method := in.Method
		if method == "" {
			method = "bank_transfer"
		}
		payment = &model.Payment{
			AgentID:       request.AgentID,
			Amount:        request.Amount,
			Method:        method,
			TransactionID: "TXN-" + uuid.New().String(),
			Status:        "completed",
			PaymentDate:   now,
		}
		if err := tx.Create(payment).Error; err != nil {
			return apperrors.NewStorage("Failed to append payment ledger entry", err)
		}

		// Settle everything approved for the agent in the same transaction
		if err := tx.Model(&model.Commission{}).
			Where("agent_id = ? AND status = ?", request.AgentID, model.CommissionStatusApproved).
			Updates(map[string]interface{}{
				"status":    model.CommissionStatusPaid,
				"paid_date": now,
			}).Error; err != nil {
			return apperrors.NewStorage("Failed to settle approved commissions", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	request.Status = in.Status
	request.ProcessedBy = in.ProcessedBy
	request.ProcessedDate = &now
	request.RejectionReason = in.RejectionReason

	if s.notifier != nil {
		title := "Payment request " + string(in.Status)
		message := fmt.Sprintf("Your payment request for $%.2f is now %s", request.Amount, in.Status)
		if in.Status == model.PaymentRequestStatusRejected {
			message = fmt.Sprintf("Your payment request for $%.2f was rejected: %s", request.Amount, in.RejectionReason)
		}
		metadata := &model.NotificationMetadata{Amount: request.Amount}
		if payment != nil {
			metadata.TransactionID = payment.TransactionID
		}
		s.notifier.Notify(ctx, CreateNotificationRequest{
			AgentID:  request.AgentID,
			Type:     notificationTypeForDecision(in.Status),
			Category: model.NotificationCategoryPayment,
			Title:    title,
			Message:  message,
			Metadata: metadata,
		})
	}

	return &request, nil
}

func notificationTypeForDecision(status model.PaymentRequestStatus) model.NotificationType {
	switch status {
	case model.PaymentRequestStatusRejected:
		return model.NotificationTypeWarning
	case model.PaymentRequestStatusPaid:
		return model.NotificationTypeSuccess
	default:
		return model.NotificationTypeInfo
	}
}

// ListPaymentRequestsOptions filters the payout request listing
type ListPaymentRequestsOptions struct {
	AgentID *uint
	Status  model.PaymentRequestStatus
	Limit   int
	Offset  int
}

// ListPaymentRequests returns payout requests newest first
func (s *PaymentService) ListPaymentRequests(ctx context.Context, opts ListPaymentRequestsOptions) ([]model.PaymentRequest, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.PaymentRequest{})

	if opts.AgentID != nil {
		query = query.Where("agent_id = ?", *opts.AgentID)
	}
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.NewStorage("Failed to count payment requests", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	var requests []model.PaymentRequest
	if err := query.Order("request_date DESC").
		Limit(limit).
		Offset(opts.Offset).
		Find(&requests).Error; err != nil {
		return nil, 0, apperrors.NewStorage("Failed to fetch payment requests", err)
	}

	return requests, total, nil
}

// PaymentHistory returns an agent's ledger entries, newest first
func (s *PaymentService) PaymentHistory(ctx context.Context, agentID uint, limit, offset int) ([]model.Payment, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.Payment{}).
		Where("agent_id = ?", agentID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.NewStorage("Failed to count payments", err)
	}

	if limit <= 0 {
		limit = 50
	}

	var payments []model.Payment
	if err := query.Order("payment_date DESC").
		Limit(limit).
		Offset(offset).
		Find(&payments).Error; err != nil {
		return nil, 0, apperrors.NewStorage("Failed to fetch payments", err)
	}

	return payments, total, nil
}

// SweepStalePendingRequests rejects Pending payout requests older than the
// cutoff. Run from the scheduler.
func (s *PaymentService) SweepStalePendingRequests(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	now := time.Now()

	result := s.db.WithContext(ctx).Model(&model.PaymentRequest{}).
		Where("status = ? AND request_date < ?", model.PaymentRequestStatusPending, cutoff).
		Updates(map[string]interface{}{
			"status":           model.PaymentRequestStatusRejected,
			"processed_by":     "system",
			"processed_date":   now,
			"rejection_reason": "Expired: not processed within the review window",
		})
	if result.Error != nil {
		return 0, apperrors.NewStorage("Failed to sweep stale payment requests", result.Error)
	}
	return result.RowsAffected, nil
}
