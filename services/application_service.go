package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/studylane/agency-api/model"
	"github.com/studylane/agency-api/utils/apperrors"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"encoding/json"
)

// DefaultDocumentDueDays is how far out a document request is due when no
// due date is given.
const DefaultDocumentDueDays = 7

// statusTransitions is the forward-only application state machine. Withdrawn
// is additionally reachable from every non-terminal state.
var statusTransitions = map[model.ApplicationStatus][]model.ApplicationStatus{
	model.ApplicationStatusPending:      {model.ApplicationStatusSubmitted, model.ApplicationStatusDocRequested},
	model.ApplicationStatusSubmitted:    {model.ApplicationStatusInProgress, model.ApplicationStatusDocRequested},
	model.ApplicationStatusDocRequested: {model.ApplicationStatusSubmitted, model.ApplicationStatusInProgress},
	model.ApplicationStatusInProgress:   {model.ApplicationStatusAccepted, model.ApplicationStatusRejected, model.ApplicationStatusDocRequested},
	model.ApplicationStatusAccepted:     {model.ApplicationStatusApproved},
	model.ApplicationStatusApproved:     {model.ApplicationStatusPaid},
}

// CanTransition reports whether moving from one status to another is a legal
// forward transition.
func CanTransition(from, to model.ApplicationStatus) bool {
	if from == to {
		return false
	}
	if from.IsTerminal() {
		return false
	}
	if to == model.ApplicationStatusWithdrawn {
		return true
	}
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ApplicationService manages the student-application lifecycle
type ApplicationService struct {
	db       *gorm.DB
	notifier *NotificationService
}

// NewApplicationService creates a new application service
func NewApplicationService(db *gorm.DB, notifier *NotificationService) *ApplicationService {
	return &ApplicationService{db: db, notifier: notifier}
}

// CreateApplicationInput holds the fields for a new application
type CreateApplicationInput struct {
	Program             string
	Institute           string
	StartDate           time.Time
	ApplyDate           time.Time
	PaymentDate         *time.Time
	Status              model.ApplicationStatus // optional seed, defaults to Pending
	Requirements        string
	RequirementsPartner string
	CurrentStage        string
}

func (in *CreateApplicationInput) validate() error {
	fields := make(map[string]string)
	if in.Program == "" {
		fields["program"] = "program is required"
	}
	if in.Institute == "" {
		fields["institute"] = "institute is required"
	}
	if in.StartDate.IsZero() {
		fields["start_date"] = "start date is required"
	}
	if in.ApplyDate.IsZero() {
		fields["apply_date"] = "apply date is required"
	}
	if in.Status != "" && !in.Status.IsValid() {
		fields["status"] = fmt.Sprintf("unknown status %q", in.Status)
	}
	if len(fields) > 0 {
		return apperrors.NewValidation("Missing or invalid application fields", fields)
	}
	return nil
}

// CreateApplication appends a new application to a student. The duplicate
// guard on (program, institute, start date) and the application-count
// recompute run inside one transaction.
func (s *ApplicationService) CreateApplication(ctx context.Context, studentID uint, in CreateApplicationInput) (*model.Application, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = model.ApplicationStatusPending
	}

	var student model.Student
	if err := s.db.WithContext(ctx).First(&student, studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("Student not found")
		}
		return nil, apperrors.NewStorage("Failed to load student", err)
	}

	app := &model.Application{
		ApplicationID:       uuid.New().String(),
		StudentID:           student.ID,
		Program:             in.Program,
		Institute:           in.Institute,
		StartDate:           in.StartDate,
		ApplyDate:           in.ApplyDate,
		PaymentDate:         in.PaymentDate,
		Status:              status,
		Requirements:        in.Requirements,
		RequirementsPartner: in.RequirementsPartner,
		CurrentStage:        in.CurrentStage,
		LastUpdated:         time.Now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dup int64
		if err := tx.Model(&model.Application{}).
			Where("student_id = ? AND program = ? AND institute = ? AND start_date = ?",
				student.ID, in.Program, in.Institute, in.StartDate).
			Count(&dup).Error; err != nil {
			return apperrors.NewStorage("Failed to check for duplicate application", err)
		}
		if dup > 0 {
			return apperrors.NewConflict("Duplicate application detected")
		}

		if err := tx.Create(app).Error; err != nil {
			return apperrors.NewStorage("Failed to create application", err)
		}

		if err := tx.Model(&model.Student{}).
			Where("id = ?", student.ID).
			UpdateColumn("application_count", gorm.Expr(
				"(SELECT COUNT(*) FROM applications WHERE student_id = ? AND deleted_at IS NULL)", student.ID)).
			Error; err != nil {
			return apperrors.NewStorage("Failed to update application count", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyAgent(ctx, &student, model.NotificationTypeInfo, "New application",
		fmt.Sprintf("Application for %s at %s created for %s", app.Program, app.Institute, student.FullName()), app)

	return app, nil
}

// UpdateStatusInput holds parameters for a single status transition
type UpdateStatusInput struct {
	Status    model.ApplicationStatus
	Note      string
	ChangedBy string
	// Override lets an admin bypass the forward-only state machine.
	// Terminal states stay terminal regardless.
	Override bool
}

// UpdateApplicationStatus transitions one application. The prior status is
// recorded in the audit trail; the write is conditional on the status the
// caller observed so concurrent transitions cannot silently overwrite each
// other.
func (s *ApplicationService) UpdateApplicationStatus(ctx context.Context, studentID uint, applicationID string, in UpdateStatusInput) (*model.Application, error) {
	if !in.Status.IsValid() {
		return nil, apperrors.NewValidation("Invalid application status", map[string]string{
			"status": fmt.Sprintf("unknown status %q", in.Status),
		})
	}

	var student model.Student
	if err := s.db.WithContext(ctx).First(&student, studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("Student not found")
		}
		return nil, apperrors.NewStorage("Failed to load student", err)
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

	if !CanTransition(app.Status, in.Status) {
		if !in.Override || app.Status.IsTerminal() || app.Status == in.Status {
			return nil, apperrors.NewConflict(
				fmt.Sprintf("Illegal status transition %s -> %s", app.Status, in.Status))
		}
	}

	previous := app.Status
	now := time.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":       in.Status,
			"last_updated": now,
		}
		// A resolved document request does not outlive the Doc Requested state
		if previous == model.ApplicationStatusDocRequested {
			updates["document_request"] = nil
		}

		// Conditional on the observed status: a concurrent transition makes
		// this a no-op and the caller gets a conflict instead of a lost update
		result := tx.Model(&model.Application{}).
			Where("id = ? AND status = ?", app.ID, previous).
			Updates(updates)
		if result.Error != nil {
			return apperrors.NewStorage("Failed to update application status", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.NewConflict("Application was modified concurrently, retry")
		}

		change := model.ApplicationStatusChange{
			ApplicationRowID: app.ID,
			PreviousStatus:   previous,
			Status:           in.Status,
			Note:             in.Note,
			ChangedBy:        in.ChangedBy,
		}
		if err := tx.Create(&change).Error; err != nil {
			return apperrors.NewStorage("Failed to record status change", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	app.Status = in.Status
	app.LastUpdated = now

	s.notifyAgent(ctx, &student, model.NotificationTypeInfo, "Application status updated",
		fmt.Sprintf("%s at %s moved from %s to %s", app.Program, app.Institute, previous, in.Status), &app)

	return &app, nil
}

// BulkStatusItem identifies one application in a bulk transition
type BulkStatusItem struct {
	StudentID     uint   `json:"student_id"`
	ApplicationID string `json:"application_id"`
}

// BulkItemFailure describes why one item of a bulk transition failed
type BulkItemFailure struct {
	Item    BulkStatusItem `json:"item"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
}

// BulkStatusResult reports per-item outcomes of a bulk transition
type BulkStatusResult struct {
	Succeeded []BulkStatusItem  `json:"succeeded"`
	Failed    []BulkItemFailure `json:"failed"`
}

// BulkUpdateApplicationStatus applies the same transition to each item
// independently. One item's failure never rolls back or blocks the others.
func (s *ApplicationService) BulkUpdateApplicationStatus(ctx context.Context, items []BulkStatusItem, in UpdateStatusInput) *BulkStatusResult {
	result := &BulkStatusResult{
		Succeeded: []BulkStatusItem{},
		Failed:    []BulkItemFailure{},
	}

	for _, item := range items {
		if _, err := s.UpdateApplicationStatus(ctx, item.StudentID, item.ApplicationID, in); err != nil {
			result.Failed = append(result.Failed, BulkItemFailure{
				Item:    item,
				Code:    string(apperrors.KindOf(err)),
				Message: apperrors.MessageOf(err),
			})
			continue
		}
		result.Succeeded = append(result.Succeeded, item)
	}

	return result
}

// DocumentRequestInput holds the structured document request
type DocumentRequestInput struct {
	DocumentTypes []string
	Message       string
	DueDate       *time.Time
	RequestedBy   string
}

// RequestDocuments transitions an application to Doc Requested and attaches
// the structured request. The due date defaults to a week out.
func (s *ApplicationService) RequestDocuments(ctx context.Context, studentID uint, applicationID string, in DocumentRequestInput) (*model.Application, error) {
	if len(in.DocumentTypes) == 0 {
		return nil, apperrors.NewValidation("Document request needs at least one document type", map[string]string{
			"document_types": "document types are required",
		})
	}

	dueDate := time.Now().AddDate(0, 0, DefaultDocumentDueDays)
	if in.DueDate != nil {
		dueDate = *in.DueDate
	}

	details := model.DocumentRequestDetails{
		DocumentTypes: in.DocumentTypes,
		Message:       in.Message,
		DueDate:       dueDate,
		RequestedAt:   time.Now(),
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return nil, apperrors.NewStorage("Failed to encode document request", err)
	}

	app, err := s.UpdateApplicationStatus(ctx, studentID, applicationID, UpdateStatusInput{
		Status:    model.ApplicationStatusDocRequested,
		Note:      in.Message,
		ChangedBy: in.RequestedBy,
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&model.Application{}).
		Where("id = ?", app.ID).
		Update("document_request", datatypes.JSON(detailsJSON)).Error; err != nil {
		return nil, apperrors.NewStorage("Failed to store document request", err)
	}
	app.DocumentRequest = datatypes.JSON(detailsJSON)

	return app, nil
}

// GetApplication loads one application with its status history
func (s *ApplicationService) GetApplication(ctx context.Context, studentID uint, applicationID string) (*model.Application, error) {
	var app model.Application
	err := s.db.WithContext(ctx).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("changed_at ASC")
		}).
		Where("student_id = ? AND application_id = ?", studentID, applicationID).
		First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("Application not found")
		}
		return nil, apperrors.NewStorage("Failed to load application", err)
	}
	return &app, nil
}

// ListApplicationsOptions filters the cross-student application listing
type ListApplicationsOptions struct {
	AgentID *uint
	Status  model.ApplicationStatus
	Limit   int
	Offset  int
}

// ListApplications returns applications across students, newest first
func (s *ApplicationService) ListApplications(ctx context.Context, opts ListApplicationsOptions) ([]model.Application, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.Application{}).
		Joins("JOIN students ON students.id = applications.student_id")

	if opts.AgentID != nil {
		query = query.Where("students.agent_id = ?", *opts.AgentID)
	}
	if opts.Status != "" {
		query = query.Where("applications.status = ?", opts.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.NewStorage("Failed to count applications", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	var apps []model.Application
	if err := query.Preload("Student").
		Order("applications.created_at DESC").
		Limit(limit).
		Offset(opts.Offset).
		Find(&apps).Error; err != nil {
		return nil, 0, apperrors.NewStorage("Failed to fetch applications", err)
	}

	return apps, total, nil
}

func (s *ApplicationService) notifyAgent(ctx context.Context, student *model.Student, typ model.NotificationType, title, message string, app *model.Application) {
	if s.notifier == nil || student.AgentID == nil {
		return
	}
	s.notifier.Notify(ctx, CreateNotificationRequest{
		AgentID:  *student.AgentID,
		Type:     typ,
		Category: model.NotificationCategoryApplication,
		Title:    title,
		Message:  message,
		Metadata: &model.NotificationMetadata{
			StudentID:     student.ID,
			StudentName:   student.FullName(),
			ApplicationID: app.ApplicationID,
			Program:       app.Program,
			Institute:     app.Institute,
			Status:        string(app.Status),
		},
	})
}
