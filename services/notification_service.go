package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/studylane/agency-api/model"
	"github.com/studylane/agency-api/services/events"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationService handles agent notifications: a persistent per-agent
// feed plus best-effort fan-out over the injected publisher.
type NotificationService struct {
	db        *gorm.DB
	publisher events.Publisher
}

// NewNotificationService creates a new notification service
func NewNotificationService(db *gorm.DB, publisher events.Publisher) *NotificationService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &NotificationService{db: db, publisher: publisher}
}

// CreateNotificationRequest represents a request to create a notification
type CreateNotificationRequest struct {
	AgentID  uint
	Type     model.NotificationType
	Category model.NotificationCategory
	Title    string
	Message  string
	Metadata *model.NotificationMetadata
}

// ListNotificationsOptions represents options for listing notifications
type ListNotificationsOptions struct {
	AgentID    uint
	UnreadOnly bool
	Category   string
	Limit      int
	Offset     int
}

// Notify persists a notification and publishes it on the agent's channel.
// Errors are logged and swallowed: notification delivery must never abort
// the lifecycle operation that triggered it.
func (s *NotificationService) Notify(ctx context.Context, req CreateNotificationRequest) {
	if _, err := s.CreateNotification(ctx, req); err != nil {
		log.Printf("notification dropped for agent %d: %v", req.AgentID, err)
	}
}

// CreateNotification creates a new notification for an agent
func (s *NotificationService) CreateNotification(ctx context.Context, req CreateNotificationRequest) (*model.AgentNotification, error) {
	notification := &model.AgentNotification{
		AgentID:  req.AgentID,
		Type:     req.Type,
		Category: req.Category,
		Title:    req.Title,
		Message:  req.Message,
		Read:     false,
	}

	if req.Metadata != nil {
		metadataJSON, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		notification.Metadata = datatypes.JSON(metadataJSON)
	}

	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	s.publisher.Publish(AgentChannel(req.AgentID), events.Event{
		Name:    "notification." + string(req.Category),
		Payload: notification,
	})

	return notification, nil
}

// GetNotificationsByAgent retrieves notifications for an agent
func (s *NotificationService) GetNotificationsByAgent(ctx context.Context, opts ListNotificationsOptions) ([]model.AgentNotification, int64, error) {
	var notifications []model.AgentNotification
	var total int64

	query := s.db.WithContext(ctx).Model(&model.AgentNotification{}).
		Where("agent_id = ?", opts.AgentID)

	if opts.UnreadOnly {
		query = query.Where("read = ?", false)
	}

	if opts.Category != "" {
		query = query.Where("category = ?", opts.Category)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	} else {
		query = query.Limit(50)
	}

	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	if err := query.Order("created_at DESC").Find(&notifications).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch notifications: %w", err)
	}

	return notifications, total, nil
}

// MarkAsRead marks a single notification as read
func (s *NotificationService) MarkAsRead(ctx context.Context, agentID, notificationID uint) error {
	result := s.db.WithContext(ctx).Model(&model.AgentNotification{}).
		Where("id = ? AND agent_id = ?", notificationID, agentID).
		Update("read", true)

	if result.Error != nil {
		return fmt.Errorf("failed to mark notification as read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkAllAsRead marks all of an agent's notifications as read
func (s *NotificationService) MarkAllAsRead(ctx context.Context, agentID uint) (int64, error) {
	result := s.db.WithContext(ctx).Model(&model.AgentNotification{}).
		Where("agent_id = ? AND read = ?", agentID, false).
		Update("read", true)
	return result.RowsAffected, result.Error
}

// UnreadCount returns the number of unread notifications for an agent
func (s *NotificationService) UnreadCount(ctx context.Context, agentID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.AgentNotification{}).
		Where("agent_id = ? AND read = ?", agentID, false).
		Count(&count).Error
	return count, err
}

// AgentChannel returns the publish/subscribe channel name for an agent.
func AgentChannel(agentID uint) string {
	return fmt.Sprintf("agent:%d", agentID)
}
