package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/studylane/agency-api/model"
	"github.com/studylane/agency-api/services/events"
	"gorm.io/gorm"
)

func TestAgentChannel(t *testing.T) {
	if got := AgentChannel(42); got != "agent:42" {
		t.Errorf("AgentChannel(42) = %q, want %q", got, "agent:42")
	}
}

func TestCreateNotificationPublishes(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	agent := createTestAgent(t, db)
	hub := events.NewHub()
	svc := NewNotificationService(db, hub)

	ch, cancel := hub.Subscribe(AgentChannel(agent.ID))
	defer cancel()

	notification, err := svc.CreateNotification(ctx, CreateNotificationRequest{
		AgentID:  agent.ID,
		Type:     model.NotificationTypeSuccess,
		Category: model.NotificationCategoryCommission,
		Title:    "Commission earned",
		Message:  "You earned $750",
		Metadata: &model.NotificationMetadata{Amount: 750},
	})
	if err != nil {
		t.Fatalf("create notification failed: %v", err)
	}
	if notification.Read {
		t.Error("expected new notification to be unread")
	}

	select {
	case event := <-ch:
		if event.Name != "notification.commission" {
			t.Errorf("unexpected event name %q", event.Name)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published event")
	}
}

func TestMarkAsRead(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	agent := createTestAgent(t, db)
	other := createTestAgent(t, db)
	svc := NewNotificationService(db, nil)

	notification, err := svc.CreateNotification(ctx, CreateNotificationRequest{
		AgentID:  agent.ID,
		Type:     model.NotificationTypeInfo,
		Category: model.NotificationCategoryGeneral,
		Title:    "Welcome",
		Message:  "Account activated",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Another agent cannot touch it
	if err := svc.MarkAsRead(ctx, other.ID, notification.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected record-not-found for foreign agent, got %v", err)
	}

	if err := svc.MarkAsRead(ctx, agent.ID, notification.ID); err != nil {
		t.Fatalf("mark as read failed: %v", err)
	}

	count, err := svc.UnreadCount(ctx, agent.ID)
	if err != nil {
		t.Fatalf("unread count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 unread, got %d", count)
	}
}

func TestMarkAllAsRead(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	agent := createTestAgent(t, db)
	svc := NewNotificationService(db, nil)

	for i := 0; i < 3; i++ {
		if _, err := svc.CreateNotification(ctx, CreateNotificationRequest{
			AgentID:  agent.ID,
			Type:     model.NotificationTypeInfo,
			Category: model.NotificationCategoryApplication,
			Title:    "Update",
			Message:  "Status changed",
		}); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	updated, err := svc.MarkAllAsRead(ctx, agent.ID)
	if err != nil {
		t.Fatalf("mark all failed: %v", err)
	}
	if updated != 3 {
		t.Errorf("expected 3 updated, got %d", updated)
	}

	// Second pass is a no-op
	updated, err = svc.MarkAllAsRead(ctx, agent.ID)
	if err != nil {
		t.Fatalf("mark all failed: %v", err)
	}
	if updated != 0 {
		t.Errorf("expected 0 updated on repeat, got %d", updated)
	}
}
