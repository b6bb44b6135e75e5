package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nbaparkdev/assettrack-ti/internal/models"
	"github.com/nbaparkdev/assettrack-ti/pkg/jobs"
	"github.com/nbaparkdev/assettrack-ti/pkg/mailer"
)

// Notification is a message for one user about a workflow event.
type Notification struct {
	UserID  string
	Subject string
	Body    string
}

type eventNotifier interface {
	Publish(ctx context.Context, n Notification)
}

type notificationUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type mailSender interface {
	Send(msg mailer.Message) error
}

// NotificationService delivers workflow notifications by email through a
// background queue. Publishing never blocks the calling workflow; delivery
// failures are retried by the queue and finally logged.
type NotificationService struct {
	users  notificationUserStore
	mail   mailSender
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService constructs the service and its queue. Call Start
// before publishing and Stop on shutdown.
func NewNotificationService(users notificationUserStore, mail mailSender, cfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{users: users, mail: mail, logger: logger}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("notifications", s.handle, cfg)
	return s
}

// Start begins queue consumption.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Publish enqueues a notification. Errors are logged, never returned; a
// lost notification must not fail the workflow that produced it.
func (s *NotificationService) Publish(ctx context.Context, n Notification) {
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    "email",
		Payload: n,
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("user_id", n.UserID),
			zap.Error(err),
		)
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(Notification)
	if !ok {
		s.logger.Error("notification job carries unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	user, err := s.users.FindByID(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("resolve notification recipient: %w", err)
	}
	return s.mail.Send(mailer.Message{
		To:      []string{user.Email},
		Subject: n.Subject,
		Body:    fmt.Sprintf("Hello %s,\n\n%s\n", user.FullName, n.Body),
	})
}
