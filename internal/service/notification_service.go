package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/libris-api/internal/models"
	appErrors "github.com/noah-isme/libris-api/pkg/errors"
	"github.com/noah-isme/libris-api/pkg/jobs"
)

type notificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, studentID string) error
}

// NotificationService is the best-effort sink for circulation events.
// Writes are dispatched through an in-memory worker queue; a failed write is
// retried a few times, then logged and dropped. Emitting never blocks and
// never fails the operation that triggered it.
type NotificationService struct {
	repo   notificationRepository
	queue  *jobs.Queue
	logger *zap.Logger
}

// NotificationQueueConfig sizes the dispatcher worker pool.
type NotificationQueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
}

// NewNotificationService constructs the notification service and its
// dispatcher queue. Call Start before emitting and Stop on shutdown.
func NewNotificationService(repo notificationRepository, cfg NotificationQueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{repo: repo, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.handleJob, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the dispatcher workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the dispatcher.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Notify enqueues a notification for a student. Errors are logged and
// swallowed.
func (s *NotificationService) Notify(studentID, category, message string) {
	notification := models.Notification{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Message:   message,
		Category:  category,
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:      notification.ID,
		Kind:    category,
		Payload: notification,
	})
	if err != nil {
		s.logger.Warn("notification dropped",
			zap.String("student_id", studentID),
			zap.String("category", category),
			zap.Error(err))
	}
}

func (s *NotificationService) handleJob(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(models.Notification)
	if !ok {
		s.logger.Error("notification job with unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.repo.Create(ctx, &notification)
}

// List returns notifications with pagination metadata.
func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	notifications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return notifications, pagination, nil
}

// MarkRead flags one notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

// MarkAllRead flags all of a student's notifications as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, studentID string) error {
	if err := s.repo.MarkAllRead(ctx, studentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return nil
}
