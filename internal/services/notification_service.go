package services

import (
	"context"
	"database/sql"
	"time"

	"telugulearn/internal/models"
	"telugulearn/internal/observability"
	contextutils "telugulearn/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// NotificationServiceInterface is the persisted per-user notification log
type NotificationServiceInterface interface {
	Create(ctx context.Context, userID int, notificationType, title, body string) (*models.Notification, error)
	List(ctx context.Context, userID, page, pageSize int, unreadOnly bool) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, userID, notificationID int) error
	MarkAllRead(ctx context.Context, userID int) (int64, error)
	UnreadCount(ctx context.Context, userID int) (int, error)
	DeleteReadOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// NotificationService stores notifications in PostgreSQL
type NotificationService struct {
	db     *sql.DB
	logger *observability.Logger
}

var _ NotificationServiceInterface = (*NotificationService)(nil)

// NewNotificationServiceWithLogger creates a new NotificationService
func NewNotificationServiceWithLogger(db *sql.DB, logger *observability.Logger) *NotificationService {
	return &NotificationService{db: db, logger: logger}
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// insertNotification writes a notification through q, which may be a transaction
func insertNotification(ctx context.Context, q queryRower, userID int, notificationType, title, body string) (*models.Notification, error) {
	n := &models.Notification{UserID: userID, Type: notificationType, Title: title, Body: body}
	err := q.QueryRowContext(ctx,
		`INSERT INTO notifications (user_id, type, title, body) VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		userID, notificationType, title, body).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Create appends a notification to a user's log
func (s *NotificationService) Create(ctx context.Context, userID int, notificationType, title, body string) (result0 *models.Notification, err error) {
	ctx, span := observability.TraceNotificationFunction(ctx, "Create",
		observability.AttributeUserID(userID), attribute.String("notification.type", notificationType))
	defer observability.FinishSpan(span, &err)

	n, err := insertNotification(ctx, s.db, userID, notificationType, title, body)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to create notification")
	}
	return n, nil
}

// List returns a page of notifications, newest first
func (s *NotificationService) List(ctx context.Context, userID, page, pageSize int, unreadOnly bool) (result0 []models.Notification, result1 int, err error) {
	ctx, span := observability.TraceNotificationFunction(ctx, "List",
		observability.AttributeUserID(userID), observability.AttributePage(page))
	defer observability.FinishSpan(span, &err)

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var total int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND ($2 = FALSE OR read_at IS NULL)`,
		userID, unreadOnly).Scan(&total)
	if err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to count notifications")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, type, title, body, read_at, created_at
		 FROM notifications
		 WHERE user_id = $1 AND ($2 = FALSE OR read_at IS NULL)
		 ORDER BY created_at DESC, id DESC
		 LIMIT $3 OFFSET $4`,
		userID, unreadOnly, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to list notifications")
	}
	defer func() { _ = rows.Close() }()

	items := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, 0, contextutils.WrapError(err, "failed to scan notification")
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

// MarkRead marks one of the user's notifications as read. Marking an already
// read notification is a no-op; a notification of another user is not found.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID int) (err error) {
	ctx, span := observability.TraceNotificationFunction(ctx, "MarkRead",
		observability.AttributeUserID(userID), attribute.Int("notification.id", notificationID))
	defer observability.FinishSpan(span, &err)

	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read_at = COALESCE(read_at, NOW()) WHERE id = $1 AND user_id = $2`,
		notificationID, userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to mark notification read")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return contextutils.WrapError(contextutils.ErrRecordNotFound, "notification not found")
	}
	return nil
}

// MarkAllRead marks every unread notification of the user
func (s *NotificationService) MarkAllRead(ctx context.Context, userID int) (result0 int64, err error) {
	ctx, span := observability.TraceNotificationFunction(ctx, "MarkAllRead", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read_at = NOW() WHERE user_id = $1 AND read_at IS NULL`, userID)
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to mark notifications read")
	}
	return res.RowsAffected()
}

// UnreadCount returns the number of unread notifications
func (s *NotificationService) UnreadCount(ctx context.Context, userID int) (result0 int, err error) {
	ctx, span := observability.TraceNotificationFunction(ctx, "UnreadCount", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	var count int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`, userID).Scan(&count)
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to count unread notifications")
	}
	return count, nil
}

// DeleteReadOlderThan prunes read notifications older than age
func (s *NotificationService) DeleteReadOlderThan(ctx context.Context, age time.Duration) (result0 int64, err error) {
	ctx, span := observability.TraceWorkerFunction(ctx, "DeleteReadOlderThan")
	defer observability.FinishSpan(span, &err)

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE read_at IS NOT NULL AND created_at < $1`, time.Now().Add(-age))
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to prune notifications")
	}
	n, _ := res.RowsAffected()
	s.logger.Info(ctx, "Pruned read notifications", map[string]interface{}{"deleted": n})
	return n, nil
}
