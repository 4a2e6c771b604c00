package service

import (
	"context"

	"BKConnect/module/notification/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type NotificationService struct {
	pool *pgxpool.Pool
}

func NewNotificationService(pool *pgxpool.Pool) *NotificationService {
	return &NotificationService{pool: pool}
}

// Add persists the notification; this is the durable channel, written
// before the best-effort push.
func (s *NotificationService) Add(ctx context.Context, n *model.Notification) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO notifications (receiver_id, type, content, send_time, is_read)
		 VALUES ($1, $2, $3, $4, false) RETURNING id`,
		n.ReceiverID, n.Type, n.Content, n.SendTime).Scan(&n.ID)
	return errors.Wrap(err, "insert notification")
}

func (s *NotificationService) ListByUser(ctx context.Context, userID string) ([]model.Notification, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, receiver_id, type, content, send_time, is_read
		   FROM notifications WHERE receiver_id = $1
		  ORDER BY send_time DESC LIMIT 100`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "query notifications")
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.ReceiverID, &n.Type, &n.Content, &n.SendTime, &n.IsRead); err != nil {
			return nil, errors.Wrap(err, "scan notification")
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_read = true WHERE receiver_id = $1 AND is_read = false`, userID)
	return errors.Wrap(err, "mark notifications read")
}
