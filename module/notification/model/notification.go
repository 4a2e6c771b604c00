package model

import "time"

// Notification is the persisted (durable) counterpart of a pushed
// notification envelope. Receivers who were offline at push time catch up
// from here.
type Notification struct {
	ID         int64     `json:"id"`
	ReceiverID string    `json:"receiver_id"`
	Type       string    `json:"notification_type"`
	Content    string    `json:"content,omitempty"`
	SendTime   time.Time `json:"send_time"`
	IsRead     bool      `json:"is_read"`
}
