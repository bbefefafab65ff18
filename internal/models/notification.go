package models

import "time"

// NotificationKind tags the severity of a notification.
type NotificationKind string

const (
	NotificationInfo    NotificationKind = "INFO"
	NotificationSuccess NotificationKind = "SUCCESS"
	NotificationWarning NotificationKind = "WARNING"
	NotificationError   NotificationKind = "ERROR"
)

// Notification is an append-only message addressed to a user or a role.
// Only the read flag ever changes after creation.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    *string          `db:"user_id" json:"user_id,omitempty"`
	Role      *UserRole        `db:"role" json:"role,omitempty"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Kind      NotificationKind `db:"kind" json:"kind"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// NotificationFilter provides filters for listing notifications.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Page       int
	PageSize   int
}
