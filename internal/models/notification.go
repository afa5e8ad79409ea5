package models

import (
	"time"

	"github.com/lib/pq"
)

// NotificationType categorises a notification for the client UI.
type NotificationType string

const (
	NotificationTypeInfo     NotificationType = "info"
	NotificationTypeAlert    NotificationType = "alert"
	NotificationTypeSuccess  NotificationType = "success"
	NotificationTypeReminder NotificationType = "reminder"
	NotificationTypeEvent    NotificationType = "event"
	NotificationTypeSystem   NotificationType = "system"
)

// ValidNotificationType reports whether t is a known type.
func ValidNotificationType(t NotificationType) bool {
	switch t {
	case NotificationTypeInfo, NotificationTypeAlert, NotificationTypeSuccess,
		NotificationTypeReminder, NotificationTypeEvent, NotificationTypeSystem:
		return true
	default:
		return false
	}
}

// NotificationPriority orders notifications for the client UI.
type NotificationPriority string

const (
	NotificationPriorityNormal NotificationPriority = "normal"
	NotificationPriorityMedium NotificationPriority = "medium"
	NotificationPriorityHigh   NotificationPriority = "high"
)

// ValidNotificationPriority reports whether p is a known priority.
func ValidNotificationPriority(p NotificationPriority) bool {
	switch p {
	case NotificationPriorityNormal, NotificationPriorityMedium, NotificationPriorityHigh:
		return true
	default:
		return false
	}
}

// Notification is a message fanned out to one or more recipient users.
// Read state is derived from membership in ReadBy, not a per-recipient row.
type Notification struct {
	ID       string               `db:"id" json:"id"`
	Title    string               `db:"title" json:"title"`
	Message  string               `db:"message" json:"message"`
	Type     NotificationType     `db:"type" json:"type"`
	Priority NotificationPriority `db:"priority" json:"priority"`
	DateSent time.Time            `db:"date_sent" json:"date_sent"`
	SentTo   pq.StringArray       `db:"sent_to" json:"sent_to"`
	ReadBy   pq.StringArray       `db:"read_by" json:"read_by"`
}

// ReadByUser reports whether the user has acknowledged the notification.
func (n *Notification) ReadByUser(userID string) bool {
	for _, id := range n.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// NotificationView is the recipient-facing shape: read state is collapsed
// to a boolean and the raw read_by membership is stripped.
type NotificationView struct {
	ID       string               `json:"id"`
	Title    string               `json:"title"`
	Message  string               `json:"message"`
	Type     NotificationType     `json:"type"`
	Priority NotificationPriority `json:"priority"`
	DateSent time.Time            `json:"date_sent"`
	IsRead   bool                 `json:"is_read"`
}

// ViewFor projects the notification for a single recipient.
func (n *Notification) ViewFor(userID string) NotificationView {
	return NotificationView{
		ID:       n.ID,
		Title:    n.Title,
		Message:  n.Message,
		Type:     n.Type,
		Priority: n.Priority,
		DateSent: n.DateSent,
		IsRead:   n.ReadByUser(userID),
	}
}

// Recipient is an eligible notification target for the staff compose UI.
type Recipient struct {
	ID           string  `db:"id" json:"id"`
	FirstName    string  `db:"first_name" json:"first_name"`
	LastName     string  `db:"last_name" json:"last_name"`
	Email        string  `db:"email" json:"email"`
	BarangayName *string `db:"barangay_name" json:"barangay_name,omitempty"`
}
