package models

import "time"

// Notification types
const (
	NotificationPost        = "post"
	NotificationDraft       = "draft"
	NotificationComment     = "comment"
	NotificationLike        = "like"
	NotificationInteraction = "interaction"
	NotificationSystem      = "system"
)

// Notification represents a user-visible event in the notification log
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}
