package models

import "time"

// NotificationType classifies a notification.
type NotificationType string

const (
	NotificationApplicationStatus NotificationType = "application_status"
	NotificationScreeningReminder NotificationType = "screening_reminder"
	NotificationSurveyOpened      NotificationType = "survey_opened"
	NotificationSurveyClosed      NotificationType = "survey_closed"
)

// Notification is a message stored for one recipient address.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	SurveyID  string           `json:"survey_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	Timestamp time.Time        `json:"timestamp"`
}

// NotificationEvent is a notification a ledger transition asks to deliver.
type NotificationEvent struct {
	Recipient string           `json:"recipient"`
	SurveyID  string           `json:"survey_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
}
