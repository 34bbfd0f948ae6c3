package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type NotificationType string
type NotificationPriority int

const (
	// Notification types
	NotificationQuizPublished      NotificationType = "quiz_published"
	NotificationAttemptExpired     NotificationType = "attempt_expired"
	NotificationResultAvailable    NotificationType = "result_available"
	NotificationCoursePurgeWarning NotificationType = "course_purge_warning"
	NotificationTenantGraceStarted NotificationType = "tenant_grace_started"
	NotificationDataExportReady    NotificationType = "data_export_ready"

	// Priority levels
	PriorityLow      NotificationPriority = 1
	PriorityNormal   NotificationPriority = 2
	PriorityHigh     NotificationPriority = 3
	PriorityCritical NotificationPriority = 4
)

type Notification struct {
	ID      uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Type    NotificationType `json:"type" gorm:"not null;index"`
	Title   string           `json:"title" gorm:"not null;size:255"`
	Message string           `json:"message" gorm:"type:text"`

	// Recipients
	RecipientID   *uuid.UUID `json:"recipient_id" gorm:"type:uuid;index"` // null for broadcast
	RecipientRole *UserRole  `json:"recipient_role"`                      // null for specific user

	// Related entities
	QuizID    *uuid.UUID `json:"quiz_id" gorm:"type:uuid;index"`
	AttemptID *uuid.UUID `json:"attempt_id" gorm:"type:uuid;index"`
	CourseID  *uuid.UUID `json:"course_id" gorm:"type:uuid;index"`

	// Delivery settings
	Channels datatypes.JSON `json:"channels" gorm:"type:jsonb"` // ["email", "push", "in_app"]
	Priority int            `json:"priority" gorm:"default:1"`

	// Status
	SentAt         *time.Time `json:"sent_at"`
	ReadAt         *time.Time `json:"read_at"`
	DeliveryStatus string     `json:"delivery_status" gorm:"default:pending"`

	CreatedAt time.Time `json:"created_at"`

	// Relations
	Recipient *User `json:"recipient,omitempty" gorm:"foreignKey:RecipientID"`
}
