package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents different types of notification events
type EventType string

const (
	// Quiz events
	EventQuizPublished EventType = "quiz.published"
	EventQuizArchived  EventType = "quiz.archived"

	// Attempt events
	EventAttemptStarted   EventType = "attempt.started"
	EventAttemptSubmitted EventType = "attempt.submitted"
	EventAttemptExpired   EventType = "attempt.expired"

	// Retention events
	EventCoursePurgeWarning EventType = "retention.course_purge_warning"
	EventCoursePurged       EventType = "retention.course_purged"
	EventTenantGraceStarted EventType = "retention.tenant_grace_started"
	EventTenantPurged       EventType = "retention.tenant_purged"
	EventDataExportReady    EventType = "retention.data_export_ready"

	// Integrity events
	EventTenantIntegrityFault EventType = "integrity.ownerless_tenant"

	// System events
	EventBulkNotification EventType = "system.bulk_notification"
)

// NotificationEvent is the base event structure for all notification events
type NotificationEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Quiz notification event payloads

type QuizPublishedEvent struct {
	QuizID     uuid.UUID   `json:"quiz_id"`
	QuizTitle  string      `json:"quiz_title"`
	CourseID   uuid.UUID   `json:"course_id"`
	CreatorID  uuid.UUID   `json:"creator_id"`
	StudentIDs []uuid.UUID `json:"student_ids"`
}

// Attempt notification event payloads

type AttemptStartedEvent struct {
	AttemptID        uuid.UUID `json:"attempt_id"`
	QuizID           uuid.UUID `json:"quiz_id"`
	QuizTitle        string    `json:"quiz_title"`
	StudentID        uuid.UUID `json:"student_id"`
	AttemptNumber    int       `json:"attempt_number"`
	StartedAt        time.Time `json:"started_at"`
	TimeLimitMinutes int       `json:"time_limit_minutes"`
}

type AttemptSubmittedEvent struct {
	AttemptID   uuid.UUID `json:"attempt_id"`
	QuizID      uuid.UUID `json:"quiz_id"`
	QuizTitle   string    `json:"quiz_title"`
	StudentID   uuid.UUID `json:"student_id"`
	SubmittedAt time.Time `json:"submitted_at"`
	Score       float64   `json:"score"`
	Passed      bool      `json:"passed"`
}

type AttemptExpiredEvent struct {
	AttemptID uuid.UUID `json:"attempt_id"`
	QuizID    uuid.UUID `json:"quiz_id"`
	QuizTitle string    `json:"quiz_title"`
	StudentID uuid.UUID `json:"student_id"`
	ExpiredAt time.Time `json:"expired_at"`
	Score     float64   `json:"score"`
}

// Retention notification event payloads

type CoursePurgeWarningEvent struct {
	CourseID      uuid.UUID   `json:"course_id"`
	CourseName    string      `json:"course_name"`
	PurgeAt       time.Time   `json:"purge_at"`
	StudentIDs    []uuid.UUID `json:"student_ids"`
	ExportOffered bool        `json:"export_offered"`
}

type CoursePurgedEvent struct {
	CourseID   uuid.UUID `json:"course_id"`
	CourseName string    `json:"course_name"`
	PurgedAt   time.Time `json:"purged_at"`
	Reason     string    `json:"reason"` // "restore_window_elapsed" or "inactivity"
}

type TenantGraceStartedEvent struct {
	TenantID   uuid.UUID   `json:"tenant_id"`
	TenantName string      `json:"tenant_name"`
	PurgeAt    time.Time   `json:"purge_at"`
	UserIDs    []uuid.UUID `json:"user_ids"`
}

type TenantPurgedEvent struct {
	TenantID        uuid.UUID `json:"tenant_id"`
	TenantName      string    `json:"tenant_name"`
	PurgedAt        time.Time `json:"purged_at"`
	DetachedUsers   int       `json:"detached_users"`
	MigratedCourses int       `json:"migrated_courses"`
}

type DataExportReadyEvent struct {
	CourseID  uuid.UUID `json:"course_id"`
	StudentID uuid.UUID `json:"student_id"`
	FileName  string    `json:"file_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Integrity notification event payloads

type TenantIntegrityFaultEvent struct {
	TenantID   uuid.UUID `json:"tenant_id"`
	TenantName string    `json:"tenant_name"`
	CreatedAt  time.Time `json:"created_at"`
	DetectedAt time.Time `json:"detected_at"`
}

// System notification event payloads

type BulkNotificationEvent struct {
	RecipientIDs []uuid.UUID `json:"recipient_ids"`
	Title        string      `json:"title"`
	Message      string      `json:"message"`
	Priority     int         `json:"priority"`
}
