package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/edupulse/assessment-engine/internal/models"
)

// Repository aggregates the per-entity repositories. WithTx runs fn against a
// Repository bound to a single database transaction; returning an error rolls
// everything back.
type Repository interface {
	Tenant() TenantRepository
	User() UserRepository
	Course() CourseRepository
	Enrollment() EnrollmentRepository
	Quiz() QuizRepository
	Attempt() AttemptRepository
	Notification() NotificationRepository

	WithTx(ctx context.Context, fn func(Repository) error) error
}

// TenantRepository persists tenants and the owner back-reference.
type TenantRepository interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetByName(ctx context.Context, name string) (*models.Tenant, error)
	Update(ctx context.Context, tenant *models.Tenant) error

	// AttachOwner sets owner_user_id only while it is still null; returns
	// false when the tenant is already owned.
	AttachOwner(ctx context.Context, tenantID, userID uuid.UUID) (bool, error)

	// RequestDeletion stamps the grace window start and deactivates the
	// tenant in one update.
	RequestDeletion(ctx context.Context, tenantID uuid.UUID, at time.Time) error

	// ListOwnerless returns tenants whose owner is still null and whose
	// creation predates the cutoff.
	ListOwnerless(ctx context.Context, createdBefore time.Time) ([]*models.Tenant, error)

	// ListGraceExpired returns tenants whose deletion grace window ended
	// before the cutoff.
	ListGraceExpired(ctx context.Context, deadline time.Time) ([]*models.Tenant, error)

	Delete(ctx context.Context, id uuid.UUID) error
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.User, error)

	// DetachTenant nulls tenant_id for every user of a purged tenant and
	// returns the number of affected rows.
	DetachTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)

	CreateGrant(ctx context.Context, grant *models.RoleGrant) error
	GetGrants(ctx context.Context, userID uuid.UUID) ([]models.RoleGrant, error)
}

type CourseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
	Update(ctx context.Context, course *models.Course) error
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.Course, error)
	ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]*models.Course, error)

	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error

	// Restore clears deleted_at only when the deletion happened after the
	// cutoff (now minus restore window); returns false when the window is
	// gone or the course is live.
	Restore(ctx context.Context, id uuid.UUID, deletedAfter time.Time) (bool, error)

	TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error

	// ListPurgeable returns soft-deleted courses past the restore deadline
	// and live courses idle since before the inactivity cutoff.
	ListPurgeable(ctx context.Context, deletedBefore, inactiveSince time.Time) ([]*models.Course, error)

	// MigrateToSolo reparents a tenant course onto the teacher's solo scope.
	MigrateToSolo(ctx context.Context, courseID, teacherID uuid.UUID) error

	Delete(ctx context.Context, id uuid.UUID) error
}

type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Get(ctx context.Context, studentID, courseID uuid.UUID) (*models.Enrollment, error)
	UpdateStatus(ctx context.Context, studentID, courseID uuid.UUID, status models.EnrollmentStatus) error
	ListByCourse(ctx context.Context, courseID uuid.UUID) ([]*models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*models.Enrollment, error)
	ActiveStudentIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error)

	CreateGuardianLink(ctx context.Context, link *models.GuardianLink) error
	GetGuardianLink(ctx context.Context, guardianID, studentID uuid.UUID) (*models.GuardianLink, error)
	GetGuardianLinkByID(ctx context.Context, id uuid.UUID) (*models.GuardianLink, error)
	UpdateGuardianLinkStatus(ctx context.Context, id uuid.UUID, status models.GuardianLinkStatus) error
	ListGuardianLinks(ctx context.Context, guardianID uuid.UUID) ([]*models.GuardianLink, error)
}

type QuizRepository interface {
	Create(ctx context.Context, quiz *models.Quiz) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Quiz, error)
	GetByIDWithQuestions(ctx context.Context, id uuid.UUID) (*models.Quiz, error)
	Update(ctx context.Context, quiz *models.Quiz) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.QuizStatus, publishedAt *time.Time) error
	ListByCourse(ctx context.Context, courseID uuid.UUID, filters QuizFilters) ([]*models.Quiz, int64, error)
	ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]*models.Quiz, error)
	Delete(ctx context.Context, id uuid.UUID) error

	CountQuestions(ctx context.Context, quizID uuid.UUID) (int64, error)
	SumPoints(ctx context.Context, quizID uuid.UUID) (float64, error)
	AddQuestion(ctx context.Context, question *models.QuizQuestion) error
	UpdateQuestion(ctx context.Context, question *models.QuizQuestion) error
	DeleteQuestion(ctx context.Context, id uuid.UUID) error
	GetQuestion(ctx context.Context, id uuid.UUID) (*models.QuizQuestion, error)
	GetQuestions(ctx context.Context, quizID uuid.UUID) ([]*models.QuizQuestion, error)
}

type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.QuizAttempt) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.QuizAttempt, error)
	GetActive(ctx context.Context, quizID, studentID uuid.UUID) (*models.QuizAttempt, error)

	// NextAttemptNumber locks the (quiz, student) attempt rows and returns
	// max+1. Must run inside WithTx together with Create so the sequence
	// stays gap-free under concurrency.
	NextAttemptNumber(ctx context.Context, quizID, studentID uuid.UUID) (int, error)

	CountFinished(ctx context.Context, quizID, studentID uuid.UUID) (int64, error)
	CountByQuiz(ctx context.Context, quizID uuid.UUID) (int64, error)

	// SaveAnswers overwrites the saved answers only while in progress.
	SaveAnswers(ctx context.Context, id uuid.UUID, answers datatypes.JSON) (bool, error)

	// Finalize performs the single conditional transition out of
	// in_progress. Returns false when the attempt already reached a
	// terminal status (the race loser's no-op).
	Finalize(ctx context.Context, id uuid.UUID, final FinalizeAttempt) (bool, error)

	// ListOverdue returns in-progress attempts whose deadline passed,
	// joined with their quiz so the sweep can grade them.
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]*models.QuizAttempt, error)

	ListByQuizAndStudent(ctx context.Context, quizID, studentID uuid.UUID) ([]*models.QuizAttempt, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID, filters AttemptFilters) ([]*models.QuizAttempt, int64, error)

	// Summary reports both the best score and the most recent attempt for a
	// (quiz, student) pair.
	Summary(ctx context.Context, quizID, studentID uuid.UUID) (*AttemptSummary, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error
}

// ===== SHARED STRUCTS =====

// FinalizeAttempt carries the terminal state written by Finalize.
type FinalizeAttempt struct {
	Status      models.AttemptStatus
	SubmittedAt time.Time
	Answers     datatypes.JSON
	Score       float64
	Percentage  float64
	Passed      bool
}

type QuizFilters struct {
	Status    *models.QuizStatus `json:"status"`
	CreatorID *uuid.UUID         `json:"creator_id"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
	SortBy    string             `json:"sort_by"`    // "created_at", "title"
	SortOrder string             `json:"sort_order"` // "asc", "desc"
}

type AttemptFilters struct {
	Status    *models.AttemptStatus `json:"status"`
	QuizID    *uuid.UUID            `json:"quiz_id"`
	DateFrom  *time.Time            `json:"date_from"`
	DateTo    *time.Time            `json:"date_to"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

// AttemptSummary reports both views downstream consumers need: the best
// score across all attempts and the most recent attempt. Which one is
// authoritative for pass/fail is the caller's documented choice.
type AttemptSummary struct {
	QuizID        uuid.UUID           `json:"quiz_id"`
	StudentID     uuid.UUID           `json:"student_id"`
	TotalAttempts int                 `json:"total_attempts"`
	BestScore     *float64            `json:"best_score"`
	BestPassed    *bool               `json:"best_passed"`
	Latest        *models.QuizAttempt `json:"latest"`
}

// IsNotFoundError reports whether err is the storage layer's not-found.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError reports whether err is a unique-constraint violation.
func IsDuplicateError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
