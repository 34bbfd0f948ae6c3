package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/edupulse/assessment-engine/internal/auth"
	"github.com/edupulse/assessment-engine/internal/models"
	"github.com/edupulse/assessment-engine/internal/repositories"
)

// ===== DIRECTORY =====

type DirectoryService interface {
	// SignupTenant performs the bootstrap: tenant, owner user and the owner
	// back-reference are created in one transaction or not at all.
	SignupTenant(ctx context.Context, req *TenantSignupRequest) (*TenantSignupResponse, error)

	// SignupSoloTeacher creates a teacher account outside any tenant with a
	// self-scoped teacher grant.
	SignupSoloTeacher(ctx context.Context, req *SoloTeacherSignupRequest) (*models.User, error)

	SignupUser(ctx context.Context, req *UserSignupRequest) (*models.User, error)

	// Authenticate verifies credentials and returns a signed bearer token.
	Authenticate(ctx context.Context, req *LoginRequest) (*LoginResponse, error)

	// ResolvePrincipal builds the per-request principal from token claims
	// plus a fresh tenant-active check.
	ResolvePrincipal(ctx context.Context, claims *auth.Claims) (*auth.Principal, error)

	// CheckIntegrity flags tenants left ownerless past the bootstrap grace
	// window. Faults are reported, never repaired silently.
	CheckIntegrity(ctx context.Context) ([]IntegrityFault, error)
}

type TenantSignupRequest struct {
	TenantName string `json:"tenant_name" validate:"required,min=1,max=100"`
	FirstName  string `json:"first_name" validate:"required,min=1,max=50"`
	LastName   string `json:"last_name" validate:"required,min=1,max=50"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
}

type TenantSignupResponse struct {
	Tenant *models.Tenant `json:"tenant"`
	Owner  *models.User   `json:"owner"`
}

type SoloTeacherSignupRequest struct {
	FirstName string `json:"first_name" validate:"required,min=1,max=50"`
	LastName  string `json:"last_name" validate:"required,min=1,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
}

type UserSignupRequest struct {
	TenantID  uuid.UUID       `json:"tenant_id" validate:"required"`
	FirstName string          `json:"first_name" validate:"required,min=1,max=50"`
	LastName  string          `json:"last_name" validate:"required,min=1,max=50"`
	Email     string          `json:"email" validate:"required,email"`
	Password  string          `json:"password" validate:"required,min=8,max=72"`
	Role      models.UserRole `json:"role" validate:"required,user_role"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// IntegrityFault is a tenant that finished bootstrap without an owner.
type IntegrityFault struct {
	TenantID   uuid.UUID `json:"tenant_id"`
	TenantName string    `json:"tenant_name"`
	CreatedAt  time.Time `json:"created_at"`
	DetectedAt time.Time `json:"detected_at"`
}

// ===== AUTHORIZER =====

// Action names the operations the authorizer evaluates.
type Action string

const (
	ActionCreateCourse   Action = "course:create"
	ActionDeleteCourse   Action = "course:delete"
	ActionRestoreCourse  Action = "course:restore"
	ActionEnrollStudent  Action = "course:enroll"
	ActionViewCourse     Action = "course:view"
	ActionCreateQuiz     Action = "quiz:create"
	ActionManageQuiz     Action = "quiz:manage"
	ActionViewQuiz       Action = "quiz:view"
	ActionStartAttempt   Action = "attempt:start"
	ActionViewAttempt    Action = "attempt:view"
	ActionViewResults    Action = "results:view"
	ActionManageTenant   Action = "tenant:manage"
	ActionManageGuardian Action = "guardian:manage"
)

// DenyReason explains a denial. The tenant boundary check runs first and is
// absolute for every role.
type DenyReason string

const (
	DenyCrossTenant      DenyReason = "cross_tenant"
	DenyRoleNotPermitted DenyReason = "role_not_permitted"
	DenyNotOwner         DenyReason = "not_owner"
	DenyNotEnrolled      DenyReason = "not_enrolled"
	DenyNotGuardian      DenyReason = "not_guardian"
	DenyTenantInactive   DenyReason = "tenant_inactive"
)

type Decision struct {
	Allowed bool       `json:"allowed"`
	Reason  DenyReason `json:"reason,omitempty"`
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason DenyReason) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Resource is what an action targets. TenantID and SoloTeacherID carry the
// resource's scope; the remaining fields feed ownership and relationship
// checks.
type Resource struct {
	Kind          string
	ID            uuid.UUID
	TenantID      *uuid.UUID
	SoloTeacherID *uuid.UUID

	// OwnerID is the creating teacher for courses and quizzes, the student
	// for attempts.
	OwnerID  uuid.UUID
	CourseID *uuid.UUID
}

type Authorizer interface {
	Authorize(ctx context.Context, principal *auth.Principal, action Action, resource *Resource) Decision

	// Require converts a deny into a PermissionError.
	Require(ctx context.Context, principal *auth.Principal, action Action, resource *Resource) error
}

// ===== ENROLLMENT =====

type EnrollmentService interface {
	Enroll(ctx context.Context, principal *auth.Principal, courseID, studentID uuid.UUID) (*models.Enrollment, error)
	UpdateStatus(ctx context.Context, principal *auth.Principal, courseID, studentID uuid.UUID, status models.EnrollmentStatus) error
	ListByCourse(ctx context.Context, principal *auth.Principal, courseID uuid.UUID) ([]*models.Enrollment, error)

	RequestGuardianLink(ctx context.Context, principal *auth.Principal, req *GuardianLinkRequest) (*models.GuardianLink, error)
	DecideGuardianLink(ctx context.Context, principal *auth.Principal, linkID uuid.UUID, accept bool) (*models.GuardianLink, error)
	ListGuardianLinks(ctx context.Context, principal *auth.Principal) ([]*models.GuardianLink, error)
}

type GuardianLinkRequest struct {
	StudentID    uuid.UUID `json:"student_id" validate:"required"`
	Relationship string    `json:"relationship" validate:"required,max=50"`
}

// ===== COURSES =====

type CourseService interface {
	Create(ctx context.Context, principal *auth.Principal, req *CreateCourseRequest) (*models.Course, error)
	Get(ctx context.Context, principal *auth.Principal, id uuid.UUID) (*models.Course, error)
	List(ctx context.Context, principal *auth.Principal) ([]*models.Course, error)
}

type CreateCourseRequest struct {
	Name      string     `json:"name" validate:"required,min=1,max=100"`
	Subject   string     `json:"subject" validate:"omitempty,max=100"`
	TeacherID *uuid.UUID `json:"teacher_id"`
}

// ===== QUIZ LIFECYCLE =====

type QuizService interface {
	Create(ctx context.Context, principal *auth.Principal, req *CreateQuizRequest) (*models.Quiz, error)
	Get(ctx context.Context, principal *auth.Principal, id uuid.UUID) (*models.Quiz, error)
	Update(ctx context.Context, principal *auth.Principal, id uuid.UUID, req *UpdateQuizRequest) (*models.Quiz, error)
	List(ctx context.Context, principal *auth.Principal, courseID uuid.UUID, filters repositories.QuizFilters) ([]*models.Quiz, int64, error)

	Publish(ctx context.Context, principal *auth.Principal, id uuid.UUID) error
	Unpublish(ctx context.Context, principal *auth.Principal, id uuid.UUID) error
	Archive(ctx context.Context, principal *auth.Principal, id uuid.UUID) error
	Delete(ctx context.Context, principal *auth.Principal, id uuid.UUID) error

	AddQuestion(ctx context.Context, principal *auth.Principal, quizID uuid.UUID, req *QuestionRequest) (*models.QuizQuestion, error)
	UpdateQuestion(ctx context.Context, principal *auth.Principal, questionID uuid.UUID, req *QuestionRequest) (*models.QuizQuestion, error)
	DeleteQuestion(ctx context.Context, principal *auth.Principal, questionID uuid.UUID) error
}

type CreateQuizRequest struct {
	CourseID         uuid.UUID `json:"course_id" validate:"required"`
	Title            string    `json:"title" validate:"required,min=1,max=200"`
	Description      *string   `json:"description" validate:"omitempty,max=1000"`
	TimeLimitMinutes int       `json:"time_limit_minutes" validate:"required,min=1,max=300"`
	MaxAttempts      int       `json:"max_attempts" validate:"required,min=1,max=10"`
	PassingScore     float64   `json:"passing_score" validate:"min=0"`
	MaxScore         float64   `json:"max_score" validate:"min=0"`
}

// UpdateQuizRequest uses pointers so the handler can tell absent from zero.
// Which fields may change depends on quiz status.
type UpdateQuizRequest struct {
	Title             *string  `json:"title" validate:"omitempty,min=1,max=200"`
	Description       *string  `json:"description" validate:"omitempty,max=1000"`
	TimeLimitMinutes  *int     `json:"time_limit_minutes" validate:"omitempty,min=1,max=300"`
	MaxAttempts       *int     `json:"max_attempts" validate:"omitempty,min=1,max=10"`
	PassingScore      *float64 `json:"passing_score" validate:"omitempty,min=0"`
	MaxScore          *float64 `json:"max_score" validate:"omitempty,min=0"`
	CountsTowardGrade *bool    `json:"counts_toward_grade"`
}

type QuestionRequest struct {
	QuestionText  string              `json:"question_text" validate:"required,min=1"`
	QuestionType  models.QuestionType `json:"question_type" validate:"required,question_type"`
	Options       []string            `json:"options" validate:"omitempty,max=10"`
	CorrectAnswer string              `json:"correct_answer" validate:"required"`
	Explanation   *string             `json:"explanation"`
	Points        float64             `json:"points" validate:"min=0"`
	OrderNumber   int                 `json:"order_number" validate:"min=1"`
}

// ===== ATTEMPT ENGINE =====

type AttemptService interface {
	Start(ctx context.Context, principal *auth.Principal, quizID uuid.UUID) (*models.QuizAttempt, error)
	SaveAnswers(ctx context.Context, principal *auth.Principal, attemptID uuid.UUID, answers models.AnswerSet) error
	Submit(ctx context.Context, principal *auth.Principal, attemptID uuid.UUID, answers models.AnswerSet) (*models.QuizAttempt, error)
	Get(ctx context.Context, principal *auth.Principal, attemptID uuid.UUID) (*models.QuizAttempt, error)
	Summary(ctx context.Context, principal *auth.Principal, quizID, studentID uuid.UUID) (*repositories.AttemptSummary, error)

	// ExpireOverdue is the auto-submit sweep. Safe to run concurrently with
	// voluntary submits and with other instances of itself.
	ExpireOverdue(ctx context.Context) (int, error)
}

// ===== RETENTION =====

type RetentionService interface {
	DeleteCourse(ctx context.Context, principal *auth.Principal, courseID uuid.UUID) error
	RestoreCourse(ctx context.Context, principal *auth.Principal, courseID uuid.UUID) error

	// RequestTenantDeletion starts the grace window; nothing is removed yet.
	RequestTenantDeletion(ctx context.Context, principal *auth.Principal, tenantID uuid.UUID) error

	// MigrateCourseToSolo lets a teacher carry a course out of a tenant in
	// its grace window.
	MigrateCourseToSolo(ctx context.Context, principal *auth.Principal, courseID uuid.UUID) error

	// DeleteQuizCreator removes a teacher's quizzes while preserving every
	// attempt under its denormalized metadata.
	DeleteQuizCreator(ctx context.Context, creatorID uuid.UUID) error

	// SweepCourses purges soft-deleted courses past the restore window and
	// live courses idle past the inactivity window, exporting student data
	// first. Returns the number of purged courses.
	SweepCourses(ctx context.Context) (int, error)

	// SweepTenants purges tenants whose grace window elapsed. Returns the
	// number of purged tenants.
	SweepTenants(ctx context.Context) (int, error)
}

// ===== NOTIFICATIONS =====

type NotificationService interface {
	Notify(ctx context.Context, n *models.Notification) error
	NotifyMany(ctx context.Context, recipientIDs []uuid.UUID, template *models.Notification) error
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
}
