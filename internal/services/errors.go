package services

import (
	"errors"
	"fmt"

	apperrors "github.com/edupulse/assessment-engine/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrConflict         = errors.New("resource conflict")

	// Directory errors
	ErrDuplicateTenantName = errors.New("tenant name already taken")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrTenantAlreadyOwned  = errors.New("tenant already has an owner")
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrTenantInactive      = errors.New("tenant is deactivated or pending deletion")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrUserNotFound        = errors.New("user not found")
	ErrUserInactive        = errors.New("user account is deactivated")

	// Enrollment errors
	ErrCourseNotFound       = errors.New("course not found")
	ErrCourseDeleted        = errors.New("course has been deleted")
	ErrAlreadyEnrolled      = errors.New("student already enrolled in course")
	ErrEnrollmentNotFound   = errors.New("enrollment not found")
	ErrGuardianLinkExists   = errors.New("guardian link already exists for this student")
	ErrGuardianLinkNotFound = errors.New("guardian link not found")
	ErrGuardianLinkDecided  = errors.New("guardian link already accepted or rejected")

	// Quiz lifecycle errors
	ErrQuizNotFound        = errors.New("quiz not found")
	ErrQuizNotPublished    = errors.New("quiz is not published")
	ErrQuizInvalidStatus   = errors.New("invalid quiz status transition")
	ErrQuizNoQuestions     = errors.New("quiz cannot be published without questions")
	ErrQuizInvalidScores   = errors.New("passing score must be between zero and max score")
	ErrQuizHasAttempts     = errors.New("quiz has existing attempts")
	ErrQuizNotEditable     = errors.New("quiz cannot be edited in current status")
	ErrQuestionNotFound    = errors.New("question not found")
	ErrQuizArchivedIsFinal = errors.New("archived quizzes cannot change status")

	// Attempt errors
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrAttemptInProgress    = errors.New("student already has an attempt in progress")
	ErrAttemptLimitExceeded = errors.New("maximum attempts exceeded")
	ErrAttemptNotActive     = errors.New("attempt is not in progress")
	ErrAttemptTimeExpired   = errors.New("attempt time limit has elapsed")
	ErrAttemptAlreadyClosed = errors.New("attempt already reached a terminal status")

	// Retention errors
	ErrRestoreWindowElapsed = errors.New("course restore window has elapsed")
	ErrCourseNotDeleted     = errors.New("course is not deleted")
	ErrGraceAlreadyStarted  = errors.New("tenant deletion already requested")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

// PermissionError carries the denial reason from the authorizer so handlers
// can report why without leaking resource existence across tenants.
type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID string `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %s - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

// ===== ERROR HELPERS =====

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

func NewPermissionError(userID, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrTenantNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrCourseNotFound) ||
		errors.Is(err, ErrEnrollmentNotFound) ||
		errors.Is(err, ErrGuardianLinkNotFound) ||
		errors.Is(err, ErrQuizNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrAttemptNotFound)
}

// IsUnauthorized checks if error represents an authorization failure
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden) {
		return true
	}
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrDuplicateTenantName) ||
		errors.Is(err, ErrDuplicateEmail) ||
		errors.Is(err, ErrTenantAlreadyOwned) ||
		errors.Is(err, ErrAlreadyEnrolled) ||
		errors.Is(err, ErrGuardianLinkExists) ||
		errors.Is(err, ErrGuardianLinkDecided) ||
		errors.Is(err, ErrQuizHasAttempts) ||
		errors.Is(err, ErrAttemptInProgress) ||
		errors.Is(err, ErrAttemptLimitExceeded) ||
		errors.Is(err, ErrAttemptAlreadyClosed)
}
