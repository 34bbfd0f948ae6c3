package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/edupulse/assessment-engine/internal/auth"
	apperrors "github.com/edupulse/assessment-engine/internal/errors"
	"github.com/edupulse/assessment-engine/internal/models"
	"github.com/edupulse/assessment-engine/internal/repositories"
	"github.com/edupulse/assessment-engine/internal/utils"
)

type enrollmentService struct {
	repo       repositories.Repository
	authorizer Authorizer
	logger     *slog.Logger
	validator  *utils.Validator
}

func NewEnrollmentService(repo repositories.Repository, authorizer Authorizer, logger *slog.Logger, validator *utils.Validator) EnrollmentService {
	return &enrollmentService{
		repo:       repo,
		authorizer: authorizer,
		logger:     logger,
		validator:  validator,
	}
}

func (s *enrollmentService) Enroll(ctx context.Context, principal *auth.Principal, courseID, studentID uuid.UUID) (*models.Enrollment, error) {
	course, err := s.repo.Course().GetByID(ctx, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if course.DeletedAt != nil {
		return nil, ErrCourseDeleted
	}

	if err := s.authorizer.Require(ctx, principal, ActionEnrollStudent, courseResource(course)); err != nil {
		return nil, err
	}

	student, err := s.repo.User().GetByID(ctx, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if student.Role != models.RoleStudent {
		return nil, NewBusinessRuleError("enroll_students_only",
			"only student accounts can be enrolled in a course", nil)
	}

	enrollment := &models.Enrollment{
		StudentID:  studentID,
		CourseID:   courseID,
		Status:     models.EnrollmentActive,
		EnrolledAt: time.Now(),
	}
	if err := s.repo.Enrollment().Create(ctx, enrollment); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("failed to create enrollment: %w", err)
	}

	if err := s.repo.Course().TouchActivity(ctx, courseID, time.Now()); err != nil {
		s.logger.Warn("Failed to touch course activity", "course_id", courseID, "error", err)
	}

	s.logger.Info("Student enrolled", "course_id", courseID, "student_id", studentID)
	return enrollment, nil
}

func (s *enrollmentService) UpdateStatus(ctx context.Context, principal *auth.Principal, courseID, studentID uuid.UUID, status models.EnrollmentStatus) error {
	course, err := s.repo.Course().GetByID(ctx, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrCourseNotFound
		}
		return fmt.Errorf("failed to get course: %w", err)
	}

	if err := s.authorizer.Require(ctx, principal, ActionEnrollStudent, courseResource(course)); err != nil {
		return err
	}

	if _, err := s.repo.Enrollment().Get(ctx, studentID, courseID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrEnrollmentNotFound
		}
		return fmt.Errorf("failed to get enrollment: %w", err)
	}

	return s.repo.Enrollment().UpdateStatus(ctx, studentID, courseID, status)
}

func (s *enrollmentService) ListByCourse(ctx context.Context, principal *auth.Principal, courseID uuid.UUID) ([]*models.Enrollment, error) {
	course, err := s.repo.Course().GetByID(ctx, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	if err := s.authorizer.Require(ctx, principal, ActionViewCourse, courseResource(course)); err != nil {
		return nil, err
	}

	return s.repo.Enrollment().ListByCourse(ctx, courseID)
}

// RequestGuardianLink creates a pending link. Visibility into the student's
// results opens only once the link is accepted.
func (s *enrollmentService) RequestGuardianLink(ctx context.Context, principal *auth.Principal, req *GuardianLinkRequest) (*models.GuardianLink, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.ToValidationErrors(err)
	}

	if principal.Role != models.RoleGuardian {
		return nil, NewPermissionError(principal.UserID.String(), req.StudentID.String(),
			"guardian_link", string(ActionManageGuardian), string(DenyRoleNotPermitted))
	}

	student, err := s.repo.User().GetByID(ctx, req.StudentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if student.Role != models.RoleStudent {
		return nil, NewBusinessRuleError("guardian_links_students_only",
			"guardian links can only target student accounts", nil)
	}

	link := &models.GuardianLink{
		GuardianID:   principal.UserID,
		StudentID:    req.StudentID,
		Relationship: req.Relationship,
		Status:       models.GuardianPending,
	}
	if err := s.repo.Enrollment().CreateGuardianLink(ctx, link); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrGuardianLinkExists
		}
		return nil, fmt.Errorf("failed to create guardian link: %w", err)
	}

	s.logger.Info("Guardian link requested",
		"guardian_id", principal.UserID,
		"student_id", req.StudentID)
	return link, nil
}

// DecideGuardianLink lets the student (or a tenant admin acting for them)
// accept or reject a pending link. Decisions are final.
func (s *enrollmentService) DecideGuardianLink(ctx context.Context, principal *auth.Principal, linkID uuid.UUID, accept bool) (*models.GuardianLink, error) {
	link, err := s.repo.Enrollment().GetGuardianLinkByID(ctx, linkID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrGuardianLinkNotFound
		}
		return nil, fmt.Errorf("failed to get guardian link: %w", err)
	}

	canDecide := link.StudentID == principal.UserID ||
		principal.Role == models.RoleAdmin ||
		principal.Role == models.RoleOwner
	if !canDecide {
		return nil, NewPermissionError(principal.UserID.String(), linkID.String(),
			"guardian_link", string(ActionManageGuardian), string(DenyNotOwner))
	}

	if link.Status != models.GuardianPending {
		return nil, ErrGuardianLinkDecided
	}

	status := models.GuardianRejected
	if accept {
		status = models.GuardianAccepted
	}
	if err := s.repo.Enrollment().UpdateGuardianLinkStatus(ctx, linkID, status); err != nil {
		return nil, fmt.Errorf("failed to update guardian link: %w", err)
	}

	link.Status = status
	s.logger.Info("Guardian link decided", "link_id", linkID, "status", status)
	return link, nil
}

func (s *enrollmentService) ListGuardianLinks(ctx context.Context, principal *auth.Principal) ([]*models.GuardianLink, error) {
	if principal.Role != models.RoleGuardian {
		return nil, NewPermissionError(principal.UserID.String(), "", "guardian_link",
			string(ActionManageGuardian), string(DenyRoleNotPermitted))
	}
	return s.repo.Enrollment().ListGuardianLinks(ctx, principal.UserID)
}
