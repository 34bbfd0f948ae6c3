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

type courseService struct {
	repo       repositories.Repository
	authorizer Authorizer
	logger     *slog.Logger
	validator  *utils.Validator
}

func NewCourseService(repo repositories.Repository, authorizer Authorizer, logger *slog.Logger, validator *utils.Validator) CourseService {
	return &courseService{
		repo:       repo,
		authorizer: authorizer,
		logger:     logger,
		validator:  validator,
	}
}

func (s *courseService) Create(ctx context.Context, principal *auth.Principal, req *CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.ToValidationErrors(err)
	}

	if err := s.authorizer.Require(ctx, principal, ActionCreateCourse, nil); err != nil {
		return nil, err
	}

	// Tenant courses are set up by the admins and owner running the tenant;
	// a teacher creates courses only under a solo account.
	if principal.TenantID != nil && principal.Role == models.RoleTeacher {
		return nil, NewPermissionError(principal.UserID.String(), "", "course",
			string(ActionCreateCourse), string(DenyRoleNotPermitted))
	}

	teacherID := principal.UserID
	if req.TeacherID != nil {
		// Owners and admins assign the course to one of their teachers.
		if principal.Role == models.RoleTeacher && *req.TeacherID != principal.UserID {
			return nil, NewPermissionError(principal.UserID.String(), "", "course",
				string(ActionCreateCourse), string(DenyNotOwner))
		}
		teacherID = *req.TeacherID
	}

	course := &models.Course{
		Name:           req.Name,
		Subject:        req.Subject,
		TeacherID:      teacherID,
		IsActive:       true,
		LastActivityAt: time.Now(),
	}
	if principal.TenantID != nil {
		course.TenantID = principal.TenantID
	} else {
		// Solo teachers scope their courses to themselves.
		self := principal.UserID
		course.SoloTeacherID = &self
	}

	if err := s.repo.Course().Create(ctx, course); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	s.logger.Info("Course created", "course_id", course.ID, "teacher_id", teacherID)
	return course, nil
}

func (s *courseService) Get(ctx context.Context, principal *auth.Principal, id uuid.UUID) (*models.Course, error) {
	course, err := s.repo.Course().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	if err := s.authorizer.Require(ctx, principal, ActionViewCourse, courseResource(course)); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *courseService) List(ctx context.Context, principal *auth.Principal) ([]*models.Course, error) {
	switch {
	case principal.TenantID != nil:
		courses, err := s.repo.Course().ListByTenant(ctx, *principal.TenantID)
		if err != nil {
			return nil, fmt.Errorf("failed to list courses: %w", err)
		}
		return courses, nil
	case principal.IsSoloTeacher():
		courses, err := s.repo.Course().ListByTeacher(ctx, principal.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to list courses: %w", err)
		}
		return courses, nil
	default:
		// Tenantless students and guardians reach courses through
		// enrollments, not listings.
		return []*models.Course{}, nil
	}
}
