package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/edupulse/assessment-engine/internal/auth"
	"github.com/edupulse/assessment-engine/internal/models"
	"github.com/edupulse/assessment-engine/internal/repositories"
)

// capabilities is the role × action table consulted after the tenant
// boundary check passes. Relationship checks (ownership, enrollment,
// guardian links) come after this table and can still deny.
var capabilities = map[models.UserRole]map[Action]bool{
	models.RoleOwner: {
		ActionManageTenant:  true,
		ActionCreateCourse:  true,
		ActionDeleteCourse:  true,
		ActionRestoreCourse: true,
		ActionEnrollStudent: true,
		ActionViewCourse:    true,
		ActionViewQuiz:      true,
		ActionViewAttempt:   true,
		ActionViewResults:   true,
	},
	models.RoleAdmin: {
		ActionCreateCourse:  true,
		ActionDeleteCourse:  true,
		ActionRestoreCourse: true,
		ActionEnrollStudent: true,
		ActionViewCourse:    true,
		ActionViewQuiz:      true,
		ActionViewAttempt:   true,
		ActionViewResults:   true,
	},
	models.RoleTeacher: {
		ActionCreateCourse:  true,
		ActionDeleteCourse:  true,
		ActionRestoreCourse: true,
		ActionEnrollStudent: true,
		ActionViewCourse:    true,
		ActionCreateQuiz:    true,
		ActionManageQuiz:    true,
		ActionViewQuiz:      true,
		ActionViewAttempt:   true,
		ActionViewResults:   true,
	},
	models.RoleStudent: {
		ActionViewCourse:   true,
		ActionViewQuiz:     true,
		ActionStartAttempt: true,
		ActionViewAttempt:  true,
		ActionViewResults:  true,
	},
	models.RoleGuardian: {
		ActionViewCourse:     true,
		ActionViewQuiz:       true,
		ActionViewAttempt:    true,
		ActionViewResults:    true,
		ActionManageGuardian: true,
	},
}

// ownedActions require the principal to own the resource when the role is
// teacher (courses and quizzes) or student (attempts and results).
var ownedActions = map[Action]bool{
	ActionDeleteCourse:  true,
	ActionRestoreCourse: true,
	ActionEnrollStudent: true,
	ActionCreateQuiz:    true,
	ActionManageQuiz:    true,
}

// viewActions stay available while a tenant sits in its deletion grace
// window; every mutating action is refused.
var viewActions = map[Action]bool{
	ActionViewCourse:  true,
	ActionViewQuiz:    true,
	ActionViewAttempt: true,
	ActionViewResults: true,
}

type authorizer struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewAuthorizer(repo repositories.Repository, logger *slog.Logger) Authorizer {
	return &authorizer{repo: repo, logger: logger}
}

// Authorize evaluates in fixed order: tenant boundary, tenant liveness,
// capability table, then relationship checks. The boundary is absolute; no
// role crosses it.
func (a *authorizer) Authorize(ctx context.Context, principal *auth.Principal, action Action, resource *Resource) Decision {
	if resource != nil {
		if d := a.checkBoundary(principal, resource); !d.Allowed {
			return d
		}
	}

	if principal.TenantID != nil && !principal.TenantActive && !viewActions[action] {
		return Deny(DenyTenantInactive)
	}

	caps, ok := capabilities[principal.Role]
	if !ok || !caps[action] {
		return Deny(DenyRoleNotPermitted)
	}

	if resource == nil {
		return Allow()
	}
	return a.checkRelationship(ctx, principal, action, resource)
}

func (a *authorizer) Require(ctx context.Context, principal *auth.Principal, action Action, resource *Resource) error {
	decision := a.Authorize(ctx, principal, action, resource)
	if decision.Allowed {
		return nil
	}

	resourceKind, resourceID := "", ""
	if resource != nil {
		resourceKind = resource.Kind
		resourceID = resource.ID.String()
	}
	a.logger.Info("Authorization denied",
		"user_id", principal.UserID,
		"role", principal.Role,
		"action", action,
		"resource", resourceKind,
		"reason", decision.Reason)

	return NewPermissionError(principal.UserID.String(), resourceID, resourceKind,
		string(action), string(decision.Reason))
}

// checkBoundary enforces tenant isolation. A tenant-scoped resource is only
// reachable by principals of the same tenant; a solo-scoped resource by the
// solo teacher, or by outside students and guardians whose relationship is
// verified afterwards.
func (a *authorizer) checkBoundary(principal *auth.Principal, resource *Resource) Decision {
	if resource.TenantID != nil {
		if !principal.InTenant(*resource.TenantID) {
			return Deny(DenyCrossTenant)
		}
		return Allow()
	}

	if resource.SoloTeacherID != nil {
		if principal.UserID == *resource.SoloTeacherID {
			return Allow()
		}
		// Solo courses admit outside students and guardians; their
		// enrollment or link is checked in the relationship step.
		if principal.Role == models.RoleStudent || principal.Role == models.RoleGuardian {
			return Allow()
		}
		return Deny(DenyCrossTenant)
	}

	// No tenant and no solo scope: an attempt that outlived its quiz and
	// course. It stays readable by its own student and by linked guardians
	// (verified in the relationship step); every other principal is outside
	// whatever tenant it once belonged to.
	if principal.UserID == resource.OwnerID {
		return Allow()
	}
	if principal.Role == models.RoleGuardian {
		return Allow()
	}
	return Deny(DenyCrossTenant)
}

func (a *authorizer) checkRelationship(ctx context.Context, principal *auth.Principal, action Action, resource *Resource) Decision {
	switch principal.Role {
	case models.RoleTeacher:
		if ownedActions[action] && resource.OwnerID != principal.UserID {
			return Deny(DenyNotOwner)
		}

	case models.RoleStudent:
		switch action {
		case ActionStartAttempt, ActionViewQuiz, ActionViewCourse:
			courseID := resource.CourseID
			if resource.Kind == "course" {
				courseID = &resource.ID
			}
			if courseID == nil {
				return Deny(DenyNotEnrolled)
			}
			enrolled, err := a.isActivelyEnrolled(ctx, principal.UserID, *courseID)
			if err != nil {
				a.logger.Error("Enrollment check failed", "error", err)
				return Deny(DenyNotEnrolled)
			}
			if !enrolled {
				return Deny(DenyNotEnrolled)
			}
		case ActionViewAttempt, ActionViewResults:
			if resource.OwnerID != principal.UserID {
				return Deny(DenyNotOwner)
			}
		}

	case models.RoleGuardian:
		switch action {
		case ActionViewCourse, ActionViewQuiz:
			// Courses and quizzes are owned by teachers, so the link is
			// checked through the enrolled students instead.
			courseID := resource.CourseID
			if resource.Kind == "course" {
				courseID = &resource.ID
			}
			if courseID == nil {
				return Deny(DenyNotGuardian)
			}
			linked, err := a.hasLinkedStudentEnrolled(ctx, principal.UserID, *courseID)
			if err != nil {
				a.logger.Error("Guardian link check failed", "error", err)
				return Deny(DenyNotGuardian)
			}
			if !linked {
				return Deny(DenyNotGuardian)
			}
		case ActionViewAttempt, ActionViewResults:
			linked, err := a.hasAcceptedLink(ctx, principal.UserID, resource.OwnerID)
			if err != nil {
				a.logger.Error("Guardian link check failed", "error", err)
				return Deny(DenyNotGuardian)
			}
			if !linked {
				return Deny(DenyNotGuardian)
			}
		}
	}

	return Allow()
}

func (a *authorizer) isActivelyEnrolled(ctx context.Context, studentID, courseID uuid.UUID) (bool, error) {
	enrollment, err := a.repo.Enrollment().Get(ctx, studentID, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return enrollment.Status == models.EnrollmentActive, nil
}

// hasLinkedStudentEnrolled reports whether any student with an accepted link
// to the guardian is actively enrolled in the course.
func (a *authorizer) hasLinkedStudentEnrolled(ctx context.Context, guardianID, courseID uuid.UUID) (bool, error) {
	links, err := a.repo.Enrollment().ListGuardianLinks(ctx, guardianID)
	if err != nil {
		return false, err
	}
	for _, link := range links {
		if link.Status != models.GuardianAccepted {
			continue
		}
		enrolled, err := a.isActivelyEnrolled(ctx, link.StudentID, courseID)
		if err != nil {
			return false, err
		}
		if enrolled {
			return true, nil
		}
	}
	return false, nil
}

func (a *authorizer) hasAcceptedLink(ctx context.Context, guardianID, studentID uuid.UUID) (bool, error) {
	link, err := a.repo.Enrollment().GetGuardianLink(ctx, guardianID, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return link.Status == models.GuardianAccepted, nil
}
