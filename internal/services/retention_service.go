package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/edupulse/assessment-engine/internal/auth"
	"github.com/edupulse/assessment-engine/internal/cache"
	"github.com/edupulse/assessment-engine/internal/events"
	"github.com/edupulse/assessment-engine/internal/models"
	"github.com/edupulse/assessment-engine/internal/repositories"
)

// RetentionConfig carries the retention windows the sweeps enforce.
type RetentionConfig struct {
	CourseRestoreWindow    time.Duration
	CourseInactivityWindow time.Duration
	TenantGraceWindow      time.Duration
	ExportDir              string
}

type retentionService struct {
	repo       repositories.Repository
	authorizer Authorizer
	cache      cache.CacheService
	publisher  events.EventPublisher
	logger     *slog.Logger
	cfg        RetentionConfig
}

func NewRetentionService(
	repo repositories.Repository,
	authorizer Authorizer,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	logger *slog.Logger,
	cfg RetentionConfig,
) RetentionService {
	return &retentionService{
		repo:       repo,
		authorizer: authorizer,
		cache:      cacheService,
		publisher:  publisher,
		logger:     logger,
		cfg:        cfg,
	}
}

// DeleteCourse soft-deletes: the course disappears from normal use but can
// be restored until the restore window closes.
func (s *retentionService) DeleteCourse(ctx context.Context, principal *auth.Principal, courseID uuid.UUID) error {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if course.DeletedAt != nil {
		return ErrCourseDeleted
	}

	if err := s.authorizer.Require(ctx, principal, ActionDeleteCourse, courseResource(course)); err != nil {
		return err
	}

	if err := s.repo.Course().SoftDelete(ctx, courseID, time.Now()); err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}

	s.logger.Info("Course soft-deleted", "course_id", courseID, "by", principal.UserID)
	return nil
}

func (s *retentionService) RestoreCourse(ctx context.Context, principal *auth.Principal, courseID uuid.UUID) error {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if course.DeletedAt == nil {
		return ErrCourseNotDeleted
	}

	if err := s.authorizer.Require(ctx, principal, ActionRestoreCourse, courseResource(course)); err != nil {
		return err
	}

	restored, err := s.repo.Course().Restore(ctx, courseID, time.Now().Add(-s.cfg.CourseRestoreWindow))
	if err != nil {
		return fmt.Errorf("failed to restore course: %w", err)
	}
	if !restored {
		return ErrRestoreWindowElapsed
	}

	s.logger.Info("Course restored", "course_id", courseID, "by", principal.UserID)
	return nil
}

// RequestTenantDeletion starts the grace window. Until it elapses nothing is
// removed; the tenant is merely deactivated and its users notified.
func (s *retentionService) RequestTenantDeletion(ctx context.Context, principal *auth.Principal, tenantID uuid.UUID) error {
	tenant, err := s.repo.Tenant().GetByID(ctx, tenantID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrTenantNotFound
		}
		return fmt.Errorf("failed to get tenant: %w", err)
	}
	if tenant.DeletionRequestedAt != nil {
		return ErrGraceAlreadyStarted
	}

	if principal.Role != models.RoleOwner || tenant.OwnerUserID == nil || *tenant.OwnerUserID != principal.UserID {
		return NewPermissionError(principal.UserID.String(), tenantID.String(),
			"tenant", string(ActionManageTenant), string(DenyNotOwner))
	}

	now := time.Now()
	if err := s.repo.Tenant().RequestDeletion(ctx, tenantID, now); err != nil {
		return fmt.Errorf("failed to request deletion: %w", err)
	}

	// Drop the cached active flag so requests see the grace state promptly.
	if err := s.cache.Delete(ctx, "tenant:active:"+tenantID.String()); err != nil {
		s.logger.Warn("Failed to invalidate tenant cache", "tenant_id", tenantID, "error", err)
	}

	users, err := s.repo.User().ListByTenant(ctx, tenantID)
	if err != nil {
		s.logger.Warn("Failed to list tenant users for grace event", "tenant_id", tenantID, "error", err)
	}
	userIDs := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		userIDs = append(userIDs, u.ID)
	}

	event := events.NewNotificationEvent(events.EventTenantGraceStarted, events.TenantGraceStartedEvent{
		TenantID:   tenantID,
		TenantName: tenant.Name,
		PurgeAt:    now.Add(s.cfg.TenantGraceWindow),
		UserIDs:    userIDs,
	})
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish grace event", "tenant_id", tenantID, "error", err)
	}

	s.logger.Info("Tenant deletion requested",
		"tenant_id", tenantID,
		"purge_at", now.Add(s.cfg.TenantGraceWindow))
	return nil
}

// MigrateCourseToSolo lets the teaching teacher carry a course out of a
// tenant that sits in its deletion grace window.
func (s *retentionService) MigrateCourseToSolo(ctx context.Context, principal *auth.Principal, courseID uuid.UUID) error {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if course.TenantID == nil {
		return NewBusinessRuleError("already_solo", "course is not tenant-scoped", nil)
	}
	if course.TeacherID != principal.UserID {
		return NewPermissionError(principal.UserID.String(), courseID.String(),
			"course", "course:migrate", string(DenyNotOwner))
	}

	tenant, err := s.repo.Tenant().GetByID(ctx, *course.TenantID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrTenantNotFound
		}
		return fmt.Errorf("failed to get tenant: %w", err)
	}
	if tenant.DeletionRequestedAt == nil {
		return NewBusinessRuleError("tenant_not_in_grace",
			"courses can only be migrated while the tenant awaits deletion", nil)
	}

	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		if err := tx.Course().MigrateToSolo(ctx, courseID, principal.UserID); err != nil {
			return fmt.Errorf("failed to migrate course: %w", err)
		}

		self := principal.UserID
		if !principal.HasGrant(models.RoleTeacher, nil, &self) {
			grant := &models.RoleGrant{
				UserID:        principal.UserID,
				Role:          models.RoleTeacher,
				SoloTeacherID: &self,
				IsActive:      true,
			}
			if err := tx.User().CreateGrant(ctx, grant); err != nil {
				return fmt.Errorf("failed to create solo grant: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Course migrated to solo scope", "course_id", courseID, "teacher_id", principal.UserID)
	return nil
}

// DeleteQuizCreator removes a teacher's quizzes. Attempts are never touched:
// they carry their own copy of the quiz title and course name and remain
// visible to students afterwards.
func (s *retentionService) DeleteQuizCreator(ctx context.Context, creatorID uuid.UUID) error {
	quizzes, err := s.repo.Quiz().ListByCreator(ctx, creatorID)
	if err != nil {
		return fmt.Errorf("failed to list quizzes: %w", err)
	}

	for _, quiz := range quizzes {
		if err := s.repo.Quiz().Delete(ctx, quiz.ID); err != nil {
			s.logger.Error("Failed to delete quiz", "quiz_id", quiz.ID, "error", err)
			continue
		}
	}

	s.logger.Info("Creator quizzes removed", "creator_id", creatorID, "count", len(quizzes))
	return nil
}

// SweepCourses purges courses whose restore window closed and live courses
// idle past the inactivity window. Student data is exported before each
// purge. One failing course never stops the sweep.
func (s *retentionService) SweepCourses(ctx context.Context) (int, error) {
	now := time.Now()
	courses, err := s.repo.Course().ListPurgeable(ctx,
		now.Add(-s.cfg.CourseRestoreWindow),
		now.Add(-s.cfg.CourseInactivityWindow))
	if err != nil {
		return 0, fmt.Errorf("failed to list purgeable courses: %w", err)
	}

	purged := 0
	for _, course := range courses {
		if err := s.purgeCourse(ctx, course); err != nil {
			s.logger.Error("Failed to purge course", "course_id", course.ID, "error", err)
			continue
		}
		purged++
	}

	if purged > 0 {
		s.logger.Info("Course sweep complete", "purged", purged)
	}
	return purged, nil
}

// purgeCourse removes one course. The export is written and the students
// notified before any row is deleted; if the export fails, the course is
// left for the next sweep run rather than purged with its data unrecovered.
func (s *retentionService) purgeCourse(ctx context.Context, course *models.Course) error {
	studentIDs, err := s.repo.Enrollment().ActiveStudentIDs(ctx, course.ID)
	if err != nil {
		return fmt.Errorf("failed to list students: %w", err)
	}

	quizzes, _, err := s.repo.Quiz().ListByCourse(ctx, course.ID, repositories.QuizFilters{Limit: 100})
	if err != nil {
		return fmt.Errorf("failed to list quizzes: %w", err)
	}

	fileName, err := s.exportCourseData(ctx, course, quizzes)
	if err != nil {
		return fmt.Errorf("failed to export course data: %w", err)
	}

	now := time.Now()
	for _, studentID := range studentIDs {
		event := events.NewNotificationEvent(events.EventDataExportReady, events.DataExportReadyEvent{
			CourseID:  course.ID,
			StudentID: studentID,
			FileName:  fileName,
			CreatedAt: now,
		})
		if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
			s.logger.Error("Failed to publish export event", "course_id", course.ID, "error", err)
		}
	}

	reason := "restore_window_elapsed"
	if course.DeletedAt == nil {
		reason = "inactivity"
	}

	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		for _, quiz := range quizzes {
			if err := tx.Quiz().Delete(ctx, quiz.ID); err != nil {
				return fmt.Errorf("failed to delete quiz %s: %w", quiz.ID, err)
			}
		}
		return tx.Course().Delete(ctx, course.ID)
	})
	if err != nil {
		return err
	}

	event := events.NewNotificationEvent(events.EventCoursePurged, events.CoursePurgedEvent{
		CourseID:   course.ID,
		CourseName: course.Name,
		PurgedAt:   time.Now(),
		Reason:     reason,
	})
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish purge event", "course_id", course.ID, "error", err)
	}

	return nil
}

// exportCourseData writes every student's attempt history for the course to
// an xlsx file and returns its name. Attempts are collected per quiz of the
// course, not by the denormalized course name, so a same-named course never
// leaks into the export.
func (s *retentionService) exportCourseData(ctx context.Context, course *models.Course, quizzes []*models.Quiz) (string, error) {
	enrollments, err := s.repo.Enrollment().ListByCourse(ctx, course.ID)
	if err != nil {
		return "", fmt.Errorf("failed to list enrollments: %w", err)
	}

	f := excelize.NewFile()
	sheetName := "Attempts"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"Student ID", "Quiz", "Attempt", "Status", "Started At", "Submitted At", "Score", "Percentage", "Passed",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	row := 2
	for _, enrollment := range enrollments {
		for _, quiz := range quizzes {
			attempts, err := s.repo.Attempt().ListByQuizAndStudent(ctx, quiz.ID, enrollment.StudentID)
			if err != nil {
				return "", fmt.Errorf("failed to list attempts: %w", err)
			}
			for _, attempt := range attempts {
				values := []interface{}{
					attempt.StudentID.String(),
					attempt.QuizTitle,
					attempt.AttemptNumber,
					string(attempt.Status),
					attempt.StartedAt.Format(time.RFC3339),
					formatTimePtr(attempt.SubmittedAt),
					formatFloatPtr(attempt.Score),
					formatFloatPtr(attempt.Percentage),
					formatBoolPtr(attempt.Passed),
				}
				for col, value := range values {
					cell := fmt.Sprintf("%c%d", 'A'+col, row)
					f.SetCellValue(sheetName, cell, value)
				}
				row++
			}
		}
	}

	fileName := fmt.Sprintf("course-%s-export-%d.xlsx", course.ID, time.Now().Unix())
	if err := os.MkdirAll(s.cfg.ExportDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}
	if err := f.SaveAs(filepath.Join(s.cfg.ExportDir, fileName)); err != nil {
		return "", fmt.Errorf("failed to save export: %w", err)
	}
	return fileName, nil
}

// SweepTenants purges tenants whose grace window elapsed: remaining users
// are detached (tenant_id set null), remaining courses soft-deleted so the
// course sweep exports and purges them, then the tenant row is removed.
func (s *retentionService) SweepTenants(ctx context.Context) (int, error) {
	now := time.Now()
	tenants, err := s.repo.Tenant().ListGraceExpired(ctx, now.Add(-s.cfg.TenantGraceWindow))
	if err != nil {
		return 0, fmt.Errorf("failed to list expired tenants: %w", err)
	}

	purged := 0
	for _, tenant := range tenants {
		if err := s.purgeTenant(ctx, tenant); err != nil {
			s.logger.Error("Failed to purge tenant", "tenant_id", tenant.ID, "error", err)
			continue
		}
		purged++
	}

	if purged > 0 {
		s.logger.Info("Tenant sweep complete", "purged", purged)
	}
	return purged, nil
}

func (s *retentionService) purgeTenant(ctx context.Context, tenant *models.Tenant) error {
	courses, err := s.repo.Course().ListByTenant(ctx, tenant.ID)
	if err != nil {
		return fmt.Errorf("failed to list courses: %w", err)
	}

	var detached int64
	now := time.Now()
	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		for _, course := range courses {
			if course.DeletedAt != nil {
				continue
			}
			if err := tx.Course().SoftDelete(ctx, course.ID, now); err != nil {
				return fmt.Errorf("failed to soft-delete course %s: %w", course.ID, err)
			}
		}

		detached, err = tx.User().DetachTenant(ctx, tenant.ID)
		if err != nil {
			return fmt.Errorf("failed to detach users: %w", err)
		}

		return tx.Tenant().Delete(ctx, tenant.ID)
	})
	if err != nil {
		return err
	}

	if err := s.cache.Delete(ctx, "tenant:active:"+tenant.ID.String()); err != nil {
		s.logger.Warn("Failed to invalidate tenant cache", "tenant_id", tenant.ID, "error", err)
	}

	event := events.NewNotificationEvent(events.EventTenantPurged, events.TenantPurgedEvent{
		TenantID:      tenant.ID,
		TenantName:    tenant.Name,
		PurgedAt:      now,
		DetachedUsers: int(detached),
	})
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish tenant purge event", "tenant_id", tenant.ID, "error", err)
	}

	s.logger.Info("Tenant purged",
		"tenant_id", tenant.ID,
		"detached_users", detached,
		"soft_deleted_courses", len(courses))
	return nil
}

// ===== HELPERS =====

func (s *retentionService) getCourse(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	course, err := s.repo.Course().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return course, nil
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatFloatPtr(f *float64) interface{} {
	if f == nil {
		return ""
	}
	return *f
}

func formatBoolPtr(b *bool) interface{} {
	if b == nil {
		return ""
	}
	return *b
}
