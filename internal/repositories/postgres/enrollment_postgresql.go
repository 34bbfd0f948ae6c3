package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/edupulse/assessment-engine/internal/models"
	"github.com/edupulse/assessment-engine/internal/repositories"
)

type EnrollmentPostgreSQL struct {
	db *gorm.DB
}

func NewEnrollmentPostgreSQL(db *gorm.DB) repositories.EnrollmentRepository {
	return &EnrollmentPostgreSQL{db: db}
}

func (e *EnrollmentPostgreSQL) Create(ctx context.Context, enrollment *models.Enrollment) error {
	return e.db.WithContext(ctx).Create(enrollment).Error
}

func (e *EnrollmentPostgreSQL) Get(ctx context.Context, studentID, courseID uuid.UUID) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := e.db.WithContext(ctx).
		First(&enrollment, "student_id = ? AND course_id = ?", studentID, courseID).Error; err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (e *EnrollmentPostgreSQL) UpdateStatus(ctx context.Context, studentID, courseID uuid.UUID, status models.EnrollmentStatus) error {
	return e.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Update("status", status).Error
}

func (e *EnrollmentPostgreSQL) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]*models.Enrollment, error) {
	var enrollments []*models.Enrollment
	if err := e.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Preload("Student").
		Find(&enrollments).Error; err != nil {
		return nil, err
	}
	return enrollments, nil
}

func (e *EnrollmentPostgreSQL) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*models.Enrollment, error) {
	var enrollments []*models.Enrollment
	if err := e.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Preload("Course").
		Find(&enrollments).Error; err != nil {
		return nil, err
	}
	return enrollments, nil
}

func (e *EnrollmentPostgreSQL) ActiveStudentIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := e.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("course_id = ? AND status = ?", courseID, models.EnrollmentActive).
		Pluck("student_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (e *EnrollmentPostgreSQL) CreateGuardianLink(ctx context.Context, link *models.GuardianLink) error {
	return e.db.WithContext(ctx).Create(link).Error
}

func (e *EnrollmentPostgreSQL) GetGuardianLink(ctx context.Context, guardianID, studentID uuid.UUID) (*models.GuardianLink, error) {
	var link models.GuardianLink
	if err := e.db.WithContext(ctx).
		First(&link, "guardian_id = ? AND student_id = ?", guardianID, studentID).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

func (e *EnrollmentPostgreSQL) GetGuardianLinkByID(ctx context.Context, id uuid.UUID) (*models.GuardianLink, error) {
	var link models.GuardianLink
	if err := e.db.WithContext(ctx).First(&link, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

func (e *EnrollmentPostgreSQL) UpdateGuardianLinkStatus(ctx context.Context, id uuid.UUID, status models.GuardianLinkStatus) error {
	return e.db.WithContext(ctx).
		Model(&models.GuardianLink{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (e *EnrollmentPostgreSQL) ListGuardianLinks(ctx context.Context, guardianID uuid.UUID) ([]*models.GuardianLink, error) {
	var links []*models.GuardianLink
	if err := e.db.WithContext(ctx).
		Where("guardian_id = ?", guardianID).
		Preload("Student").
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}
