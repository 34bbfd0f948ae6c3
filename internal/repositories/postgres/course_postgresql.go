package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/edupulse/assessment-engine/internal/models"
	"github.com/edupulse/assessment-engine/internal/repositories"
)

type CoursePostgreSQL struct {
	db *gorm.DB
}

func NewCoursePostgreSQL(db *gorm.DB) repositories.CourseRepository {
	return &CoursePostgreSQL{db: db}
}

func (c *CoursePostgreSQL) Create(ctx context.Context, course *models.Course) error {
	return c.db.WithContext(ctx).Create(course).Error
}

func (c *CoursePostgreSQL) GetByID(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	var course models.Course
	if err := c.db.WithContext(ctx).First(&course, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (c *CoursePostgreSQL) Update(ctx context.Context, course *models.Course) error {
	return c.db.WithContext(ctx).Save(course).Error
}

func (c *CoursePostgreSQL) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.Course, error) {
	var courses []*models.Course
	if err := c.db.WithContext(ctx).
		Where("tenant_id = ? AND deleted_at IS NULL", tenantID).
		Find(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (c *CoursePostgreSQL) ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]*models.Course, error) {
	var courses []*models.Course
	if err := c.db.WithContext(ctx).
		Where("teacher_id = ? AND deleted_at IS NULL", teacherID).
		Find(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (c *CoursePostgreSQL) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	return c.db.WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", at).Error
}

func (c *CoursePostgreSQL) Restore(ctx context.Context, id uuid.UUID, deletedAfter time.Time) (bool, error) {
	res := c.db.WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ? AND deleted_at IS NOT NULL AND deleted_at > ?", id, deletedAfter).
		Update("deleted_at", nil)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (c *CoursePostgreSQL) TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error {
	return c.db.WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ?", id).
		Update("last_activity_at", at).Error
}

func (c *CoursePostgreSQL) ListPurgeable(ctx context.Context, deletedBefore, inactiveSince time.Time) ([]*models.Course, error) {
	var courses []*models.Course
	if err := c.db.WithContext(ctx).
		Where("(deleted_at IS NOT NULL AND deleted_at < ?) OR (deleted_at IS NULL AND last_activity_at < ?)",
			deletedBefore, inactiveSince).
		Find(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (c *CoursePostgreSQL) MigrateToSolo(ctx context.Context, courseID, teacherID uuid.UUID) error {
	return c.db.WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ? AND teacher_id = ?", courseID, teacherID).
		Updates(map[string]interface{}{
			"tenant_id":       nil,
			"solo_teacher_id": teacherID,
		}).Error
}

func (c *CoursePostgreSQL) Delete(ctx context.Context, id uuid.UUID) error {
	return c.db.WithContext(ctx).Delete(&models.Course{}, "id = ?", id).Error
}
