package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/edupulse/assessment-engine/internal/repositories"
)

type gormRepository struct {
	db *gorm.DB
}

// NewRepository builds the aggregate gorm-backed repository.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Tenant() repositories.TenantRepository {
	return NewTenantPostgreSQL(r.db)
}

func (r *gormRepository) User() repositories.UserRepository {
	return NewUserPostgreSQL(r.db)
}

func (r *gormRepository) Course() repositories.CourseRepository {
	return NewCoursePostgreSQL(r.db)
}

func (r *gormRepository) Enrollment() repositories.EnrollmentRepository {
	return NewEnrollmentPostgreSQL(r.db)
}

func (r *gormRepository) Quiz() repositories.QuizRepository {
	return NewQuizPostgreSQL(r.db)
}

func (r *gormRepository) Attempt() repositories.AttemptRepository {
	return NewAttemptPostgreSQL(r.db)
}

func (r *gormRepository) Notification() repositories.NotificationRepository {
	return NewNotificationPostgreSQL(r.db)
}

// WithTx runs fn against a Repository bound to one database transaction.
func (r *gormRepository) WithTx(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}
