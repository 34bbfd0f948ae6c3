package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/edupulse/assessment-engine/internal/models"
	"github.com/edupulse/assessment-engine/internal/repositories"
)

type UserPostgreSQL struct {
	db *gorm.DB
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &UserPostgreSQL{db: db}
}

func (u *UserPostgreSQL) Create(ctx context.Context, user *models.User) error {
	return u.db.WithContext(ctx).Create(user).Error
}

func (u *UserPostgreSQL) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *UserPostgreSQL) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *UserPostgreSQL) Update(ctx context.Context, user *models.User) error {
	return u.db.WithContext(ctx).Save(user).Error
}

func (u *UserPostgreSQL) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return u.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}

func (u *UserPostgreSQL) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.User, error) {
	var users []*models.User
	if err := u.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (u *UserPostgreSQL) DetachTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	res := u.db.WithContext(ctx).
		Model(&models.User{}).
		Where("tenant_id = ?", tenantID).
		Update("tenant_id", nil)
	return res.RowsAffected, res.Error
}

func (u *UserPostgreSQL) CreateGrant(ctx context.Context, grant *models.RoleGrant) error {
	return u.db.WithContext(ctx).Create(grant).Error
}

func (u *UserPostgreSQL) GetGrants(ctx context.Context, userID uuid.UUID) ([]models.RoleGrant, error) {
	var grants []models.RoleGrant
	if err := u.db.WithContext(ctx).
		Where("user_id = ? AND is_active = true", userID).
		Find(&grants).Error; err != nil {
		return nil, err
	}
	return grants, nil
}
