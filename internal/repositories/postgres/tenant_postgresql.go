package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/edupulse/assessment-engine/internal/models"
	"github.com/edupulse/assessment-engine/internal/repositories"
)

type TenantPostgreSQL struct {
	db *gorm.DB
}

func NewTenantPostgreSQL(db *gorm.DB) repositories.TenantRepository {
	return &TenantPostgreSQL{db: db}
}

func (t *TenantPostgreSQL) Create(ctx context.Context, tenant *models.Tenant) error {
	return t.db.WithContext(ctx).Create(tenant).Error
}

func (t *TenantPostgreSQL) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := t.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (t *TenantPostgreSQL) GetByName(ctx context.Context, name string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := t.db.WithContext(ctx).First(&tenant, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (t *TenantPostgreSQL) Update(ctx context.Context, tenant *models.Tenant) error {
	return t.db.WithContext(ctx).Save(tenant).Error
}

func (t *TenantPostgreSQL) AttachOwner(ctx context.Context, tenantID, userID uuid.UUID) (bool, error) {
	res := t.db.WithContext(ctx).
		Model(&models.Tenant{}).
		Where("id = ? AND owner_user_id IS NULL", tenantID).
		Update("owner_user_id", userID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (t *TenantPostgreSQL) RequestDeletion(ctx context.Context, tenantID uuid.UUID, at time.Time) error {
	return t.db.WithContext(ctx).
		Model(&models.Tenant{}).
		Where("id = ?", tenantID).
		Updates(map[string]interface{}{
			"deletion_requested_at": at,
			"is_active":             false,
		}).Error
}

func (t *TenantPostgreSQL) ListOwnerless(ctx context.Context, createdBefore time.Time) ([]*models.Tenant, error) {
	var tenants []*models.Tenant
	if err := t.db.WithContext(ctx).
		Where("owner_user_id IS NULL AND created_at < ?", createdBefore).
		Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

func (t *TenantPostgreSQL) ListGraceExpired(ctx context.Context, deadline time.Time) ([]*models.Tenant, error) {
	var tenants []*models.Tenant
	if err := t.db.WithContext(ctx).
		Where("deletion_requested_at IS NOT NULL AND deletion_requested_at < ?", deadline).
		Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

func (t *TenantPostgreSQL) Delete(ctx context.Context, id uuid.UUID) error {
	return t.db.WithContext(ctx).Delete(&models.Tenant{}, "id = ?", id).Error
}
