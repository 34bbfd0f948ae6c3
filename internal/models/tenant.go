package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the unit of data isolation: a school organization or the implicit
// scope of a solo-teacher account.
type Tenant struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name           string    `json:"name" gorm:"not null;size:100;uniqueIndex" validate:"required,min=1,max=100"`
	IsOrganization bool      `json:"is_organization" gorm:"default:true"`

	// Nullable only during the bootstrap transaction and after owner deletion.
	OwnerUserID *uuid.UUID `json:"owner_user_id" gorm:"type:uuid"`

	IsActive bool `json:"is_active" gorm:"default:true"`

	// Deletion grace window. Set when the owner requests deletion; the tenant
	// is purged 90 days later by the retention sweep.
	DeletionRequestedAt *time.Time `json:"deletion_requested_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Owner *User  `json:"owner,omitempty" gorm:"foreignKey:OwnerUserID"`
	Users []User `json:"users,omitempty" gorm:"foreignKey:TenantID"`
}

func (Tenant) TableName() string {
	return "tenants"
}

// PurgeDeadline returns the end of the deletion grace window, or zero time if
// no deletion has been requested.
func (t *Tenant) PurgeDeadline(grace time.Duration) time.Time {
	if t.DeletionRequestedAt == nil {
		return time.Time{}
	}
	return t.DeletionRequestedAt.Add(grace)
}
