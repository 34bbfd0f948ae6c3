package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleOwner    UserRole = "owner"
	RoleAdmin    UserRole = "admin"
	RoleTeacher  UserRole = "teacher"
	RoleStudent  UserRole = "student"
	RoleGuardian UserRole = "guardian"
)

type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FirstName    string    `json:"first_name" gorm:"not null;size:50" validate:"required,min=1,max=50"`
	LastName     string    `json:"last_name" gorm:"not null;size:50" validate:"required,min=1,max=50"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null;size:255" validate:"required,email"`
	PasswordHash string    `json:"-" gorm:"not null;size:255"`

	// Role is immutable after creation.
	Role UserRole `json:"role" gorm:"not null;size:20;index" validate:"required,oneof=owner admin teacher student guardian"`

	// Null only for users whose tenant was purged.
	TenantID *uuid.UUID `json:"tenant_id" gorm:"type:uuid;index"`

	IsActive    bool       `json:"is_active" gorm:"default:true"`
	LastLoginAt *time.Time `json:"last_login_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Tenant *Tenant     `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
	Grants []RoleGrant `json:"grants,omitempty" gorm:"foreignKey:UserID"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// RoleGrant is a fine-grained role assignment scoped to a tenant or to a
// solo-teacher account. A user may hold several active grants, e.g. teacher
// in one tenant and guardian globally.
type RoleGrant struct {
	ID     uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	Role   UserRole  `json:"role" gorm:"not null;size:20" validate:"required,oneof=owner admin teacher student guardian"`

	// Exactly one of TenantID / SoloTeacherID is set.
	TenantID      *uuid.UUID `json:"tenant_id" gorm:"type:uuid;index"`
	SoloTeacherID *uuid.UUID `json:"solo_teacher_id" gorm:"type:uuid;index"`

	IsActive   bool       `json:"is_active" gorm:"default:true"`
	AssignedBy *uuid.UUID `json:"assigned_by" gorm:"type:uuid"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (RoleGrant) TableName() string {
	return "role_grants"
}

// MatchesScope reports whether the grant covers the given tenant or
// solo-teacher scope.
func (g *RoleGrant) MatchesScope(tenantID, soloTeacherID *uuid.UUID) bool {
	if !g.IsActive {
		return false
	}
	if g.TenantID != nil && tenantID != nil {
		return *g.TenantID == *tenantID
	}
	if g.SoloTeacherID != nil && soloTeacherID != nil {
		return *g.SoloTeacherID == *soloTeacherID
	}
	return false
}
