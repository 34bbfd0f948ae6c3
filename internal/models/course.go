package models

import (
	"time"

	"github.com/google/uuid"
)

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentDropped   EnrollmentStatus = "dropped"
)

type GuardianLinkStatus string

const (
	GuardianPending  GuardianLinkStatus = "pending"
	GuardianAccepted GuardianLinkStatus = "accepted"
	GuardianRejected GuardianLinkStatus = "rejected"
)

// Course belongs to a tenant or to a solo-teacher account, never both.
type Course struct {
	ID      uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name    string    `json:"name" gorm:"not null;size:100" validate:"required,min=1,max=100"`
	Subject string    `json:"subject" gorm:"size:100" validate:"omitempty,max=100"`

	TenantID      *uuid.UUID `json:"tenant_id" gorm:"type:uuid;index"`
	SoloTeacherID *uuid.UUID `json:"solo_teacher_id" gorm:"type:uuid;index"`
	TeacherID     uuid.UUID  `json:"teacher_id" gorm:"type:uuid;not null;index"`

	IsActive       bool      `json:"is_active" gorm:"default:true"`
	LastActivityAt time.Time `json:"last_activity_at"`

	// Soft delete with restore window. Not gorm.DeletedAt: deleted courses
	// stay visible to the restore flow and the retention sweep.
	DeletedAt *time.Time `json:"deleted_at" gorm:"index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Teacher     User         `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`
	Enrollments []Enrollment `json:"enrollments,omitempty" gorm:"foreignKey:CourseID"`
	Quizzes     []Quiz       `json:"quizzes,omitempty" gorm:"foreignKey:CourseID"`
}

func (Course) TableName() string {
	return "courses"
}

// RestoreDeadline is the last moment a soft-deleted course can be restored.
func (c *Course) RestoreDeadline(window time.Duration) time.Time {
	if c.DeletedAt == nil {
		return time.Time{}
	}
	return c.DeletedAt.Add(window)
}

// InactivityDeadline is when an idle course becomes eligible for purge.
func (c *Course) InactivityDeadline(window time.Duration) time.Time {
	return c.LastActivityAt.Add(window)
}

type Enrollment struct {
	ID        uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	StudentID uuid.UUID        `json:"student_id" gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_student_course"`
	CourseID  uuid.UUID        `json:"course_id" gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_student_course"`
	Status    EnrollmentStatus `json:"status" gorm:"not null;size:20;default:active" validate:"omitempty,oneof=active completed dropped"`

	EnrolledAt time.Time `json:"enrolled_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Relations
	Student User   `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Course  Course `json:"course,omitempty" gorm:"foreignKey:CourseID"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

type GuardianLink struct {
	ID           uuid.UUID          `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	GuardianID   uuid.UUID          `json:"guardian_id" gorm:"type:uuid;not null;uniqueIndex:idx_guardian_student"`
	StudentID    uuid.UUID          `json:"student_id" gorm:"type:uuid;not null;uniqueIndex:idx_guardian_student"`
	Relationship string             `json:"relationship" gorm:"not null;size:50" validate:"required,max=50"`
	Status       GuardianLinkStatus `json:"status" gorm:"not null;size:20;default:pending" validate:"omitempty,oneof=pending accepted rejected"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Guardian User `json:"guardian,omitempty" gorm:"foreignKey:GuardianID"`
	Student  User `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

func (GuardianLink) TableName() string {
	return "guardian_links"
}
