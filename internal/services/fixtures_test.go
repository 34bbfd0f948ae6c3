package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/edupulse/assessment-engine/internal/auth"
	"github.com/edupulse/assessment-engine/internal/models"
)

func seedTenant(repo *mockRepository, name string) *models.Tenant {
	tenant := &models.Tenant{
		ID:             uuid.New(),
		Name:           name,
		IsOrganization: true,
		IsActive:       true,
		CreatedAt:      time.Now(),
	}
	repo.tenants[tenant.ID] = *tenant
	return tenant
}

func seedUser(repo *mockRepository, role models.UserRole, tenantID *uuid.UUID, email string) *models.User {
	user := &models.User{
		ID:           uuid.New(),
		FirstName:    "Test",
		LastName:     string(role),
		Email:        email,
		PasswordHash: "hash",
		Role:         role,
		TenantID:     tenantID,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	repo.users[user.ID] = *user
	return user
}

func principalFor(user *models.User) *auth.Principal {
	return &auth.Principal{
		UserID:       user.ID,
		Role:         user.Role,
		TenantID:     user.TenantID,
		TenantActive: user.TenantID != nil,
	}
}

func soloPrincipal(user *models.User) *auth.Principal {
	self := user.ID
	return &auth.Principal{
		UserID: user.ID,
		Role:   models.RoleTeacher,
		Grants: []models.RoleGrant{{
			UserID:        user.ID,
			Role:          models.RoleTeacher,
			SoloTeacherID: &self,
			IsActive:      true,
		}},
	}
}

func seedCourse(repo *mockRepository, tenantID *uuid.UUID, teacherID uuid.UUID) *models.Course {
	course := &models.Course{
		ID:             uuid.New(),
		Name:           "Algebra I",
		Subject:        "Math",
		TenantID:       tenantID,
		TeacherID:      teacherID,
		IsActive:       true,
		LastActivityAt: time.Now(),
		CreatedAt:      time.Now(),
	}
	if tenantID == nil {
		solo := teacherID
		course.SoloTeacherID = &solo
	}
	repo.courses[course.ID] = *course
	return course
}

func seedQuiz(repo *mockRepository, courseID, creatorID uuid.UUID, status models.QuizStatus) *models.Quiz {
	quiz := &models.Quiz{
		ID:               uuid.New(),
		Title:            "Chapter 1 Quiz",
		CourseID:         courseID,
		CreatorID:        creatorID,
		Status:           status,
		TimeLimitMinutes: 30,
		MaxAttempts:      3,
		PassingScore:     2,
		MaxScore:         3,
		CreatedAt:        time.Now(),
	}
	if status == models.QuizPublished {
		now := time.Now()
		quiz.PublishedAt = &now
	}
	repo.quizzes[quiz.ID] = *quiz
	return quiz
}

func seedQuestion(repo *mockRepository, quizID uuid.UUID, qtype models.QuestionType, answer string, points float64, order int) *models.QuizQuestion {
	question := &models.QuizQuestion{
		ID:            uuid.New(),
		QuizID:        quizID,
		QuestionText:  "Question",
		QuestionType:  qtype,
		CorrectAnswer: answer,
		Points:        points,
		OrderNumber:   order,
	}
	repo.questions[question.ID] = *question
	return question
}

func seedEnrollment(repo *mockRepository, studentID, courseID uuid.UUID, status models.EnrollmentStatus) *models.Enrollment {
	enrollment := &models.Enrollment{
		ID:         uuid.New(),
		StudentID:  studentID,
		CourseID:   courseID,
		Status:     status,
		EnrolledAt: time.Now(),
	}
	repo.enrollments[enrollment.ID] = *enrollment
	return enrollment
}

func seedGuardianLink(repo *mockRepository, guardianID, studentID uuid.UUID, status models.GuardianLinkStatus) *models.GuardianLink {
	link := &models.GuardianLink{
		ID:           uuid.New(),
		GuardianID:   guardianID,
		StudentID:    studentID,
		Relationship: "parent",
		Status:       status,
	}
	repo.guardianLinks[link.ID] = *link
	return link
}

func testCtx() context.Context {
	return context.Background()
}
