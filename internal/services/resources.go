package services

import (
	"github.com/edupulse/assessment-engine/internal/models"
)

func courseResource(course *models.Course) *Resource {
	return &Resource{
		Kind:          "course",
		ID:            course.ID,
		TenantID:      course.TenantID,
		SoloTeacherID: course.SoloTeacherID,
		OwnerID:       course.TeacherID,
	}
}

func quizResource(quiz *models.Quiz, course *models.Course) *Resource {
	return &Resource{
		Kind:          "quiz",
		ID:            quiz.ID,
		TenantID:      course.TenantID,
		SoloTeacherID: course.SoloTeacherID,
		OwnerID:       quiz.CreatorID,
		CourseID:      &quiz.CourseID,
	}
}

func attemptResource(attempt *models.QuizAttempt, course *models.Course) *Resource {
	resource := &Resource{
		Kind:    "attempt",
		ID:      attempt.ID,
		OwnerID: attempt.StudentID,
	}
	if course != nil {
		resource.TenantID = course.TenantID
		resource.SoloTeacherID = course.SoloTeacherID
		courseID := course.ID
		resource.CourseID = &courseID
	}
	return resource
}
