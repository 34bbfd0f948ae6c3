package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/edupulse/assessment-engine/internal/auth"
	"github.com/edupulse/assessment-engine/internal/services"
	"github.com/edupulse/assessment-engine/internal/utils"
)

type HandlerManager struct {
	tokens    *auth.TokenIssuer
	directory services.DirectoryService

	authHandler     *AuthHandler
	courseHandler   *CourseHandler
	guardianHandler *GuardianHandler
	quizHandler     *QuizHandler
	attemptHandler  *AttemptHandler
	tenantHandler   *TenantHandler
}

func NewHandlerManager(
	tokens *auth.TokenIssuer,
	directory services.DirectoryService,
	courses services.CourseService,
	enrollments services.EnrollmentService,
	quizzes services.QuizService,
	attempts services.AttemptService,
	retention services.RetentionService,
	notifications services.NotificationService,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		tokens:          tokens,
		directory:       directory,
		authHandler:     NewAuthHandler(directory, logger),
		courseHandler:   NewCourseHandler(courses, enrollments, retention, logger),
		guardianHandler: NewGuardianHandler(enrollments, logger),
		quizHandler:     NewQuizHandler(quizzes, logger),
		attemptHandler:  NewAttemptHandler(attempts, logger),
		tenantHandler:   NewTenantHandler(retention, notifications, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	v1 := router.Group("/api/v1")

	// Public routes
	v1.POST("/auth/login", hm.authHandler.Login)
	v1.POST("/tenants/signup", hm.authHandler.SignupTenant)
	v1.POST("/teachers/signup", hm.authHandler.SignupSoloTeacher)
	v1.POST("/users/signup", hm.authHandler.SignupUser)

	// Authenticated routes
	authed := v1.Group("")
	authed.Use(AuthMiddleware(hm.tokens, hm.directory))
	{
		tenants := authed.Group("/tenants")
		{
			tenants.DELETE("/:id", hm.tenantHandler.RequestDeletion)
		}

		courses := authed.Group("/courses")
		{
			courses.POST("", hm.courseHandler.CreateCourse)
			courses.GET("", hm.courseHandler.ListCourses)
			courses.GET("/:id", hm.courseHandler.GetCourse)
			courses.DELETE("/:id", hm.courseHandler.DeleteCourse)
			courses.POST("/:id/restore", hm.courseHandler.RestoreCourse)
			courses.POST("/:id/migrate", hm.courseHandler.MigrateCourse)
			courses.POST("/:id/enrollments", hm.courseHandler.EnrollStudent)
			courses.GET("/:id/enrollments", hm.courseHandler.ListEnrollments)
			courses.PUT("/:id/enrollments/:student_id", hm.courseHandler.UpdateEnrollment)
			courses.GET("/:id/quizzes", hm.quizHandler.ListQuizzes)
		}

		guardians := authed.Group("/guardians")
		{
			guardians.POST("/links", hm.guardianHandler.RequestLink)
			guardians.PUT("/links/:id", hm.guardianHandler.DecideLink)
			guardians.GET("/links", hm.guardianHandler.ListLinks)
		}

		quizzes := authed.Group("/quizzes")
		{
			quizzes.POST("", hm.quizHandler.CreateQuiz)
			quizzes.GET("/:id", hm.quizHandler.GetQuiz)
			quizzes.PUT("/:id", hm.quizHandler.UpdateQuiz)
			quizzes.PUT("/:id/publish", hm.quizHandler.PublishQuiz)
			quizzes.PUT("/:id/unpublish", hm.quizHandler.UnpublishQuiz)
			quizzes.PUT("/:id/archive", hm.quizHandler.ArchiveQuiz)
			quizzes.DELETE("/:id", hm.quizHandler.DeleteQuiz)
			quizzes.POST("/:id/questions", hm.quizHandler.AddQuestion)
			quizzes.PUT("/questions/:question_id", hm.quizHandler.UpdateQuestion)
			quizzes.DELETE("/questions/:question_id", hm.quizHandler.DeleteQuestion)
			quizzes.POST("/:id/attempts", hm.attemptHandler.StartAttempt)
			quizzes.GET("/:id/attempts/summary", hm.attemptHandler.GetSummary)
		}

		attempts := authed.Group("/attempts")
		{
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.PUT("/:id/answers", hm.attemptHandler.SaveAnswers)
			attempts.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
		}

		notifications := authed.Group("/notifications")
		{
			notifications.GET("", hm.tenantHandler.ListNotifications)
			notifications.PUT("/:id/read", hm.tenantHandler.MarkNotificationRead)
		}
	}
}
