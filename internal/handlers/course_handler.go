package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/edupulse/assessment-engine/internal/models"
	"github.com/edupulse/assessment-engine/internal/services"
	"github.com/edupulse/assessment-engine/internal/utils"
)

type CourseHandler struct {
	BaseHandler
	courses     services.CourseService
	enrollments services.EnrollmentService
	retention   services.RetentionService
}

func NewCourseHandler(
	courses services.CourseService,
	enrollments services.EnrollmentService,
	retention services.RetentionService,
	logger utils.Logger,
) *CourseHandler {
	return &CourseHandler{
		BaseHandler: NewBaseHandler(logger),
		courses:     courses,
		enrollments: enrollments,
		retention:   retention,
	}
}

func (h *CourseHandler) CreateCourse(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}

	var req services.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	course, err := h.courses.Create(c.Request.Context(), principal, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, course)
}

func (h *CourseHandler) GetCourse(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}
	id := parseUUIDParam(c, "id")
	if id == uuid.Nil {
		return
	}

	course, err := h.courses.Get(c.Request.Context(), principal, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

func (h *CourseHandler) ListCourses(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}

	courses, err := h.courses.List(c.Request.Context(), principal)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, courses)
}

// DeleteCourse soft-deletes; the course remains restorable for the restore
// window.
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}
	id := parseUUIDParam(c, "id")
	if id == uuid.Nil {
		return
	}

	h.LogRequest(c, "Deleting course", "course_id", id)

	if err := h.retention.DeleteCourse(c.Request.Context(), principal, id); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Course deleted"})
}

func (h *CourseHandler) RestoreCourse(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}
	id := parseUUIDParam(c, "id")
	if id == uuid.Nil {
		return
	}

	if err := h.retention.RestoreCourse(c.Request.Context(), principal, id); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Course restored"})
}

// MigrateCourse moves a course from a tenant in its deletion grace window to
// the teacher's solo scope.
func (h *CourseHandler) MigrateCourse(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}
	id := parseUUIDParam(c, "id")
	if id == uuid.Nil {
		return
	}

	if err := h.retention.MigrateCourseToSolo(c.Request.Context(), principal, id); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Course migrated to solo scope"})
}

type enrollRequest struct {
	StudentID uuid.UUID `json:"student_id" binding:"required"`
}

func (h *CourseHandler) EnrollStudent(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}
	courseID := parseUUIDParam(c, "id")
	if courseID == uuid.Nil {
		return
	}

	var req enrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	enrollment, err := h.enrollments.Enroll(c.Request.Context(), principal, courseID, req.StudentID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, enrollment)
}

type enrollmentStatusRequest struct {
	Status models.EnrollmentStatus `json:"status" binding:"required"`
}

func (h *CourseHandler) UpdateEnrollment(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}
	courseID := parseUUIDParam(c, "id")
	if courseID == uuid.Nil {
		return
	}
	studentID := parseUUIDParam(c, "student_id")
	if studentID == uuid.Nil {
		return
	}

	var req enrollmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.enrollments.UpdateStatus(c.Request.Context(), principal, courseID, studentID, req.Status); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Enrollment updated"})
}

func (h *CourseHandler) ListEnrollments(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}
	courseID := parseUUIDParam(c, "id")
	if courseID == uuid.Nil {
		return
	}

	enrollments, err := h.enrollments.ListByCourse(c.Request.Context(), principal, courseID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, enrollments)
}
