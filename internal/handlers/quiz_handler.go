package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/edupulse/assessment-engine/internal/auth"
	"github.com/edupulse/assessment-engine/internal/repositories"
	"github.com/edupulse/assessment-engine/internal/services"
	"github.com/edupulse/assessment-engine/internal/utils"
)

type QuizHandler struct {
	BaseHandler
	quizzes services.QuizService
}

func NewQuizHandler(quizzes services.QuizService, logger utils.Logger) *QuizHandler {
	return &QuizHandler{
		BaseHandler: NewBaseHandler(logger),
		quizzes:     quizzes,
	}
}

func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}

	var req services.CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	quiz, err := h.quizzes.Create(c.Request.Context(), principal, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, quiz)
}

func (h *QuizHandler) GetQuiz(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}
	id := parseUUIDParam(c, "id")
	if id == uuid.Nil {
		return
	}

	quiz, err := h.quizzes.Get(c.Request.Context(), principal, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}
	id := parseUUIDParam(c, "id")
	if id == uuid.Nil {
		return
	}

	var req services.UpdateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	quiz, err := h.quizzes.Update(c.Request.Context(), principal, id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// ListQuizzes lists a course's quizzes with pagination and status filter.
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}
	courseID := parseUUIDParam(c, "id")
	if courseID == uuid.Nil {
		return
	}

	filters := repositories.QuizFilters{
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}
	filters.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	filters.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	quizzes, total, err := h.quizzes.List(c.Request.Context(), principal, courseID, filters)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quizzes": quizzes,
		"total":   total,
	})
}

func (h *QuizHandler) PublishQuiz(c *gin.Context) {
	h.transition(c, h.quizzes.Publish, "Quiz published")
}

func (h *QuizHandler) UnpublishQuiz(c *gin.Context) {
	h.transition(c, h.quizzes.Unpublish, "Quiz unpublished")
}

func (h *QuizHandler) ArchiveQuiz(c *gin.Context) {
	h.transition(c, h.quizzes.Archive, "Quiz archived")
}

func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	h.transition(c, h.quizzes.Delete, "Quiz deleted")
}

func (h *QuizHandler) AddQuestion(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}
	quizID := parseUUIDParam(c, "id")
	if quizID == uuid.Nil {
		return
	}

	var req services.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	question, err := h.quizzes.AddQuestion(c.Request.Context(), principal, quizID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

func (h *QuizHandler) UpdateQuestion(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}
	questionID := parseUUIDParam(c, "question_id")
	if questionID == uuid.Nil {
		return
	}

	var req services.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	question, err := h.quizzes.UpdateQuestion(c.Request.Context(), principal, questionID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

func (h *QuizHandler) DeleteQuestion(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}
	questionID := parseUUIDParam(c, "question_id")
	if questionID == uuid.Nil {
		return
	}

	if err := h.quizzes.DeleteQuestion(c.Request.Context(), principal, questionID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Question deleted"})
}

type transitionFunc func(ctx context.Context, principal *auth.Principal, id uuid.UUID) error

func (h *QuizHandler) transition(c *gin.Context, fn transitionFunc, message string) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}
	id := parseUUIDParam(c, "id")
	if id == uuid.Nil {
		return
	}

	h.LogRequest(c, message, "quiz_id", id)

	if err := fn(c.Request.Context(), principal, id); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}
