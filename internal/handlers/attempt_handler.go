package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/edupulse/assessment-engine/internal/models"
	"github.com/edupulse/assessment-engine/internal/services"
	"github.com/edupulse/assessment-engine/internal/utils"
)

type AttemptHandler struct {
	BaseHandler
	attempts services.AttemptService
}

func NewAttemptHandler(attempts services.AttemptService, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler: NewBaseHandler(logger),
		attempts:    attempts,
	}
}

func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}
	quizID := parseUUIDParam(c, "id")
	if quizID == uuid.Nil {
		return
	}

	h.LogRequest(c, "Starting attempt", "quiz_id", quizID)

	attempt, err := h.attempts.Start(c.Request.Context(), principal, quizID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

type answersRequest struct {
	Answers models.AnswerSet `json:"answers"`
}

// SaveAnswers stores the current answer set without closing the attempt.
func (h *AttemptHandler) SaveAnswers(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}
	attemptID := parseUUIDParam(c, "id")
	if attemptID == uuid.Nil {
		return
	}

	var req answersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.attempts.SaveAnswers(c.Request.Context(), principal, attemptID, req.Answers); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Answers saved"})
}

func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}
	attemptID := parseUUIDParam(c, "id")
	if attemptID == uuid.Nil {
		return
	}

	var req answersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Submitting attempt", "attempt_id", attemptID)

	attempt, err := h.attempts.Submit(c.Request.Context(), principal, attemptID, req.Answers)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}
	attemptID := parseUUIDParam(c, "id")
	if attemptID == uuid.Nil {
		return
	}

	attempt, err := h.attempts.Get(c.Request.Context(), principal, attemptID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// GetSummary reports both the best score and the latest attempt for a
// student on a quiz. The student defaults to the caller.
func (h *AttemptHandler) GetSummary(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}
	quizID := parseUUIDParam(c, "id")
	if quizID == uuid.Nil {
		return
	}

	studentID := principal.UserID
	if raw := c.Query("student_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid student_id",
				Details: "must be a valid UUID",
			})
			return
		}
		studentID = parsed
	}

	summary, err := h.attempts.Summary(c.Request.Context(), principal, quizID, studentID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
