package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/edupulse/assessment-engine/internal/services"
	"github.com/edupulse/assessment-engine/internal/utils"
)

type GuardianHandler struct {
	BaseHandler
	enrollments services.EnrollmentService
}

func NewGuardianHandler(enrollments services.EnrollmentService, logger utils.Logger) *GuardianHandler {
	return &GuardianHandler{
		BaseHandler: NewBaseHandler(logger),
		enrollments: enrollments,
	}
}

func (h *GuardianHandler) RequestLink(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}

	var req services.GuardianLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	link, err := h.enrollments.RequestGuardianLink(c.Request.Context(), principal, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, link)
}

type decideLinkRequest struct {
	Accept bool `json:"accept"`
}

func (h *GuardianHandler) DecideLink(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}
	linkID := parseUUIDParam(c, "id")
	if linkID == uuid.Nil {
		return
	}

	var req decideLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	link, err := h.enrollments.DecideGuardianLink(c.Request.Context(), principal, linkID, req.Accept)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, link)
}

func (h *GuardianHandler) ListLinks(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}

	links, err := h.enrollments.ListGuardianLinks(c.Request.Context(), principal)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, links)
}
