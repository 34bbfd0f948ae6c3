package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edupulse/assessment-engine/internal/services"
	"github.com/edupulse/assessment-engine/internal/utils"
)

type AuthHandler struct {
	BaseHandler
	directory services.DirectoryService
}

func NewAuthHandler(directory services.DirectoryService, logger utils.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		directory:   directory,
	}
}

// Login authenticates with email and password and returns a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.directory.Authenticate(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SignupTenant bootstraps an organization tenant with its owner account.
func (h *AuthHandler) SignupTenant(c *gin.Context) {
	var req services.TenantSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Tenant signup", "tenant_name", req.TenantName)

	resp, err := h.directory.SignupTenant(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// SignupSoloTeacher creates a teacher account without a tenant.
func (h *AuthHandler) SignupSoloTeacher(c *gin.Context) {
	var req services.SoloTeacherSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	teacher, err := h.directory.SignupSoloTeacher(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, teacher)
}

// SignupUser creates a user inside an existing tenant.
func (h *AuthHandler) SignupUser(c *gin.Context) {
	var req services.UserSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	user, err := h.directory.SignupUser(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}
