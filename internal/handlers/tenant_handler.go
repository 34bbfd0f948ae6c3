package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/edupulse/assessment-engine/internal/services"
	"github.com/edupulse/assessment-engine/internal/utils"
)

type TenantHandler struct {
	BaseHandler
	retention     services.RetentionService
	notifications services.NotificationService
}

func NewTenantHandler(retention services.RetentionService, notifications services.NotificationService, logger utils.Logger) *TenantHandler {
	return &TenantHandler{
		BaseHandler:   NewBaseHandler(logger),
		retention:     retention,
		notifications: notifications,
	}
}

// RequestDeletion starts the tenant's deletion grace window.
func (h *TenantHandler) RequestDeletion(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}
	tenantID := parseUUIDParam(c, "id")
	if tenantID == uuid.Nil {
		return
	}

	h.LogRequest(c, "Tenant deletion requested", "tenant_id", tenantID)

	if err := h.retention.RequestTenantDeletion(c.Request.Context(), principal, tenantID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Deletion grace window started"})
}

func (h *TenantHandler) ListNotifications(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	notifications, err := h.notifications.ListForUser(c.Request.Context(), principal.UserID, limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, notifications)
}

func (h *TenantHandler) MarkNotificationRead(c *gin.Context) {
	principal := getPrincipal(c)
	if principal == nil {
		return
	}
	id := parseUUIDParam(c, "id")
	if id == uuid.Nil {
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), principal.UserID, id); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Notification marked read"})
}
