package notification

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/pkg/httputil"
)

// Inbox is the provider-facing view of notification records.
type Inbox interface {
	ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*model.Notification, error)
	Dismiss(ctx context.Context, id uuid.UUID) error
}

type Handler struct {
	service Inbox
}

func NewHandler(service Inbox) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/providers/:id/notifications", h.ListNotifications)
	r.DELETE("/notifications/:id", h.DismissNotification)
}

func (h *Handler) ListNotifications(c *gin.Context) {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithBadRequest(c, "invalid provider ID")
		return
	}

	records, err := h.service.ListByRecipient(c.Request.Context(), providerID)
	if err != nil {
		httputil.RespondWithError(c, err, nil)
		return
	}
	if records == nil {
		records = []*model.Notification{}
	}
	httputil.RespondWithSuccess(c, records)
}

func (h *Handler) DismissNotification(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithBadRequest(c, "invalid notification ID")
		return
	}

	if err := h.service.Dismiss(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "notification dismissed"})
}
