package audit

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/pkg/httputil"
)

const defaultLimit = 100

type Trail interface {
	List(ctx context.Context, filters *model.AuditLogFilters) ([]*model.AuditLog, error)
}

type Handler struct {
	service Trail
}

func NewHandler(service Trail) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	audit := r.Group("/audit")
	{
		audit.GET("/logs", h.ListLogs)
		audit.GET("/logs/entity/:type/:id", h.GetEntityLogs)
	}
}

func (h *Handler) ListLogs(c *gin.Context) {
	filters, ok := pageFilters(c)
	if !ok {
		return
	}
	filters.EntityType = c.Query("entity_type")
	filters.Action = c.Query("action")
	h.list(c, filters)
}

func (h *Handler) GetEntityLogs(c *gin.Context) {
	entityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithBadRequest(c, "invalid entity_id")
		return
	}
	filters, ok := pageFilters(c)
	if !ok {
		return
	}
	filters.EntityType = c.Param("type")
	filters.EntityID = &entityID
	h.list(c, filters)
}

func (h *Handler) list(c *gin.Context, filters *model.AuditLogFilters) {
	logs, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err, nil)
		return
	}
	if logs == nil {
		logs = []*model.AuditLog{}
	}
	httputil.RespondWithSuccess(c, logs)
}

func pageFilters(c *gin.Context) (*model.AuditLogFilters, bool) {
	filters := &model.AuditLogFilters{Limit: defaultLimit}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.RespondWithBadRequest(c, "invalid limit")
			return nil, false
		}
		filters.Limit = n
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.RespondWithBadRequest(c, "invalid offset")
			return nil, false
		}
		filters.Offset = n
	}
	return filters, true
}
