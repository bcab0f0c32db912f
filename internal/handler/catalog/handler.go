package catalog

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/pkg/httputil"
)

type ServiceTypes interface {
	Create(ctx context.Context, req *model.CreateServiceTypeRequest) (*model.ServiceType, error)
	List(ctx context.Context) ([]*model.ServiceType, error)
}

type Handler struct {
	service ServiceTypes
}

func NewHandler(service ServiceTypes) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	services := r.Group("/service-types")
	{
		services.POST("", h.CreateServiceType)
		services.GET("", h.ListServiceTypes)
	}
}

func (h *Handler) CreateServiceType(c *gin.Context) {
	var req model.CreateServiceTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBadRequest(c, err.Error())
		return
	}

	st, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err, nil)
		return
	}
	httputil.RespondWithCreated(c, st, nil)
}

func (h *Handler) ListServiceTypes(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err, nil)
		return
	}
	if list == nil {
		list = []*model.ServiceType{}
	}
	httputil.RespondWithSuccess(c, list)
}
