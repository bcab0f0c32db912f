package person

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/pkg/httputil"
)

type Directory interface {
	Create(ctx context.Context, req *model.CreatePersonRequest) (*model.Person, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Person, error)
}

type Handler struct {
	service Directory
}

func NewHandler(service Directory) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	people := r.Group("/people")
	{
		people.POST("", h.CreatePerson)
		people.GET("/:id", h.GetPerson)
	}
}

func (h *Handler) CreatePerson(c *gin.Context) {
	var req model.CreatePersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBadRequest(c, err.Error())
		return
	}

	p, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err, nil)
		return
	}
	httputil.RespondWithCreated(c, p, nil)
}

func (h *Handler) GetPerson(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithBadRequest(c, "invalid person ID")
		return
	}

	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err, nil)
		return
	}
	httputil.RespondWithSuccess(c, p)
}
