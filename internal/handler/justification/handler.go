package justification

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/service/appointment"
	"github.com/jwalitptl/clinic-scheduler/pkg/httputil"
)

type Justifier interface {
	Justify(ctx context.Context, req *model.CreateJustificationRequest) (*model.Justification, *appointment.Result, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Justification, error)
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.Justification, error)
	Delete(ctx context.Context, id, authorID uuid.UUID) error
}

type Handler struct {
	service Justifier
}

func NewHandler(service Justifier) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	justifications := r.Group("/justifications")
	{
		justifications.POST("", h.CreateJustification)
		justifications.GET("/:id", h.GetJustification)
		justifications.DELETE("/:id", h.DeleteJustification)
	}
	r.GET("/appointments/:id/justifications", h.ListJustifications)
}

// justified is the body returned when a justification is filed.
type justified struct {
	Justification *model.Justification `json:"justification"`
	Result        *appointment.Result  `json:"result,omitempty"`
}

func (h *Handler) CreateJustification(c *gin.Context) {
	var req model.CreateJustificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBadRequest(c, err.Error())
		return
	}

	j, res, err := h.service.Justify(c.Request.Context(), &req)
	if err != nil {
		var data interface{}
		if j != nil {
			data = justified{Justification: j, Result: res}
		}
		httputil.RespondWithError(c, err, data)
		return
	}

	var warnings []string
	if res != nil {
		warnings = res.Warnings
	}
	httputil.RespondWithCreated(c, justified{Justification: j, Result: res}, warnings)
}

func (h *Handler) GetJustification(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithBadRequest(c, "invalid justification ID")
		return
	}

	j, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err, nil)
		return
	}
	httputil.RespondWithSuccess(c, j)
}

func (h *Handler) ListJustifications(c *gin.Context) {
	appointmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithBadRequest(c, "invalid appointment ID")
		return
	}

	list, err := h.service.ListByAppointment(c.Request.Context(), appointmentID)
	if err != nil {
		httputil.RespondWithError(c, err, nil)
		return
	}
	if list == nil {
		list = []*model.Justification{}
	}
	httputil.RespondWithSuccess(c, list)
}

// DeleteJustification takes the caller's id from author_id; when present
// only the author may delete.
func (h *Handler) DeleteJustification(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithBadRequest(c, "invalid justification ID")
		return
	}
	authorID := uuid.Nil
	if raw := c.Query("author_id"); raw != "" {
		if authorID, err = uuid.Parse(raw); err != nil {
			httputil.RespondWithBadRequest(c, "invalid author_id")
			return
		}
	}

	if err := h.service.Delete(c.Request.Context(), id, authorID); err != nil {
		httputil.RespondWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "justification deleted"})
}
