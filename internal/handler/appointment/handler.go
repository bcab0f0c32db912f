package appointment

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/service/appointment"
	"github.com/jwalitptl/clinic-scheduler/pkg/httputil"
)

// Scheduler is the part of the scheduling service the HTTP layer drives.
type Scheduler interface {
	Create(ctx context.Context, req *model.CreateAppointmentRequest) (*appointment.Result, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateAppointmentRequest) (*appointment.Result, error)
	Cancel(ctx context.Context, id uuid.UUID) (*appointment.Result, error)
	Confirm(ctx context.Context, id uuid.UUID) (*appointment.Result, error)
	Complete(ctx context.Context, id uuid.UUID) (*appointment.Result, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	List(ctx context.Context, from, to string, filters *model.AppointmentFilters) ([]*model.Appointment, error)
	LegalSlots(date string) []string
	AvailableSlots(ctx context.Context, date string, providerIDs []uuid.UUID, serviceType string) ([]string, error)
}

type Handler struct {
	service Scheduler
}

func NewHandler(service Scheduler) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.CreateAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PUT("/:id", h.UpdateAppointment)
		appointments.DELETE("/:id", h.DeleteAppointment)

		appointments.POST("/:id/cancel", h.statusAction(h.service.Cancel))
		appointments.POST("/:id/confirm", h.statusAction(h.service.Confirm))
		appointments.POST("/:id/complete", h.statusAction(h.service.Complete))
	}

	slots := r.Group("/slots")
	{
		slots.GET("", h.LegalSlots)
		slots.GET("/available", h.AvailableSlots)
	}
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBadRequest(c, err.Error())
		return
	}

	res, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err, resultData(res))
		return
	}
	httputil.RespondWithCreated(c, res, res.Warnings)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	a, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err, nil)
		return
	}
	httputil.RespondWithSuccess(c, a)
}

// ListAppointments accepts from/to dates plus repeatable provider_id,
// patient_id and status filters.
func (h *Handler) ListAppointments(c *gin.Context) {
	filters := &model.AppointmentFilters{}

	var ok bool
	if filters.ProviderIDs, ok = parseIDs(c, "provider_id"); !ok {
		return
	}
	if filters.PatientIDs, ok = parseIDs(c, "patient_id"); !ok {
		return
	}
	for _, s := range c.QueryArray("status") {
		status := model.AppointmentStatus(strings.ToLower(s))
		if !status.Valid() {
			httputil.RespondWithBadRequest(c, "invalid status: "+s)
			return
		}
		filters.Statuses = append(filters.Statuses, status)
	}

	appointments, err := h.service.List(c.Request.Context(), c.Query("from"), c.Query("to"), filters)
	if err != nil {
		httputil.RespondWithError(c, err, nil)
		return
	}
	httputil.RespondWithSuccess(c, appointments)
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req model.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBadRequest(c, err.Error())
		return
	}

	res, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err, resultData(res))
		return
	}
	httputil.RespondWithWarnings(c, res, res.Warnings)
}

func (h *Handler) statusAction(fn func(context.Context, uuid.UUID) (*appointment.Result, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		res, err := fn(c.Request.Context(), id)
		if err != nil {
			httputil.RespondWithError(c, err, resultData(res))
			return
		}
		httputil.RespondWithWarnings(c, res, res.Warnings)
	}
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "appointment deleted"})
}

func (h *Handler) LegalSlots(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		httputil.RespondWithBadRequest(c, "date is required")
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"date": date, "slots": h.service.LegalSlots(date)})
}

func (h *Handler) AvailableSlots(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		httputil.RespondWithBadRequest(c, "date is required")
		return
	}
	providerIDs, ok := parseIDs(c, "provider_id")
	if !ok {
		return
	}

	slots, err := h.service.AvailableSlots(c.Request.Context(), date, providerIDs, c.Query("service_type"))
	if err != nil {
		httputil.RespondWithError(c, err, nil)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"date": date, "slots": slots})
}

// resultData keeps a nil result from rendering as a typed nil.
func resultData(res *appointment.Result) interface{} {
	if res == nil {
		return nil
	}
	return res
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithBadRequest(c, "invalid appointment ID")
		return uuid.Nil, false
	}
	return id, true
}

func parseIDs(c *gin.Context, key string) ([]uuid.UUID, bool) {
	var ids []uuid.UUID
	for _, raw := range c.QueryArray(key) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				httputil.RespondWithBadRequest(c, "invalid "+key+": "+part)
				return nil, false
			}
			ids = append(ids, id)
		}
	}
	return ids, true
}
