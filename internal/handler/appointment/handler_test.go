package appointment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/service/appointment"
	apperrors "github.com/jwalitptl/clinic-scheduler/pkg/errors"
)

type fakeScheduler struct {
	result  *appointment.Result
	err     error
	listed  *model.AppointmentFilters
	from    string
	to      string
	created *model.CreateAppointmentRequest
	slots   []string
}

func (f *fakeScheduler) Create(_ context.Context, req *model.CreateAppointmentRequest) (*appointment.Result, error) {
	f.created = req
	return f.result, f.err
}

func (f *fakeScheduler) Update(context.Context, uuid.UUID, *model.UpdateAppointmentRequest) (*appointment.Result, error) {
	return f.result, f.err
}

func (f *fakeScheduler) Cancel(context.Context, uuid.UUID) (*appointment.Result, error) {
	return f.result, f.err
}

func (f *fakeScheduler) Confirm(context.Context, uuid.UUID) (*appointment.Result, error) {
	return f.result, f.err
}

func (f *fakeScheduler) Complete(context.Context, uuid.UUID) (*appointment.Result, error) {
	return f.result, f.err
}

func (f *fakeScheduler) Delete(context.Context, uuid.UUID) error {
	return f.err
}

func (f *fakeScheduler) Get(context.Context, uuid.UUID) (*model.Appointment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result.Appointment, nil
}

func (f *fakeScheduler) List(_ context.Context, from, to string, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	f.from, f.to, f.listed = from, to, filters
	return []*model.Appointment{}, f.err
}

func (f *fakeScheduler) LegalSlots(string) []string {
	return f.slots
}

func (f *fakeScheduler) AvailableSlots(context.Context, string, []uuid.UUID, string) ([]string, error) {
	return f.slots, f.err
}

type envelope struct {
	Status   string          `json:"status"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data"`
	Warnings []string        `json:"warnings"`
}

func setup(svc *fakeScheduler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func sampleResult() *appointment.Result {
	a := &model.Appointment{Date: "2026-02-02", Time: "09:00", Status: model.AppointmentStatusPending}
	a.ID = uuid.New()
	return &appointment.Result{Appointment: a}
}

func TestCreateAppointment(t *testing.T) {
	svc := &fakeScheduler{result: sampleResult()}
	svc.result.Warnings = []string{"no contact address for 1 recipient(s)"}
	r := setup(svc)

	body := map[string]interface{}{
		"patient_ids":  []string{uuid.NewString()},
		"provider_ids": []string{uuid.NewString()},
		"date":         "2026-02-02",
		"time":         "09:00",
	}
	w, env := do(t, r, http.MethodPost, "/api/v1/appointments", body)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "success", env.Status)
	assert.Equal(t, svc.result.Warnings, env.Warnings)
	require.NotNil(t, svc.created)
	assert.Equal(t, "09:00", svc.created.Time)
}

func TestCreateAppointment_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		result *appointment.Result
		code   int
		status string
	}{
		{"validation", apperrors.Validation("date", "is required"), nil, http.StatusBadRequest, "error"},
		{"conflict", &apperrors.ConflictError{AppointmentID: uuid.New()}, nil, http.StatusConflict, "error"},
		{"relation sync", &apperrors.RelationSyncError{Kind: "provider", Err: errors.New("boom")}, sampleResult(),
			http.StatusInternalServerError, "partial"},
		{"unexpected", errors.New("db down"), nil, http.StatusInternalServerError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setup(&fakeScheduler{result: tt.result, err: tt.err})
			w, env := do(t, r, http.MethodPost, "/api/v1/appointments", map[string]interface{}{})

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.status, env.Status)
			if tt.status == "partial" {
				assert.Contains(t, string(env.Data), tt.result.Appointment.ID.String())
			}
		})
	}
}

func TestGetAppointment(t *testing.T) {
	svc := &fakeScheduler{result: sampleResult()}
	r := setup(svc)

	w, env := do(t, r, http.MethodGet, "/api/v1/appointments/"+svc.result.Appointment.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), svc.result.Appointment.ID.String())

	w, _ = do(t, r, http.MethodGet, "/api/v1/appointments/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.err = apperrors.NotFound("appointment", nil)
	w, _ = do(t, r, http.MethodGet, "/api/v1/appointments/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListAppointments_Filters(t *testing.T) {
	svc := &fakeScheduler{}
	r := setup(svc)
	p1, p2 := uuid.New(), uuid.New()

	w, _ := do(t, r, http.MethodGet, "/api/v1/appointments?from=2026-02-01&to=2026-02-28&provider_id="+
		p1.String()+","+p2.String()+"&status=pending&status=CONFIRMED", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2026-02-01", svc.from)
	assert.Equal(t, "2026-02-28", svc.to)
	assert.Equal(t, []uuid.UUID{p1, p2}, svc.listed.ProviderIDs)
	assert.Equal(t, []model.AppointmentStatus{model.AppointmentStatusPending, model.AppointmentStatusConfirmed},
		svc.listed.Statuses)

	w, _ = do(t, r, http.MethodGet, "/api/v1/appointments?status=lost", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/v1/appointments?patient_id=xyz", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusActions(t *testing.T) {
	svc := &fakeScheduler{result: sampleResult()}
	r := setup(svc)
	id := svc.result.Appointment.ID.String()

	for _, action := range []string{"cancel", "confirm", "complete"} {
		w, env := do(t, r, http.MethodPost, "/api/v1/appointments/"+id+"/"+action, nil)
		assert.Equal(t, http.StatusOK, w.Code, action)
		assert.Equal(t, "success", env.Status, action)
	}

	svc.err = apperrors.Validation("status", "cannot move from completed to pending")
	svc.result = nil
	w, _ := do(t, r, http.MethodPost, "/api/v1/appointments/"+id+"/confirm", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteAppointment(t *testing.T) {
	svc := &fakeScheduler{}
	r := setup(svc)

	w, env := do(t, r, http.MethodDelete, "/api/v1/appointments/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", env.Status)
}

func TestSlots(t *testing.T) {
	svc := &fakeScheduler{slots: []string{"09:00", "10:00"}}
	r := setup(svc)

	w, env := do(t, r, http.MethodGet, "/api/v1/slots?date=2026-02-02", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"date":"2026-02-02","slots":["09:00","10:00"]}`, string(env.Data))

	w, _ = do(t, r, http.MethodGet, "/api/v1/slots", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = do(t, r, http.MethodGet, "/api/v1/slots/available?date=2026-02-02&provider_id="+uuid.NewString(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "09:00")
}
