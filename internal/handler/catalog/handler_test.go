package catalog

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/clinic-scheduler/internal/repository/memory"
	"github.com/jwalitptl/clinic-scheduler/internal/service/catalog"
)

func TestServiceTypes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc := catalog.NewService(memory.NewStore().ServiceTypes(), catalog.Config{}, nil)
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/service-types", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusCreated, post(`{"name":"Consultation","duration_minutes":60,"price":150}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"name":"Consultation","duration_minutes":60}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"name":"Zero","duration_minutes":0}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`not json`).Code)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/service-types", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Consultation"`)
}
