package person

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-scheduler/internal/repository/memory"
	"github.com/jwalitptl/clinic-scheduler/internal/service/person"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(person.NewService(memory.NewStore().People(), nil)).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestPeople(t *testing.T) {
	r := setupRouter()

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/people", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}
	get := func(id string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/people/"+id, nil))
		return w
	}

	w := post(`{"role":"provider","name":"  Dr. Ana  ","email":"ana@clinic.test"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data struct {
			ID   uuid.UUID `json:"id"`
			Name string    `json:"name"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Dr. Ana", created.Data.Name)

	w = get(created.Data.ID.String())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"ana@clinic.test"`)

	assert.Equal(t, http.StatusBadRequest, post(`{"role":"nurse","name":"X"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"role":"patient","name":"X","email":"nope"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{`).Code)

	assert.Equal(t, http.StatusNotFound, get(uuid.New().String()).Code)
	assert.Equal(t, http.StatusBadRequest, get("not-a-uuid").Code)
}
