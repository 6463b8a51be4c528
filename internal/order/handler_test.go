package order

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc, _, _ := newTestService(t)
	h := NewHandler(svc)

	r := gin.New()
	r.GET("/orders/:user", h.Week)
	r.POST("/orders/:user/increment", h.Increment)
	r.POST("/orders/:user/comments", h.AddComment)
	return r
}

func TestHandler_IncrementAndRead(t *testing.T) {
	r := setupRouter(t)

	body, _ := json.Marshal(Mutation{Day: "Lunes", Option: "Opción 1"})
	req := httptest.NewRequest(http.MethodPost, "/orders/ana/increment", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/ana", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got UserWeek
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Total)
}

func TestHandler_Errors(t *testing.T) {
	r := setupRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/nadie", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	body, _ := json.Marshal(CommentInput{Day: "Lunes", Text: "sin sal"})
	req := httptest.NewRequest(http.MethodPost, "/orders/ana/comments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/orders/ana/increment", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
