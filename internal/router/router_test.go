package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"menusemanal/internal/app"
	"menusemanal/internal/auth"
)

const adminPassword = "Password@123"

func newApp(t *testing.T) (*app.App, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := auth.HashPassword(adminPassword)
	require.NoError(t, err)

	a, err := app.New(context.Background(), app.MemoryConfig("test-secret", hash), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	return a, a.Router()
}

func call(r http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	_, r := newApp(t)

	w := call(r, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminRoutesNeedToken(t *testing.T) {
	_, r := newApp(t)

	w := call(r, http.MethodPost, "/admin/orders/reset", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(r, http.MethodPost, "/auth/login", map[string]string{"password": adminPassword}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	w = call(r, http.MethodPost, "/admin/orders/reset", nil, login.Token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOrderToSummaryFlow(t *testing.T) {
	a, r := newApp(t)

	_, err := a.Menus.Save(context.Background(), map[string][]string{
		"Lunes":  {"Milanesa", "Ensalada"},
		"Martes": {"Tarta"},
	})
	require.NoError(t, err)

	w := call(r, http.MethodGet, "/menu", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	for _, user := range []string{"oriana", "Miguel"} {
		w = call(r, http.MethodPost, "/orders/"+user+"/increment",
			map[string]string{"day": "Lunes", "option": "Milanesa"}, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = call(r, http.MethodPost, "/orders/nadie/increment",
		map[string]string{"day": "Lunes", "option": "Milanesa"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = call(r, http.MethodGet, "/summary", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)

	w = call(r, http.MethodGet, "/users", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}
