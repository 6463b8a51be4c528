package roster

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	r, err := Parse([]byte("users:\n  - Ana\n  - beto\n  - ana\n  - ' '\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"ana", "beto"}, r.Names())
	assert.True(t, r.Contains("ANA "))
	assert.False(t, r.Contains("oriana"))
}

func TestParse_EmptyFallsBack(t *testing.T) {
	r, err := Parse([]byte("users: []\n"))
	require.NoError(t, err)
	assert.True(t, r.Contains("oriana"))
	assert.Len(t, r.Names(), len(builtin))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte("users: [carla]\n"), 0o600))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"carla"}, r.Names())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	r, err = Load("")
	require.NoError(t, err)
	assert.True(t, r.Contains("tomi"))
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/users", New([]string{"b", "a"}).Handler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Users []string `json:"users"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"a", "b"}, body.Users)
}
