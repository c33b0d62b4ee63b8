package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/scalesync/internal/database"
)

func setupHealthTestDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "journal.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func getHealth(t *testing.T, controller *HealthController) (*httptest.ResponseRecorder, HealthResponse) {
	t.Helper()
	router := gin.New()
	router.GET("/health", controller.Status)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	var response HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return w, response
}

func TestHealthController_Status(t *testing.T) {
	okPing := func(context.Context) error { return nil }

	t.Run("returns healthy when journal and MiAll are reachable", func(t *testing.T) {
		w, response := getHealth(t, NewHealthController(setupHealthTestDB(t), okPing, "1.0.0"))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "1.0.0", response.Version)
		assert.Equal(t, "ok", response.Checks["journal"])
		assert.Equal(t, "ok", response.Checks["miall"])
		assert.Contains(t, response.Time, "T")
	})

	t.Run("reports unconfigured dependencies", func(t *testing.T) {
		w, response := getHealth(t, NewHealthController(nil, nil, "1.0.0"))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "not configured", response.Checks["journal"])
		assert.Equal(t, "not configured", response.Checks["miall"])
	})

	t.Run("returns unhealthy when journal connection is closed", func(t *testing.T) {
		db := setupHealthTestDB(t)
		db.Close()

		w, response := getHealth(t, NewHealthController(db, okPing, "1.0.0"))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "unhealthy", response.Status)
		assert.Contains(t, response.Checks["journal"], "error")
	})

	t.Run("returns unhealthy when MiAll is unreachable", func(t *testing.T) {
		failing := func(context.Context) error { return errors.New("login timeout expired") }

		w, response := getHealth(t, NewHealthController(setupHealthTestDB(t), failing, ""))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "error: login timeout expired", response.Checks["miall"])
		assert.Equal(t, "ok", response.Checks["journal"])
	})
}

func TestHealthResponse_OmitsEmptyVersion(t *testing.T) {
	response := HealthResponse{
		Status: "healthy",
		Time:   "2024-01-01T12:00:00Z",
		Checks: map[string]string{},
	}

	jsonBytes, err := json.Marshal(response)
	require.NoError(t, err)

	assert.NotContains(t, string(jsonBytes), "version")
}
