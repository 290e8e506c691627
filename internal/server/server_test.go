package server_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platefeed/backend/config"
	"github.com/platefeed/backend/internal/logger"
	"github.com/platefeed/backend/internal/server"
	"github.com/platefeed/backend/internal/testhelpers"
)

func TestServer_HealthAndRoutes(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	redisClient := testhelpers.NewTestRedis(t)

	cfg := &config.Config{
		ServerPort: "8080",
		Mode:       "development",
		JWTSecret:  "test-secret-key-for-tests",
		TokenTTL:   time.Hour,
		MediaDir:   t.TempDir(),
	}

	srv, err := server.New(cfg, db, redisClient, logger.NewNop())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// Public catalog routes are mounted.
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/tags", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// Protected routes reject anonymous requests.
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
