package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/platefeed/backend/internal/api"
	"github.com/platefeed/backend/internal/logger"
	"github.com/platefeed/backend/internal/service"
	"github.com/platefeed/backend/internal/testhelpers"
)

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	auth   *service.AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testhelpers.SetupTestDB(t)
	redisClient := testhelpers.NewTestRedis(t)
	log := logger.NewNop()

	auth := service.NewAuthService(db, redisClient, "test-secret-key-for-tests", time.Hour, log)

	router := gin.New()
	api.RegisterRoutes(router, api.Deps{
		Auth:    auth,
		Images:  service.NewImageService(t.TempDir(), nil, log),
		Recipes: service.NewRecipeService(db, log),
		Markers: service.NewMarkerService(db, log),
		Follows: service.NewFollowService(db, log),
		Users:   service.NewUserService(db, log),
		Catalog: service.NewCatalogService(db, log),
		Log:     log,
	})

	return &testEnv{router: router, db: db, auth: auth}
}

// registerAndLogin creates an account through the auth service and returns a
// bearer token for it.
func (e *testEnv) registerAndLogin(t *testing.T, email, username string) (uint, string) {
	t.Helper()

	user, err := e.auth.Register(context.Background(), service.RegisterInput{
		Email:     email,
		Username:  username,
		FirstName: "Test",
		LastName:  "User",
		Password:  "password123",
	})
	require.NoError(t, err)

	token, err := e.auth.Login(context.Background(), email, "password123")
	require.NoError(t, err)
	return user.ID, token
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}
