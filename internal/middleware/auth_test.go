package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/platefeed/backend/internal/middleware"
	"github.com/platefeed/backend/internal/service"
)

type stubValidator struct {
	userID uint
	err    error
}

func (s *stubValidator) ValidateToken(token string) (*service.TokenClaims, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.TokenClaims{UserID: s.userID}, nil
}

func newAuthRouter(validator middleware.TokenValidator, optional bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	mw := middleware.AuthMiddleware(validator)
	if optional {
		mw = middleware.OptionalAuthMiddleware(validator)
	}
	router.GET("/probe", mw, func(c *gin.Context) {
		userID, ok := middleware.CurrentUserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "authenticated": ok})
	})
	return router
}

func TestAuthMiddleware_RejectsMissingHeader(t *testing.T) {
	router := newAuthRouter(&stubValidator{userID: 7}, false)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_RejectsMalformedHeader(t *testing.T) {
	router := newAuthRouter(&stubValidator{userID: 7}, false)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Token abcdef")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_RejectsInvalidToken(t *testing.T) {
	router := newAuthRouter(&stubValidator{err: service.ErrInvalidToken}, false)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer bad-token")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_SetsUserID(t *testing.T) {
	router := newAuthRouter(&stubValidator{userID: 7}, false)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer good-token")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":7`)
}

func TestOptionalAuthMiddleware_PassesAnonymous(t *testing.T) {
	router := newAuthRouter(&stubValidator{err: service.ErrInvalidToken}, true)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)
}

func TestOptionalAuthMiddleware_IgnoresBadToken(t *testing.T) {
	router := newAuthRouter(&stubValidator{err: service.ErrInvalidToken}, true)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer bad-token")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)
}
