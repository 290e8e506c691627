package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/platefeed/backend/internal/logger"
	"github.com/platefeed/backend/internal/middleware"
	"github.com/platefeed/backend/internal/service"
)

// Deps bundles everything the HTTP layer needs.
type Deps struct {
	Auth    service.IAuthService
	Images  service.IImageService
	Recipes *service.RecipeService
	Markers *service.MarkerService
	Follows *service.FollowService
	Users   *service.UserService
	Catalog *service.CatalogService
	Limiter *middleware.RateLimiter
	Log     *logger.Logger
}

// RegisterRoutes mounts the full API surface under /api/v1.
func RegisterRoutes(router *gin.Engine, deps Deps) {
	router.GET("/health", HealthCheck)

	v1 := router.Group("/api/v1")

	NewAuthHandler(deps.Auth, deps.Log).RegisterRoutes(v1)
	NewUserHandler(deps.Users, deps.Follows, deps.Recipes, deps.Auth, deps.Log).RegisterRoutes(v1)
	NewTagHandler(deps.Catalog).RegisterRoutes(v1)
	NewIngredientHandler(deps.Catalog).RegisterRoutes(v1)
	NewRecipeHandler(deps.Recipes, deps.Markers, deps.Follows, deps.Images, deps.Auth, deps.Limiter, deps.Log).RegisterRoutes(v1)
}

// HealthCheck reports service liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
