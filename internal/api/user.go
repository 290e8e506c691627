package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/platefeed/backend/internal/logger"
	"github.com/platefeed/backend/internal/middleware"
	"github.com/platefeed/backend/internal/models"
	"github.com/platefeed/backend/internal/service"
)

// UserHandler serves user accounts, profiles and the follow graph.
type UserHandler struct {
	users   *service.UserService
	follows *service.FollowService
	recipes *service.RecipeService
	auth    service.IAuthService
	log     *logger.Logger
}

func NewUserHandler(
	users *service.UserService,
	follows *service.FollowService,
	recipes *service.RecipeService,
	auth service.IAuthService,
	log *logger.Logger,
) *UserHandler {
	return &UserHandler{users: users, follows: follows, recipes: recipes, auth: auth, log: log}
}

func (h *UserHandler) RegisterRoutes(r *gin.RouterGroup) {
	optional := middleware.OptionalAuthMiddleware(h.auth)
	required := middleware.AuthMiddleware(h.auth)

	users := r.Group("/users")
	{
		users.GET("", optional, h.List)
		users.POST("", h.Create)
		users.GET("/me", required, h.Me)
		users.POST("/set_password", required, h.SetPassword)
		users.GET("/subscriptions", required, h.Subscriptions)
		users.GET("/:id", optional, h.Get)
		users.PATCH("/:id", required, h.Update)
		users.POST("/:id/subscribe", required, h.Subscribe)
		users.DELETE("/:id/subscribe", required, h.Unsubscribe)
	}
}

type registerRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

type setPasswordRequest struct {
	NewPassword     string `json:"new_password"`
	CurrentPassword string `json:"current_password"`
}

type userPatchRequest struct {
	Email     *string `json:"email"`
	Username  *string `json:"username"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

func (h *UserHandler) List(c *gin.Context) {
	page, limit := parsePagination(c)

	users, count, err := h.users.List(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	viewerID, _ := middleware.CurrentUserID(c)
	following, err := h.follows.FollowingIDs(c.Request.Context(), viewerID)
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]UserResponse, 0, len(users))
	for i := range users {
		results = append(results, NewUserResponse(&users[i], following[users[i].ID]))
	}
	c.JSON(http.StatusOK, ListResponse{Count: count, Results: results})
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
		return
	}

	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	viewerID, _ := middleware.CurrentUserID(c)
	isSubscribed, err := h.follows.IsFollowing(c.Request.Context(), viewerID, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewUserResponse(user, isSubscribed))
}

func (h *UserHandler) Me(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	user, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewUserResponse(user, false))
}

func (h *UserHandler) Create(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": "invalid request body"})
		return
	}

	user, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"email":      user.Email,
		"id":         user.ID,
		"username":   user.Username,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
	})
}

func (h *UserHandler) Update(c *gin.Context) {
	actorID, _ := middleware.CurrentUserID(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
		return
	}

	var req userPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": "invalid request body"})
		return
	}

	user, err := h.users.Update(c.Request.Context(), actorID, id, service.UserUpdateInput{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewUserResponse(user, false))
}

func (h *UserHandler) SetPassword(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	var req setPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": "invalid request body"})
		return
	}

	if err := h.auth.SetPassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	authorID, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
		return
	}

	if err := h.follows.Follow(c.Request.Context(), userID, authorID); err != nil {
		respondError(c, err)
		return
	}

	author, err := h.users.Get(c.Request.Context(), authorID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.subscriptionResponse(c, author, h.recipesLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	authorID, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
		return
	}

	if err := h.follows.Unfollow(c.Request.Context(), userID, authorID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Subscriptions(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	page, limit := parsePagination(c)
	recipesLimit := h.recipesLimit(c)

	authors, count, err := h.follows.Subscriptions(c.Request.Context(), userID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]SubscriptionResponse, 0, len(authors))
	for i := range authors {
		resp, err := h.subscriptionResponse(c, &authors[i], recipesLimit)
		if err != nil {
			respondError(c, err)
			return
		}
		results = append(results, resp)
	}
	c.JSON(http.StatusOK, ListResponse{Count: count, Results: results})
}

// recipesLimit parses the recipes_limit query param. A value that is not a
// number is ignored rather than rejected.
func (h *UserHandler) recipesLimit(c *gin.Context) int {
	raw := c.Query("recipes_limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		h.log.Warn("ignoring non-numeric recipes_limit", "value", raw)
		return 0
	}
	return limit
}

func (h *UserHandler) subscriptionResponse(c *gin.Context, author *models.User, recipesLimit int) (SubscriptionResponse, error) {
	recipes, err := h.recipes.ListByAuthor(c.Request.Context(), author.ID, recipesLimit)
	if err != nil {
		return SubscriptionResponse{}, err
	}
	count, err := h.recipes.CountByAuthor(c.Request.Context(), author.ID)
	if err != nil {
		return SubscriptionResponse{}, err
	}

	preview := make([]RecipeShortResponse, 0, len(recipes))
	for _, r := range recipes {
		preview = append(preview, NewRecipeShortResponse(r))
	}
	return SubscriptionResponse{
		UserResponse: NewUserResponse(author, true),
		Recipes:      preview,
		RecipesCount: count,
	}, nil
}
