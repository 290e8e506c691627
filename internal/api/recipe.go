package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/platefeed/backend/internal/logger"
	"github.com/platefeed/backend/internal/middleware"
	"github.com/platefeed/backend/internal/models"
	"github.com/platefeed/backend/internal/service"
)

// RecipeHandler serves the recipe collection, the per-user markers and the
// shopping list download.
type RecipeHandler struct {
	recipes *service.RecipeService
	markers *service.MarkerService
	follows *service.FollowService
	images  service.IImageService
	auth    service.IAuthService
	limiter *middleware.RateLimiter
	log     *logger.Logger
}

func NewRecipeHandler(
	recipes *service.RecipeService,
	markers *service.MarkerService,
	follows *service.FollowService,
	images service.IImageService,
	auth service.IAuthService,
	limiter *middleware.RateLimiter,
	log *logger.Logger,
) *RecipeHandler {
	return &RecipeHandler{
		recipes: recipes,
		markers: markers,
		follows: follows,
		images:  images,
		auth:    auth,
		limiter: limiter,
		log:     log,
	}
}

func (h *RecipeHandler) RegisterRoutes(r *gin.RouterGroup) {
	optional := middleware.OptionalAuthMiddleware(h.auth)
	required := middleware.AuthMiddleware(h.auth)

	recipes := r.Group("/recipes")
	{
		recipes.GET("", optional, h.List)
		recipes.GET("/download_shopping_cart", required, h.DownloadShoppingCart)
		recipes.GET("/:id", optional, h.Get)

		create := []gin.HandlerFunc{required}
		if h.limiter != nil {
			create = append(create, h.limiter.RateLimitMiddleware())
		}
		create = append(create, h.Create)
		recipes.POST("", create...)

		recipes.PATCH("/:id", required, h.Update)
		recipes.DELETE("/:id", required, h.Delete)

		recipes.POST("/:id/favorite", required, h.AddFavorite)
		recipes.DELETE("/:id/favorite", required, h.RemoveFavorite)
		recipes.POST("/:id/shopping_cart", required, h.AddToShoppingCart)
		recipes.DELETE("/:id/shopping_cart", required, h.RemoveFromShoppingCart)
	}
}

type recipeCreateRequest struct {
	Ingredients []service.IngredientAmountInput `json:"ingredients"`
	Tags        []uint                          `json:"tags"`
	Image       string                          `json:"image"`
	Name        string                          `json:"name"`
	Text        string                          `json:"text"`
	CookingTime int                             `json:"cooking_time"`
}

type recipePatchRequest struct {
	Ingredients []service.IngredientAmountInput `json:"ingredients"`
	Tags        []uint                          `json:"tags"`
	Image       *string                         `json:"image"`
	Name        *string                         `json:"name"`
	Text        *string                         `json:"text"`
	CookingTime *int                            `json:"cooking_time"`
}

func (h *RecipeHandler) List(c *gin.Context) {
	page, limit := parsePagination(c)
	filter := service.RecipeFilter{Page: page, Limit: limit}

	if author := c.Query("author"); author != "" {
		if id, err := strconv.ParseUint(author, 10, 32); err == nil {
			authorID := uint(id)
			filter.AuthorID = &authorID
		}
	}
	if slugs := c.QueryArray("tags"); len(slugs) > 0 {
		filter.TagSlugs = slugs
	}
	viewerID, _ := middleware.CurrentUserID(c)
	if viewerID != 0 {
		if c.Query("is_favorited") == "1" {
			filter.FavoritedBy = &viewerID
		}
		if c.Query("is_in_shopping_cart") == "1" {
			filter.InShoppingCartOf = &viewerID
		}
	}

	recipes, count, err := h.recipes.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	results, err := h.serializeRecipes(c, recipes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse{Count: count, Results: results})
}

func (h *RecipeHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
		return
	}

	recipe, err := h.recipes.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.serializeRecipes(c, []models.Recipe{*recipe})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp[0])
}

func (h *RecipeHandler) Create(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	input, err := h.bindCreate(c)
	if err != nil {
		respondError(c, err)
		return
	}

	recipe, err := h.recipes.Create(c.Request.Context(), userID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.serializeRecipes(c, []models.Recipe{*recipe})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp[0])
}

func (h *RecipeHandler) Update(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
		return
	}

	var req recipePatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": "invalid request body"})
		return
	}

	input := service.RecipeInput{
		Name:        req.Name,
		Text:        req.Text,
		CookingTime: req.CookingTime,
		TagIDs:      req.Tags,
		Ingredients: req.Ingredients,
	}
	if req.Image != nil && *req.Image != "" {
		stored, err := h.images.StoreDataURI(c.Request.Context(), *req.Image)
		if err != nil {
			respondError(c, err)
			return
		}
		input.Image = &stored
	}

	recipe, err := h.recipes.Update(c.Request.Context(), userID, id, input)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.serializeRecipes(c, []models.Recipe{*recipe})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp[0])
}

func (h *RecipeHandler) Delete(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
		return
	}

	if err := h.recipes.Delete(c.Request.Context(), userID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) AddFavorite(c *gin.Context) {
	h.addMarker(c, h.markers.AddFavorite)
}

func (h *RecipeHandler) RemoveFavorite(c *gin.Context) {
	h.removeMarker(c, h.markers.RemoveFavorite)
}

func (h *RecipeHandler) AddToShoppingCart(c *gin.Context) {
	h.addMarker(c, h.markers.AddToShoppingList)
}

func (h *RecipeHandler) RemoveFromShoppingCart(c *gin.Context) {
	h.removeMarker(c, h.markers.RemoveFromShoppingList)
}

func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	items, err := h.markers.ShoppingList(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	body := service.RenderShoppingList(items)
	c.Header("Content-Disposition", `attachment; filename="shopping_list.txt"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(body))
}

func (h *RecipeHandler) addMarker(c *gin.Context, add func(ctx context.Context, userID, recipeID uint) error) {
	userID, _ := middleware.CurrentUserID(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
		return
	}

	if err := add(c.Request.Context(), userID, id); err != nil {
		respondError(c, err)
		return
	}

	recipe, err := h.recipes.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewRecipeShortResponse(*recipe))
}

func (h *RecipeHandler) removeMarker(c *gin.Context, remove func(ctx context.Context, userID, recipeID uint) error) {
	userID, _ := middleware.CurrentUserID(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
		return
	}

	if err := remove(c.Request.Context(), userID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func newBadRequest(msg string) error {
	return &service.ValidationError{Message: msg}
}

// bindCreate accepts either a JSON body with a base64 data URI image or a
// multipart form with a file upload.
func (h *RecipeHandler) bindCreate(c *gin.Context) (service.RecipeInput, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		return h.bindMultipart(c)
	}

	var req recipeCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return service.RecipeInput{}, newBadRequest("invalid request body")
	}

	input := service.RecipeInput{
		Name:        &req.Name,
		Text:        &req.Text,
		CookingTime: &req.CookingTime,
		TagIDs:      req.Tags,
		Ingredients: req.Ingredients,
	}
	if req.Image != "" {
		stored, err := h.images.StoreDataURI(c.Request.Context(), req.Image)
		if err != nil {
			return service.RecipeInput{}, err
		}
		input.Image = &stored
	}
	return input, nil
}

func (h *RecipeHandler) bindMultipart(c *gin.Context) (service.RecipeInput, error) {
	name := c.PostForm("name")
	text := c.PostForm("text")
	cookingTime, _ := strconv.Atoi(c.PostForm("cooking_time"))

	var tags []uint
	if raw := c.PostForm("tags"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			return service.RecipeInput{}, newBadRequest("tags must be a JSON array of ids")
		}
	}
	var ingredients []service.IngredientAmountInput
	if raw := c.PostForm("ingredients"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &ingredients); err != nil {
			return service.RecipeInput{}, newBadRequest("ingredients must be a JSON array")
		}
	}

	input := service.RecipeInput{
		Name:        &name,
		Text:        &text,
		CookingTime: &cookingTime,
		TagIDs:      tags,
		Ingredients: ingredients,
	}

	if fileHeader, err := c.FormFile("image"); err == nil {
		stored, err := h.images.StoreUpload(c.Request.Context(), fileHeader)
		if err != nil {
			return service.RecipeInput{}, err
		}
		input.Image = &stored
	}
	return input, nil
}

// serializeRecipes annotates recipes with the viewer's marker and follow
// state in two batched lookups.
func (h *RecipeHandler) serializeRecipes(c *gin.Context, recipes []models.Recipe) ([]RecipeResponse, error) {
	viewerID, _ := middleware.CurrentUserID(c)

	ids := make([]uint, 0, len(recipes))
	for _, r := range recipes {
		ids = append(ids, r.ID)
	}

	favorited := map[uint]bool{}
	inCart := map[uint]bool{}
	following := map[uint]bool{}
	if viewerID != 0 {
		var err error
		favorited, inCart, err = h.markers.Flags(c.Request.Context(), viewerID, ids)
		if err != nil {
			return nil, err
		}
		following, err = h.follows.FollowingIDs(c.Request.Context(), viewerID)
		if err != nil {
			return nil, err
		}
	}

	resp := make([]RecipeResponse, 0, len(recipes))
	for i := range recipes {
		r := &recipes[i]
		resp = append(resp, NewRecipeResponse(r, favorited[r.ID], inCart[r.ID], following[r.AuthorID]))
	}
	return resp, nil
}
