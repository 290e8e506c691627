package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/platefeed/backend/internal/service"
)

// IngredientHandler serves the read-only ingredient catalog.
type IngredientHandler struct {
	catalog *service.CatalogService
}

func NewIngredientHandler(catalog *service.CatalogService) *IngredientHandler {
	return &IngredientHandler{catalog: catalog}
}

func (h *IngredientHandler) RegisterRoutes(r *gin.RouterGroup) {
	ingredients := r.Group("/ingredients")
	{
		ingredients.GET("", h.List)
		ingredients.GET("/:id", h.Get)
	}
}

func (h *IngredientHandler) List(c *gin.Context) {
	ingredients, err := h.catalog.ListIngredients(c.Request.Context(), c.Query("name"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]IngredientResponse, 0, len(ingredients))
	for _, i := range ingredients {
		resp = append(resp, NewIngredientResponse(i))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *IngredientHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
		return
	}

	ingredient, err := h.catalog.GetIngredient(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewIngredientResponse(*ingredient))
}
