package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/platefeed/backend/internal/logger"
	"github.com/platefeed/backend/internal/models"
)

// ShoppingListItem is one aggregated line of a user's purchase list.
type ShoppingListItem struct {
	Name            string
	MeasurementUnit string
	TotalAmount     int
}

// MarkerService manages the per-user favorite and shopping-list markers and
// the shopping list aggregation built on top of them.
type MarkerService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMarkerService(db *gorm.DB, log *logger.Logger) *MarkerService {
	return &MarkerService{db: db, log: log}
}

// AddFavorite marks the recipe as a favorite of the user. Adding an existing
// marker is a conflict, not a second row.
func (s *MarkerService) AddFavorite(ctx context.Context, userID, recipeID uint) error {
	if err := s.recipeExists(ctx, recipeID); err != nil {
		return err
	}
	var existing models.Favorite
	err := s.db.WithContext(ctx).Where("user_id = ? AND recipe_id = ?", userID, recipeID).First(&existing).Error
	if err == nil {
		return newConflictError("recipe is already in favorites")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return s.db.WithContext(ctx).Create(&models.Favorite{UserID: userID, RecipeID: recipeID}).Error
}

// RemoveFavorite deletes the marker; removing a missing one is not-found.
func (s *MarkerService) RemoveFavorite(ctx context.Context, userID, recipeID uint) error {
	res := s.db.WithContext(ctx).Where("user_id = ? AND recipe_id = ?", userID, recipeID).Delete(&models.Favorite{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddToShoppingList marks the recipe for purchase.
func (s *MarkerService) AddToShoppingList(ctx context.Context, userID, recipeID uint) error {
	if err := s.recipeExists(ctx, recipeID); err != nil {
		return err
	}
	var existing models.ShoppingListEntry
	err := s.db.WithContext(ctx).Where("user_id = ? AND recipe_id = ?", userID, recipeID).First(&existing).Error
	if err == nil {
		return newConflictError("recipe is already in the shopping list")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return s.db.WithContext(ctx).Create(&models.ShoppingListEntry{UserID: userID, RecipeID: recipeID}).Error
}

// RemoveFromShoppingList deletes the marker; missing marker is not-found.
func (s *MarkerService) RemoveFromShoppingList(ctx context.Context, userID, recipeID uint) error {
	res := s.db.WithContext(ctx).Where("user_id = ? AND recipe_id = ?", userID, recipeID).Delete(&models.ShoppingListEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Flags returns the favorite and shopping-list membership of the given
// recipes for one user, for annotating serialized recipes.
func (s *MarkerService) Flags(ctx context.Context, userID uint, recipeIDs []uint) (favorited, inCart map[uint]bool, err error) {
	favorited = make(map[uint]bool)
	inCart = make(map[uint]bool)
	if len(recipeIDs) == 0 {
		return favorited, inCart, nil
	}

	var favIDs []uint
	if err := s.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &favIDs).Error; err != nil {
		return nil, nil, err
	}
	for _, id := range favIDs {
		favorited[id] = true
	}

	var cartIDs []uint
	if err := s.db.WithContext(ctx).Model(&models.ShoppingListEntry{}).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &cartIDs).Error; err != nil {
		return nil, nil, err
	}
	for _, id := range cartIDs {
		inCart[id] = true
	}
	return favorited, inCart, nil
}

// ShoppingList sums ingredient amounts across every recipe in the user's
// shopping list, grouped by ingredient and sorted by name.
func (s *MarkerService) ShoppingList(ctx context.Context, userID uint) ([]ShoppingListItem, error) {
	var items []ShoppingListItem
	err := s.db.WithContext(ctx).
		Table("recipe_ingredients").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS total_amount").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Joins("JOIN shopping_list_entries ON shopping_list_entries.recipe_id = recipe_ingredients.recipe_id").
		Where("shopping_list_entries.user_id = ?", userID).
		Group("ingredients.id, ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// RenderShoppingList formats the aggregated list as the plain-text
// attachment body, one "<name> - <total> <unit>." line per ingredient.
func RenderShoppingList(items []ShoppingListItem) string {
	var b strings.Builder
	b.WriteString("Shopping list:\n")
	for _, item := range items {
		fmt.Fprintf(&b, "%s - %d %s.\n", item.Name, item.TotalAmount, item.MeasurementUnit)
	}
	return b.String()
}

func (s *MarkerService) recipeExists(ctx context.Context, recipeID uint) error {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).Select("id").First(&recipe, recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
