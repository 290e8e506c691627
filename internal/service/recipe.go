package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/platefeed/backend/internal/logger"
	"github.com/platefeed/backend/internal/models"
)

// IngredientAmountInput is one submitted (ingredient id, amount) pair.
type IngredientAmountInput struct {
	ID     uint `json:"id"`
	Amount int  `json:"amount"`
}

// RecipeInput carries a create or update submission. Nil scalar pointers and
// nil slices mean "keep the current value" on update; on create every field
// must be present.
type RecipeInput struct {
	Name        *string
	Text        *string
	CookingTime *int
	Image       *string
	TagIDs      []uint
	Ingredients []IngredientAmountInput
}

// RecipeFilter narrows a recipe listing.
type RecipeFilter struct {
	AuthorID         *uint
	TagSlugs         []string
	FavoritedBy      *uint
	InShoppingCartOf *uint
	Page             int
	Limit            int
}

// RecipeService owns the recipe aggregate: the recipe row together with its
// tag set and ingredient-amount rows, written atomically.
type RecipeService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecipeService(db *gorm.DB, log *logger.Logger) *RecipeService {
	return &RecipeService{db: db, log: log}
}

// Create validates the submission and persists the recipe with its
// associations in a single transaction.
func (s *RecipeService) Create(ctx context.Context, authorID uint, in RecipeInput) (*models.Recipe, error) {
	name := stringValue(in.Name)
	text := stringValue(in.Text)
	cookingTime := intValue(in.CookingTime)

	if err := s.validate(ctx, name, text, cookingTime, in.TagIDs, in.Ingredients); err != nil {
		return nil, err
	}

	tags, err := s.loadTags(ctx, in.TagIDs)
	if err != nil {
		return nil, err
	}

	recipe := models.Recipe{
		AuthorID:    authorID,
		Name:        name,
		Text:        text,
		Image:       stringValue(in.Image),
		CookingTime: cookingTime,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&recipe).Error; err != nil {
			return err
		}
		if err := s.replaceIngredients(tx, recipe.ID, in.Ingredients); err != nil {
			return err
		}
		return tx.Model(&recipe).Association("Tags").Replace(tags)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("recipe created", "recipe_id", recipe.ID, "author_id", authorID)
	return s.Get(ctx, recipe.ID)
}

// Update patches scalar fields individually and replaces the ingredient and
// tag sets wholesale. Validation is identical to Create: the patched state
// must satisfy every rule.
func (s *RecipeService) Update(ctx context.Context, actorID, recipeID uint, in RecipeInput) (*models.Recipe, error) {
	recipe, err := s.Get(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if !CanModifyRecipe(actorID, recipe) {
		return nil, ErrForbidden
	}

	if in.Name != nil {
		recipe.Name = *in.Name
	}
	if in.Text != nil {
		recipe.Text = *in.Text
	}
	if in.CookingTime != nil {
		recipe.CookingTime = *in.CookingTime
	}
	if in.Image != nil {
		recipe.Image = *in.Image
	}

	tagIDs := in.TagIDs
	if tagIDs == nil {
		for _, t := range recipe.Tags {
			tagIDs = append(tagIDs, t.ID)
		}
	}
	ingredients := in.Ingredients
	if ingredients == nil {
		for _, ri := range recipe.Ingredients {
			ingredients = append(ingredients, IngredientAmountInput{ID: ri.IngredientID, Amount: ri.Amount})
		}
	}

	if err := s.validate(ctx, recipe.Name, recipe.Text, recipe.CookingTime, tagIDs, ingredients); err != nil {
		return nil, err
	}

	tags, err := s.loadTags(ctx, tagIDs)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		update := map[string]interface{}{
			"name":         recipe.Name,
			"text":         recipe.Text,
			"image":        recipe.Image,
			"cooking_time": recipe.CookingTime,
		}
		if err := tx.Model(&models.Recipe{}).Where("id = ?", recipeID).Updates(update).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := s.replaceIngredients(tx, recipeID, ingredients); err != nil {
			return err
		}
		return tx.Model(&models.Recipe{ID: recipeID}).Association("Tags").Replace(tags)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, recipeID)
}

// Delete removes the recipe and everything it owns: amounts, tag links and
// favorite/shopping-list markers.
func (s *RecipeService) Delete(ctx context.Context, actorID, recipeID uint) error {
	recipe, err := s.Get(ctx, recipeID)
	if err != nil {
		return err
	}
	if !CanModifyRecipe(actorID, recipe) {
		return ErrForbidden
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(recipe).Association("Tags").Clear(); err != nil {
			return err
		}
		for _, m := range []interface{}{
			&models.RecipeIngredient{},
			&models.Favorite{},
			&models.ShoppingListEntry{},
		} {
			if err := tx.Where("recipe_id = ?", recipeID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Recipe{}, recipeID).Error
	})
}

// Get loads the full aggregate with author, tags and ingredient amounts.
func (s *RecipeService) Get(ctx context.Context, recipeID uint) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Tags").
		Preload("Ingredients.Ingredient").
		First(&recipe, recipeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &recipe, nil
}

// List returns recipes newest-first, filtered and paginated, plus the total
// count before pagination.
func (s *RecipeService) List(ctx context.Context, filter RecipeFilter) ([]models.Recipe, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Recipe{})

	if filter.AuthorID != nil {
		query = query.Where("author_id = ?", *filter.AuthorID)
	}
	if len(filter.TagSlugs) > 0 {
		tagged := s.db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", filter.TagSlugs)
		query = query.Where("recipes.id IN (?)", tagged)
	}
	if filter.FavoritedBy != nil {
		marked := s.db.Table("favorites").
			Select("favorites.recipe_id").
			Where("favorites.user_id = ?", *filter.FavoritedBy)
		query = query.Where("recipes.id IN (?)", marked)
	}
	if filter.InShoppingCartOf != nil {
		marked := s.db.Table("shopping_list_entries").
			Select("shopping_list_entries.recipe_id").
			Where("shopping_list_entries.user_id = ?", *filter.InShoppingCartOf)
		query = query.Where("recipes.id IN (?)", marked)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	query = query.
		Preload("Author").
		Preload("Tags").
		Preload("Ingredients.Ingredient").
		Order("created_at DESC, id DESC")
	if filter.Limit > 0 {
		offset := 0
		if filter.Page > 1 {
			offset = (filter.Page - 1) * filter.Limit
		}
		query = query.Offset(offset).Limit(filter.Limit)
	}

	var recipes []models.Recipe
	if err := query.Find(&recipes).Error; err != nil {
		return nil, 0, err
	}
	return recipes, count, nil
}

// ListByAuthor returns the author's recipes newest-first, capped by limit
// when it is positive.
func (s *RecipeService) ListByAuthor(ctx context.Context, authorID uint, limit int) ([]models.Recipe, error) {
	query := s.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var recipes []models.Recipe
	if err := query.Find(&recipes).Error; err != nil {
		return nil, err
	}
	return recipes, nil
}

// CountByAuthor returns how many recipes the author has published.
func (s *RecipeService) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Recipe{}).Where("author_id = ?", authorID).Count(&count).Error
	return count, err
}

// validate applies the recipe submission rules in a fixed order so each
// failure is reported with a distinct message and nothing is persisted.
func (s *RecipeService) validate(ctx context.Context, name, text string, cookingTime int, tagIDs []uint, ingredients []IngredientAmountInput) error {
	if name == "" {
		return newValidationError("name", "this field is required")
	}
	if text == "" {
		return newValidationError("text", "this field is required")
	}
	if cookingTime < 1 {
		return newValidationError("cooking_time", "must be at least 1")
	}
	if len(tagIDs) == 0 {
		return newValidationError("tags", "at least one tag is required")
	}
	if len(ingredients) == 0 {
		return newValidationError("ingredients", "at least one ingredient is required")
	}

	seen := make(map[uint]bool, len(ingredients))
	for _, ia := range ingredients {
		if seen[ia.ID] {
			return newValidationError("ingredients", fmt.Sprintf("duplicate ingredient id %d", ia.ID))
		}
		seen[ia.ID] = true
	}

	ids := make([]uint, 0, len(ingredients))
	for _, ia := range ingredients {
		ids = append(ids, ia.ID)
	}
	var existing []uint
	if err := s.db.WithContext(ctx).Model(&models.Ingredient{}).Where("id IN ?", ids).Pluck("id", &existing).Error; err != nil {
		return err
	}
	if len(existing) != len(ids) {
		known := make(map[uint]bool, len(existing))
		for _, id := range existing {
			known[id] = true
		}
		var missing []uint
		for _, id := range ids {
			if !known[id] {
				missing = append(missing, id)
			}
		}
		sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
		return newValidationError("ingredients", fmt.Sprintf("unknown ingredient ids: %v", missing))
	}

	for _, ia := range ingredients {
		if ia.Amount < 1 {
			return newValidationError("ingredients", fmt.Sprintf("amount for ingredient %d must be a positive integer", ia.ID))
		}
	}
	return nil
}

// loadTags resolves the tag id list, rejecting unknown ids. Repeated ids
// collapse into one membership.
func (s *RecipeService) loadTags(ctx context.Context, tagIDs []uint) ([]models.Tag, error) {
	seen := make(map[uint]bool, len(tagIDs))
	unique := make([]uint, 0, len(tagIDs))
	for _, id := range tagIDs {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	var tags []models.Tag
	if err := s.db.WithContext(ctx).Where("id IN ?", unique).Find(&tags).Error; err != nil {
		return nil, err
	}
	if len(tags) != len(unique) {
		return nil, newValidationError("tags", "one or more tags do not exist")
	}
	return tags, nil
}

func (s *RecipeService) replaceIngredients(tx *gorm.DB, recipeID uint, ingredients []IngredientAmountInput) error {
	rows := make([]models.RecipeIngredient, 0, len(ingredients))
	for _, ia := range ingredients {
		rows = append(rows, models.RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: ia.ID,
			Amount:       ia.Amount,
		})
	}
	return tx.Create(&rows).Error
}

func stringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func intValue(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
