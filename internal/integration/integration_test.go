package integration_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platefeed/backend/internal/logger"
	"github.com/platefeed/backend/internal/service"
	"github.com/platefeed/backend/internal/testhelpers"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// Exercises the full recipe flow against a real PostgreSQL instance,
// including the duplicate-pair constraint and the aggregation query.
func TestRecipeFlowAgainstPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := testhelpers.SetupPostgres(t)
	log := logger.NewNop()
	recipes := service.NewRecipeService(db, log)
	markers := service.NewMarkerService(db, log)
	follows := service.NewFollowService(db, log)
	ctx := context.Background()

	chef := testhelpers.CreateTestUser(t, db, "chef@example.com", "chef", "password123")
	shopper := testhelpers.CreateTestUser(t, db, "shopper@example.com", "shopper", "password123")
	tag := testhelpers.CreateTestTag(t, db, "Dinner", "#2D5FE2", "dinner")
	salt := testhelpers.CreateTestIngredient(t, db, "salt", "g")
	milk := testhelpers.CreateTestIngredient(t, db, "milk", "ml")

	soup, err := recipes.Create(ctx, chef.ID, service.RecipeInput{
		Name:        strPtr("Soup"),
		Text:        strPtr("Boil."),
		CookingTime: intPtr(30),
		TagIDs:      []uint{tag.ID},
		Ingredients: []service.IngredientAmountInput{
			{ID: salt.ID, Amount: 5},
			{ID: milk.ID, Amount: 100},
		},
	})
	require.NoError(t, err)

	porridge, err := recipes.Create(ctx, chef.ID, service.RecipeInput{
		Name:        strPtr("Porridge"),
		Text:        strPtr("Simmer."),
		CookingTime: intPtr(15),
		TagIDs:      []uint{tag.ID},
		Ingredients: []service.IngredientAmountInput{{ID: salt.ID, Amount: 3}},
	})
	require.NoError(t, err)

	require.NoError(t, markers.AddToShoppingList(ctx, shopper.ID, soup.ID))
	require.NoError(t, markers.AddToShoppingList(ctx, shopper.ID, porridge.ID))

	items, err := markers.ShoppingList(ctx, shopper.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "milk", items[0].Name)
	assert.Equal(t, 100, items[0].TotalAmount)
	assert.Equal(t, "salt", items[1].Name)
	assert.Equal(t, 8, items[1].TotalAmount)

	require.NoError(t, follows.Follow(ctx, shopper.ID, chef.ID))
	authors, count, err := follows.Subscriptions(ctx, shopper.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	require.Len(t, authors, 1)
	assert.Equal(t, chef.ID, authors[0].ID)

	// A rejected update leaves the stored aggregate untouched.
	_, err = recipes.Update(ctx, chef.ID, soup.ID, service.RecipeInput{
		Ingredients: []service.IngredientAmountInput{{ID: salt.ID, Amount: 0}},
	})
	require.Error(t, err)

	stored, err := recipes.Get(ctx, soup.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Ingredients, 2)
}
