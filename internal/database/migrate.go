package database

import (
	"gorm.io/gorm"

	"github.com/platefeed/backend/internal/models"
)

// RunMigrations creates or updates the schema for every model.
func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.Tag{},
		&models.Ingredient{},
		&models.Recipe{},
		&models.RecipeIngredient{},
		&models.Favorite{},
		&models.ShoppingListEntry{},
	)
}
