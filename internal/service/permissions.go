package service

import (
	"github.com/platefeed/backend/internal/models"
)

// Permission predicates are stateless functions of (actor, target); they are
// evaluated per request and never consult shared configuration.

// CanModifyRecipe reports whether the actor may update or delete the recipe.
// Only the author may mutate a recipe; superusers get no special treatment.
func CanModifyRecipe(actorID uint, recipe *models.Recipe) bool {
	return recipe != nil && actorID == recipe.AuthorID
}

// CanEditUser reports whether the actor may edit another user's account.
func CanEditUser(actor *models.User, target *models.User) bool {
	if actor == nil || target == nil {
		return false
	}
	return actor.IsSuperuser || actor.ID == target.ID
}
