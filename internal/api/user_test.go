package api_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platefeed/backend/internal/api"
	"github.com/platefeed/backend/internal/testhelpers"
)

func TestUserEndpoints_RegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/v1/users", "", map[string]interface{}{
		"email":      "alice@example.com",
		"username":   "alice",
		"first_name": "Alice",
		"last_name":  "Smith",
		"password":   "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "alice")
	assert.NotContains(t, w.Body.String(), "password123")

	w = env.request(t, http.MethodPost, "/api/v1/auth/token/login", "", map[string]interface{}{
		"email":    "alice@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	decodeJSON(t, w, &body)
	assert.NotEmpty(t, body["auth_token"])
}

func TestUserEndpoints_ReservedUsername(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/v1/users", "", map[string]interface{}{
		"email":      "me@example.com",
		"username":   "me",
		"first_name": "Me",
		"last_name":  "Myself",
		"password":   "password123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserEndpoints_MeAndLogout(t *testing.T) {
	env := newTestEnv(t)
	userID, token := env.registerAndLogin(t, "alice@example.com", "alice")

	w := env.request(t, http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var me api.UserResponse
	decodeJSON(t, w, &me)
	assert.Equal(t, userID, me.ID)
	assert.Equal(t, "alice", me.Username)

	w = env.request(t, http.MethodPost, "/api/v1/auth/token/logout", token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	// The revoked token no longer authenticates.
	w = env.request(t, http.MethodGet, "/api/v1/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserEndpoints_MeRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserEndpoints_SetPassword(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.registerAndLogin(t, "alice@example.com", "alice")

	w := env.request(t, http.MethodPost, "/api/v1/users/set_password", token, map[string]interface{}{
		"current_password": "wrong",
		"new_password":     "newpassword456",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.request(t, http.MethodPost, "/api/v1/users/set_password", token, map[string]interface{}{
		"current_password": "password123",
		"new_password":     "newpassword456",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestUserEndpoints_SubscriptionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.registerAndLogin(t, "alice@example.com", "alice")
	bobID, bobToken := env.registerAndLogin(t, "bob@example.com", "bob")

	tag := testhelpers.CreateTestTag(t, env.db, "Breakfast", "#E26C2D", "breakfast")
	flour := testhelpers.CreateTestIngredient(t, env.db, "flour", "g")
	w := env.request(t, http.MethodPost, "/api/v1/recipes", bobToken, createRecipePayload(tag.ID, flour.ID))
	require.Equal(t, http.StatusCreated, w.Code)

	subscribeURL := fmt.Sprintf("/api/v1/users/%d/subscribe", bobID)

	w = env.request(t, http.MethodPost, subscribeURL, aliceToken, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var sub api.SubscriptionResponse
	decodeJSON(t, w, &sub)
	assert.Equal(t, bobID, sub.ID)
	assert.True(t, sub.IsSubscribed)
	assert.EqualValues(t, 1, sub.RecipesCount)
	require.Len(t, sub.Recipes, 1)
	assert.Equal(t, "Pancakes", sub.Recipes[0].Name)

	// Duplicate subscription is rejected.
	w = env.request(t, http.MethodPost, subscribeURL, aliceToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.request(t, http.MethodGet, "/api/v1/users/subscriptions", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = env.request(t, http.MethodDelete, subscribeURL, aliceToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.request(t, http.MethodDelete, subscribeURL, aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUserEndpoints_RecipesLimitIgnoredWhenNotNumeric(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.registerAndLogin(t, "alice@example.com", "alice")
	bobID, bobToken := env.registerAndLogin(t, "bob@example.com", "bob")

	tag := testhelpers.CreateTestTag(t, env.db, "Breakfast", "#E26C2D", "breakfast")
	flour := testhelpers.CreateTestIngredient(t, env.db, "flour", "g")
	w := env.request(t, http.MethodPost, "/api/v1/recipes", bobToken, createRecipePayload(tag.ID, flour.ID))
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/users/%d/subscribe", bobID), aliceToken, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.request(t, http.MethodGet, "/api/v1/users/subscriptions?recipes_limit=abc", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Pancakes")
}

func TestUserEndpoints_SelfFollowRejected(t *testing.T) {
	env := newTestEnv(t)
	aliceID, aliceToken := env.registerAndLogin(t, "alice@example.com", "alice")

	w := env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/users/%d/subscribe", aliceID), aliceToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserEndpoints_PatchForbiddenForOtherUsers(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.registerAndLogin(t, "alice@example.com", "alice")
	bobID, _ := env.registerAndLogin(t, "bob@example.com", "bob")

	w := env.request(t, http.MethodPatch, fmt.Sprintf("/api/v1/users/%d", bobID), aliceToken,
		map[string]interface{}{"first_name": "Hacked"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUserEndpoints_ListIsPublic(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t, "alice@example.com", "alice")
	env.registerAndLogin(t, "bob@example.com", "bob")

	w := env.request(t, http.MethodGet, "/api/v1/users", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)
}
