package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/platefeed/backend/internal/logger"
	"github.com/platefeed/backend/internal/models"
)

// UserUpdateInput carries the editable user profile fields; nil pointers
// keep the current value.
type UserUpdateInput struct {
	Email     *string
	Username  *string
	FirstName *string
	LastName  *string
}

type UserService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserService(db *gorm.DB, log *logger.Logger) *UserService {
	return &UserService{db: db, log: log}
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// List returns users paginated by (page, limit), plus the total count.
func (s *UserService) List(ctx context.Context, page, limit int) ([]models.User, int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Order("last_name, id")
	if limit > 0 {
		offset := 0
		if page > 1 {
			offset = (page - 1) * limit
		}
		query = query.Offset(offset).Limit(limit)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, count, nil
}

// Update edits profile fields. The actor must pass the CanEditUser
// predicate; a plain user may only edit themselves.
func (s *UserService) Update(ctx context.Context, actorID, targetID uint, in UserUpdateInput) (*models.User, error) {
	actor, err := s.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}
	target, err := s.Get(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !CanEditUser(actor, target) {
		return nil, ErrForbidden
	}

	if in.Username != nil && *in.Username == "me" {
		return nil, newValidationError("username", "this username is reserved")
	}

	if in.Email != nil {
		target.Email = *in.Email
	}
	if in.Username != nil {
		target.Username = *in.Username
	}
	if in.FirstName != nil {
		target.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		target.LastName = *in.LastName
	}

	if err := s.db.WithContext(ctx).Save(target).Error; err != nil {
		return nil, err
	}
	return target, nil
}
