package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/platefeed/backend/internal/logger"
	"github.com/platefeed/backend/internal/models"
)

// FollowService manages the directed follow graph between users.
type FollowService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFollowService(db *gorm.DB, log *logger.Logger) *FollowService {
	return &FollowService{db: db, log: log}
}

// Follow creates a subscription edge. Self-follow and duplicate edges are
// rejected without creating anything.
func (s *FollowService) Follow(ctx context.Context, userID, authorID uint) error {
	if userID == authorID {
		return newValidationError("author", "you cannot follow yourself")
	}

	var author models.User
	if err := s.db.WithContext(ctx).First(&author, authorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	var existing models.Follow
	err := s.db.WithContext(ctx).Where("user_id = ? AND author_id = ?", userID, authorID).First(&existing).Error
	if err == nil {
		return newConflictError("you are already following this author")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return s.db.WithContext(ctx).Create(&models.Follow{UserID: userID, AuthorID: authorID}).Error
}

// Unfollow removes the edge; removing a missing edge is not-found.
func (s *FollowService) Unfollow(ctx context.Context, userID, authorID uint) error {
	res := s.db.WithContext(ctx).Where("user_id = ? AND author_id = ?", userID, authorID).Delete(&models.Follow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Subscriptions returns the authors the user follows, paginated.
func (s *FollowService) Subscriptions(ctx context.Context, userID uint, page, limit int) ([]models.User, int64, error) {
	base := s.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN follows ON follows.author_id = users.id").
		Where("follows.user_id = ?", userID)

	var count int64
	if err := base.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	query := base.Order("users.id")
	if limit > 0 {
		offset := 0
		if page > 1 {
			offset = (page - 1) * limit
		}
		query = query.Offset(offset).Limit(limit)
	}

	var authors []models.User
	if err := query.Find(&authors).Error; err != nil {
		return nil, 0, err
	}
	return authors, count, nil
}

// FollowingIDs returns the set of author ids the user follows, for
// annotating serialized users with is_subscribed.
func (s *FollowService) FollowingIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	following := make(map[uint]bool)
	if userID == 0 {
		return following, nil
	}
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&models.Follow{}).Where("user_id = ?", userID).Pluck("author_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		following[id] = true
	}
	return following, nil
}

// IsFollowing reports whether the edge (user, author) exists.
func (s *FollowService) IsFollowing(ctx context.Context, userID, authorID uint) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error
	return count > 0, err
}
