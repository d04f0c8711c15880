package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"knowledgehub/internal/db"
	"knowledgehub/internal/models"
)

type FollowResult struct {
	Following bool `json:"following"`
	Count     int  `json:"count"`
}

type FollowService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewFollowService(db *gorm.DB, logger *zap.Logger) *FollowService {
	return &FollowService{db: db, logger: logger.Named("follow_service")}
}

// ToggleFollow subscribes the user to new answers on the post, or unsubscribes.
func (s *FollowService) ToggleFollow(ctx context.Context, user Identity, postID uint) (FollowResult, error) {
	if !user.Authenticated() {
		return FollowResult{}, ErrUnauthorized
	}

	var res FollowResult
	err := db.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		var post models.Post
		if err := lockPost(tx, postID, &post, "id", "followers_count"); err != nil {
			return err
		}

		var existing models.Follow
		err := tx.Where("user_id = ? AND post_id = ?", user.UserID, postID).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&models.Follow{UserID: user.UserID, PostID: postID}).Error; err != nil {
				return fmt.Errorf("failed to create follow: %w", err)
			}
			if err := tx.Model(&models.Post{}).Where("id = ?", postID).
				UpdateColumn("followers_count", gorm.Expr("followers_count + 1")).Error; err != nil {
				return fmt.Errorf("failed to increment followers_count: %w", err)
			}
			res = FollowResult{Following: true, Count: post.FollowersCount + 1}
		case err == nil:
			if err := tx.Delete(&existing).Error; err != nil {
				return fmt.Errorf("failed to delete follow: %w", err)
			}
			if err := tx.Model(&models.Post{}).Where("id = ?", postID).
				UpdateColumn("followers_count", gorm.Expr("GREATEST(followers_count - 1, 0)")).Error; err != nil {
				return fmt.Errorf("failed to decrement followers_count: %w", err)
			}
			res = FollowResult{Following: false, Count: max(post.FollowersCount-1, 0)}
		default:
			return fmt.Errorf("failed to load follow: %w", err)
		}
		return nil
	})
	if err != nil {
		return FollowResult{}, storeError("failed to toggle follow", err)
	}

	s.logger.Debug("Follow toggled",
		zap.Uint("user_id", user.UserID),
		zap.Uint("post_id", postID),
		zap.Bool("following", res.Following))
	return res, nil
}

// Followers implements FollowerStore.
func (s *FollowService) Followers(ctx context.Context, postID, excludeUserID uint) ([]Recipient, error) {
	var recipients []Recipient
	err := s.db.WithContext(ctx).
		Table("follows").
		Select("users.id AS user_id, users.username, users.email").
		Joins("JOIN users ON users.id = follows.user_id").
		Where("follows.post_id = ? AND follows.user_id <> ?", postID, excludeUserID).
		Order("follows.id").
		Scan(&recipients).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load followers: %w", err)
	}
	return recipients, nil
}
