package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"knowledgehub/internal/db"
	"knowledgehub/internal/models"
	"knowledgehub/internal/utils"
)

var ErrPostNotOpen = &Error{Kind: KindConflict, Msg: "post is not open for answers"}

// AnswerState describes a post's accepted answer after a transition.
type AnswerState struct {
	PostID           uint  `json:"post_id"`
	AcceptedAnswerID *uint `json:"accepted_answer_id"`
	Changed          bool  `json:"changed"`
}

type AnswerService struct {
	db         *gorm.DB
	reputation *ReputationService
	ranking    TrendingScheduler
	notifier   *Notifier
	logger     *zap.Logger
	now        func() time.Time
}

// NewAnswerService wires the answer flow. ranking and notifier may be nil.
func NewAnswerService(db *gorm.DB, reputation *ReputationService, ranking TrendingScheduler, notifier *Notifier, logger *zap.Logger) *AnswerService {
	return &AnswerService{
		db:         db,
		reputation: reputation,
		ranking:    ranking,
		notifier:   notifier,
		logger:     logger.Named("answer_service"),
		now:        time.Now,
	}
}

// CreateAnswer posts a new answer and notifies the post's followers after commit.
func (s *AnswerService) CreateAnswer(ctx context.Context, author Identity, postID uint, content string) (*models.Comment, error) {
	if !author.Authenticated() {
		return nil, ErrUnauthorized
	}
	content = strings.TrimSpace(utils.SanitizeContent(content))
	if content == "" {
		return nil, ErrEmptyContent
	}

	var (
		comment models.Comment
		post    models.Post
	)
	err := db.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := lockPost(tx, postID, &post, "id", "title", "status"); err != nil {
			return err
		}
		if post.Status != models.PostStatusApproved {
			return ErrPostNotOpen
		}

		comment = models.Comment{PostID: postID, UserID: author.UserID, Content: content}
		if err := tx.Create(&comment).Error; err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}

		if err := tx.Model(&models.Post{}).Where("id = ?", postID).UpdateColumns(map[string]any{
			"comment_count":    gorm.Expr("comment_count + 1"),
			"last_activity_at": s.now(),
		}).Error; err != nil {
			return fmt.Errorf("failed to update post counters: %w", err)
		}

		return s.reputation.AdjustCounter(ctx, tx, author.UserID, CounterAnswersGiven, 1)
	})
	if err != nil {
		return nil, storeError("failed to create answer", err)
	}

	s.logger.Info("Answer created",
		zap.Uint("post_id", postID),
		zap.Uint("comment_id", comment.ID),
		zap.Uint("user_id", author.UserID))

	if s.ranking != nil {
		s.ranking.ScheduleUpdate(postID)
	}
	if s.notifier != nil {
		s.notifier.NotifyFollowers(postID, NewAnswer{
			PostTitle:    post.Title,
			CommentID:    comment.ID,
			AnswererID:   author.UserID,
			AnswererName: author.Username,
			Summary:      utils.Excerpt(content),
		})
	}
	return &comment, nil
}

// Accept marks commentID as the accepted answer of postID, unmarking any
// previously accepted answer in the same transaction.
func (s *AnswerService) Accept(ctx context.Context, actor Identity, postID, commentID uint) (AnswerState, error) {
	if !actor.Authenticated() {
		return AnswerState{}, ErrUnauthorized
	}

	var state AnswerState
	err := db.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		var post models.Post
		if err := lockPost(tx, postID, &post, "id", "user_id", "accepted_answer_id"); err != nil {
			return err
		}
		if post.UserID != actor.UserID {
			return ErrNotAuthor
		}

		var comment models.Comment
		if err := lockComment(tx, commentID, &comment); err != nil {
			return err
		}
		if comment.PostID != post.ID {
			return ErrAnswerNotOnPost
		}

		state = AnswerState{PostID: post.ID, AcceptedAnswerID: post.AcceptedAnswerID}
		if comment.IsAcceptedAnswer {
			return nil
		}

		var previous []models.Comment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("post_id = ? AND is_accepted_answer", post.ID).
			Find(&previous).Error; err != nil {
			return fmt.Errorf("failed to load accepted answer: %w", err)
		}
		// 先取消旧的采纳，部分唯一索引不允许同时存在两个
		for _, prev := range previous {
			if err := s.clearAccepted(ctx, tx, post, prev); err != nil {
				return err
			}
		}

		now := s.now()
		if err := tx.Model(&models.Comment{}).Where("id = ?", comment.ID).UpdateColumns(map[string]any{
			"is_accepted_answer": true,
			"accepted_at":        now,
		}).Error; err != nil {
			return fmt.Errorf("failed to mark accepted answer: %w", err)
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).UpdateColumns(map[string]any{
			"accepted_answer_id": comment.ID,
			"last_activity_at":   now,
		}).Error; err != nil {
			return fmt.Errorf("failed to update post: %w", err)
		}

		if comment.UserID != post.UserID {
			if _, err := s.reputation.ApplyDelta(ctx, tx, comment.UserID, EventAnswerAccepted, post.ID); err != nil {
				return err
			}
			if err := s.reputation.AdjustCounter(ctx, tx, comment.UserID, CounterAcceptedAnswers, 1); err != nil {
				return err
			}
		}

		id := comment.ID
		state.AcceptedAnswerID = &id
		state.Changed = true
		return nil
	})
	if err != nil {
		return AnswerState{}, storeError("failed to accept answer", err)
	}

	if state.Changed {
		s.logger.Info("Answer accepted", zap.Uint("post_id", postID), zap.Uint("comment_id", commentID))
		if s.ranking != nil {
			s.ranking.ScheduleUpdate(postID)
		}
	}
	return state, nil
}

// Unaccept clears the accepted flag from commentID.
func (s *AnswerService) Unaccept(ctx context.Context, actor Identity, commentID uint) (AnswerState, error) {
	if !actor.Authenticated() {
		return AnswerState{}, ErrUnauthorized
	}

	var state AnswerState
	err := db.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		// 按 帖子 -> 回答 的顺序加锁，与 Accept 保持一致
		var postIDs []uint
		if err := tx.Model(&models.Comment{}).Where("id = ?", commentID).Pluck("post_id", &postIDs).Error; err != nil {
			return fmt.Errorf("failed to load comment: %w", err)
		}
		if len(postIDs) == 0 {
			return ErrCommentNotFound
		}

		var post models.Post
		if err := lockPost(tx, postIDs[0], &post, "id", "user_id", "accepted_answer_id"); err != nil {
			return err
		}
		if post.UserID != actor.UserID {
			return ErrNotAuthor
		}

		var comment models.Comment
		if err := lockComment(tx, commentID, &comment); err != nil {
			return err
		}
		if !comment.IsAcceptedAnswer {
			return ErrNotAccepted
		}

		if err := s.clearAccepted(ctx, tx, post, comment); err != nil {
			return err
		}
		if err := tx.Model(&models.Post{}).
			Where("id = ? AND accepted_answer_id = ?", post.ID, comment.ID).
			UpdateColumn("accepted_answer_id", nil).Error; err != nil {
			return fmt.Errorf("failed to clear accepted answer: %w", err)
		}

		state = AnswerState{PostID: post.ID, Changed: true}
		return nil
	})
	if err != nil {
		return AnswerState{}, storeError("failed to unaccept answer", err)
	}

	s.logger.Info("Answer unaccepted", zap.Uint("post_id", state.PostID), zap.Uint("comment_id", commentID))
	if s.ranking != nil {
		s.ranking.ScheduleUpdate(state.PostID)
	}
	return state, nil
}

// clearAccepted unmarks one answer and reverses its author's reward.
func (s *AnswerService) clearAccepted(ctx context.Context, tx *gorm.DB, post models.Post, c models.Comment) error {
	if err := tx.Model(&models.Comment{}).Where("id = ?", c.ID).UpdateColumns(map[string]any{
		"is_accepted_answer": false,
		"accepted_at":        nil,
	}).Error; err != nil {
		return fmt.Errorf("failed to unmark accepted answer: %w", err)
	}
	if c.UserID == post.UserID {
		return nil
	}
	if _, err := s.reputation.ApplyDelta(ctx, tx, c.UserID, EventAnswerUnaccepted, post.ID); err != nil {
		return err
	}
	return s.reputation.AdjustCounter(ctx, tx, c.UserID, CounterAcceptedAnswers, -1)
}

func lockPost(tx *gorm.DB, id uint, post *models.Post, columns ...string) error {
	q := tx.Clauses(clause.Locking{Strength: "UPDATE"})
	if len(columns) > 0 {
		q = q.Select(columns)
	}
	err := q.Take(post, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrPostNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock post: %w", err)
	}
	return nil
}

func lockComment(tx *gorm.DB, id uint, comment *models.Comment) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "post_id", "user_id", "is_accepted_answer").
		Take(comment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCommentNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock comment: %w", err)
	}
	return nil
}
