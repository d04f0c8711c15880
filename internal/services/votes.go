package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"knowledgehub/internal/db"
	"knowledgehub/internal/models"
	"knowledgehub/internal/utils"
)

type VoteAction string

const (
	VoteAdded   VoteAction = "added"
	VoteRemoved VoteAction = "removed"
)

// VoteResult carries the counter as committed.
type VoteResult struct {
	Action VoteAction `json:"action"`
	Count  int        `json:"count"`
	PostID uint       `json:"post_id"`
}

// voteTarget is the locked row a vote applies to.
type voteTarget struct {
	typ      models.TargetType
	id       uint
	postID   uint
	authorID uint
	count    int
}

func (t voteTarget) table() any {
	if t.typ == models.TargetComment {
		return &models.Comment{}
	}
	return &models.Post{}
}

func (t voteTarget) events() (added, removed ReputationEvent) {
	if t.typ == models.TargetComment {
		return EventAnswerUpvoted, EventAnswerUpvoteRemoved
	}
	return EventQuestionUpvoted, EventQuestionUpvoteRemoved
}

type VoteService struct {
	db         *gorm.DB
	reputation *ReputationService
	limiter    VoteLimiter
	ranking    TrendingScheduler
	logger     *zap.Logger
}

// NewVoteService wires the coordinator. limiter and ranking may be nil.
func NewVoteService(db *gorm.DB, reputation *ReputationService, limiter VoteLimiter, ranking TrendingScheduler, logger *zap.Logger) *VoteService {
	return &VoteService{
		db:         db,
		reputation: reputation,
		limiter:    limiter,
		ranking:    ranking,
		logger:     logger.Named("vote_service"),
	}
}

// ToggleVote adds the voter's upvote on the target, or removes it if present.
// Nothing is written unless every check before the transaction passes.
func (s *VoteService) ToggleVote(ctx context.Context, voter Identity, targetType models.TargetType, targetID uint) (VoteResult, error) {
	if !voter.Authenticated() {
		return VoteResult{}, ErrUnauthorized
	}
	if targetType != models.TargetPost && targetType != models.TargetComment {
		return VoteResult{}, ErrInvalidTarget
	}
	if err := s.checkTarget(ctx, targetType, targetID); err != nil {
		return VoteResult{}, err
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, voter.UserID)
		if err != nil {
			// 限流后端故障时放行
			s.logger.Warn("Vote limiter unavailable", zap.Uint("user_id", voter.UserID), zap.Error(err))
		} else if !allowed {
			return VoteResult{}, ErrRateLimited
		}
	}

	var res VoteResult
	err := db.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		target, err := lockTarget(tx, targetType, targetID)
		if err != nil {
			return err
		}

		var existing models.Vote
		err = tx.Where("user_id = ? AND target_type = ? AND target_id = ?", voter.UserID, targetType, targetID).
			Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			res, err = s.addVote(ctx, tx, voter, target)
		case err == nil:
			res, err = s.removeVote(ctx, tx, voter, target, existing)
		}
		return err
	})
	if err != nil {
		return VoteResult{}, storeError("failed to toggle vote", err)
	}

	s.logger.Debug("Vote toggled",
		zap.Uint("user_id", voter.UserID),
		zap.String("target_type", string(targetType)),
		zap.Uint("target_id", targetID),
		zap.String("action", string(res.Action)),
		zap.Int("count", res.Count))

	if s.ranking != nil {
		s.ranking.ScheduleUpdate(res.PostID)
	}
	return res, nil
}

func (s *VoteService) addVote(ctx context.Context, tx *gorm.DB, voter Identity, t voteTarget) (VoteResult, error) {
	points, err := s.reputation.Points(ctx, tx, voter.UserID)
	if err != nil {
		return VoteResult{}, err
	}
	rewarded, err := s.reputation.RewardVoteCast(ctx, tx, voter.UserID, t.postID)
	if err != nil {
		return VoteResult{}, err
	}

	vote := models.Vote{
		UserID:     voter.UserID,
		TargetType: t.typ,
		TargetID:   t.id,
		Weight:     utils.TierFor(points).Weight,
		Rewarded:   rewarded,
	}
	if err := tx.Create(&vote).Error; err != nil {
		return VoteResult{}, fmt.Errorf("failed to create vote: %w", err)
	}

	if err := tx.Model(t.table()).Where("id = ?", t.id).
		UpdateColumn("upvote_count", gorm.Expr("upvote_count + 1")).Error; err != nil {
		return VoteResult{}, fmt.Errorf("failed to increment upvote_count: %w", err)
	}
	count := t.count + 1

	added, _ := t.events()
	if t.authorID != voter.UserID {
		if _, err := s.reputation.ApplyDelta(ctx, tx, t.authorID, added, t.postID); err != nil {
			return VoteResult{}, err
		}
	}
	if t.typ == models.TargetComment && count == 1 {
		if err := s.reputation.AdjustCounter(ctx, tx, t.authorID, CounterHelpfulAnswers, 1); err != nil {
			return VoteResult{}, err
		}
	}

	return VoteResult{Action: VoteAdded, Count: count, PostID: t.postID}, nil
}

func (s *VoteService) removeVote(ctx context.Context, tx *gorm.DB, voter Identity, t voteTarget, vote models.Vote) (VoteResult, error) {
	if err := tx.Delete(&vote).Error; err != nil {
		return VoteResult{}, fmt.Errorf("failed to delete vote: %w", err)
	}

	if err := tx.Model(t.table()).Where("id = ?", t.id).
		UpdateColumn("upvote_count", gorm.Expr("GREATEST(upvote_count - 1, 0)")).Error; err != nil {
		return VoteResult{}, fmt.Errorf("failed to decrement upvote_count: %w", err)
	}
	count := max(t.count-1, 0)

	_, removed := t.events()
	if t.authorID != voter.UserID {
		if _, err := s.reputation.ApplyDelta(ctx, tx, t.authorID, removed, t.postID); err != nil {
			return VoteResult{}, err
		}
	}
	if vote.Rewarded {
		if _, err := s.reputation.ApplyDelta(ctx, tx, voter.UserID, EventVoteCastRemoved, t.postID); err != nil {
			return VoteResult{}, err
		}
	}
	if t.typ == models.TargetComment && t.count > 0 && count == 0 {
		if err := s.reputation.AdjustCounter(ctx, tx, t.authorID, CounterHelpfulAnswers, -1); err != nil {
			return VoteResult{}, err
		}
	}

	return VoteResult{Action: VoteRemoved, Count: count, PostID: t.postID}, nil
}

// checkTarget is a plain read; the transaction re-checks under lock.
func (s *VoteService) checkTarget(ctx context.Context, typ models.TargetType, id uint) error {
	tx := s.db.WithContext(ctx)
	var n int64
	var err error
	if typ == models.TargetComment {
		err = tx.Model(&models.Comment{}).Where("id = ?", id).Count(&n).Error
	} else {
		err = tx.Model(&models.Post{}).Where("id = ?", id).Count(&n).Error
	}
	if err != nil {
		return transientError("failed to look up vote target", err)
	}
	if n == 0 {
		return notFoundFor(typ)
	}
	return nil
}

// lockTarget takes a row lock that serializes every toggle on the target.
func lockTarget(tx *gorm.DB, typ models.TargetType, id uint) (voteTarget, error) {
	locked := tx.Clauses(clause.Locking{Strength: "UPDATE"})
	t := voteTarget{typ: typ, id: id}

	var err error
	if typ == models.TargetComment {
		var c models.Comment
		err = locked.Select("id", "post_id", "user_id", "upvote_count").Take(&c, id).Error
		t.postID, t.authorID, t.count = c.PostID, c.UserID, c.UpvoteCount
	} else {
		var p models.Post
		err = locked.Select("id", "user_id", "upvote_count").Take(&p, id).Error
		t.postID, t.authorID, t.count = p.ID, p.UserID, p.UpvoteCount
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return t, notFoundFor(typ)
	}
	if err != nil {
		return t, fmt.Errorf("failed to lock vote target: %w", err)
	}
	return t, nil
}

func notFoundFor(typ models.TargetType) error {
	if typ == models.TargetComment {
		return ErrCommentNotFound
	}
	return ErrPostNotFound
}

// RecordView bumps the view counter of a post.
func (s *VoteService) RecordView(ctx context.Context, postID uint) error {
	res := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
	if res.Error != nil {
		return transientError("failed to record view", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}
