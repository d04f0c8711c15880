package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"knowledgehub/internal/models"
	"knowledgehub/internal/utils"
)

type ReputationEvent string

// 积分事件
const (
	EventAnswerUpvoted         ReputationEvent = "answer_upvoted"
	EventAnswerUpvoteRemoved   ReputationEvent = "answer_upvote_removed"
	EventAnswerAccepted        ReputationEvent = "answer_accepted"
	EventAnswerUnaccepted      ReputationEvent = "answer_unaccepted"
	EventQuestionUpvoted       ReputationEvent = "question_upvoted"
	EventQuestionUpvoteRemoved ReputationEvent = "question_upvote_removed"
	EventVoteCast              ReputationEvent = "vote_cast"
	EventVoteCastRemoved       ReputationEvent = "vote_cast_removed"
)

var eventDeltas = map[ReputationEvent]int{
	EventAnswerUpvoted:         10,
	EventAnswerUpvoteRemoved:   -10,
	EventAnswerAccepted:        25,
	EventAnswerUnaccepted:      -25,
	EventQuestionUpvoted:       5,
	EventQuestionUpvoteRemoved: -5,
	EventVoteCast:              1,
	EventVoteCastRemoved:       -1,
}

// Delta returns the nominal point change for an event.
func (e ReputationEvent) Delta() int {
	return eventDeltas[e]
}

// PrivilegedSeedPoints is the lower bound of the Regular tier. Contributors,
// moderators and admins start there so their first votes count at 1.0x.
const PrivilegedSeedPoints = 101

// DefaultDailyVoteRewardLimit 每天前 20 次投票有参与积分
const DefaultDailyVoteRewardLimit = 20

type CounterField string

const (
	CounterAcceptedAnswers CounterField = "accepted_answers_count"
	CounterHelpfulAnswers  CounterField = "helpful_answers_count"
	CounterQuestionsAsked  CounterField = "questions_asked"
	CounterAnswersGiven    CounterField = "answers_given"
)

var ErrUserNotFound = &Error{Kind: KindNotFound, Msg: "user not found"}

// Standing is a read-only view of a user's reputation.
type Standing struct {
	models.ReputationRecord
	Tier utils.Tier `json:"tier"`
}

type ReputationService struct {
	db               *gorm.DB
	logger           *zap.Logger
	dailyRewardLimit int
	now              func() time.Time
}

func NewReputationService(db *gorm.DB, logger *zap.Logger, dailyRewardLimit int) *ReputationService {
	if dailyRewardLimit <= 0 {
		dailyRewardLimit = DefaultDailyVoteRewardLimit
	}
	return &ReputationService{
		db:               db,
		logger:           logger.Named("reputation_service"),
		dailyRewardLimit: dailyRewardLimit,
		now:              time.Now,
	}
}

// ApplyDelta adds the event's points to the user inside tx and returns the new
// balance. Subtractions are clamped at zero and the log row records the amount
// actually applied.
func (s *ReputationService) ApplyDelta(ctx context.Context, tx *gorm.DB, userID uint, event ReputationEvent, postID uint) (int, error) {
	delta, ok := eventDeltas[event]
	if !ok {
		return 0, fmt.Errorf("unknown reputation event %q", event)
	}
	tx = tx.WithContext(ctx)

	rec, err := s.record(tx, userID, true)
	if err != nil {
		return 0, err
	}

	applied := delta
	if rec.ReputationPoints+delta < 0 {
		applied = -rec.ReputationPoints
	}

	if applied != 0 {
		if err := tx.Model(&models.ReputationRecord{}).
			Where("user_id = ?", userID).
			UpdateColumn("reputation_points", gorm.Expr("reputation_points + ?", applied)).
			Error; err != nil {
			return 0, fmt.Errorf("failed to update reputation: %w", err)
		}
	}

	entry := models.ReputationLog{
		UserID: userID,
		Event:  string(event),
		Amount: applied,
	}
	if postID != 0 {
		entry.PostID = &postID
	}
	if err := tx.Create(&entry).Error; err != nil {
		return 0, fmt.Errorf("failed to write reputation log: %w", err)
	}

	return rec.ReputationPoints + applied, nil
}

// RewardVoteCast gives the voter the participation point unless today's cap
// is already reached. It reports whether the point was given.
func (s *ReputationService) RewardVoteCast(ctx context.Context, tx *gorm.DB, userID uint, postID uint) (bool, error) {
	tx = tx.WithContext(ctx)

	// 先锁住积分记录，保证并发投票不会突破每日上限
	if _, err := s.record(tx, userID, true); err != nil {
		return false, err
	}

	start, end := s.todayRange()
	var count int64
	if err := tx.Model(&models.ReputationLog{}).
		Where("user_id = ? AND event = ? AND amount > 0 AND created_at >= ? AND created_at < ?",
			userID, string(EventVoteCast), start, end).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to count vote rewards: %w", err)
	}
	if count >= int64(s.dailyRewardLimit) {
		return false, nil
	}

	if _, err := s.ApplyDelta(ctx, tx, userID, EventVoteCast, postID); err != nil {
		return false, err
	}
	return true, nil
}

// Points returns the user's balance, creating the record if needed.
func (s *ReputationService) Points(ctx context.Context, tx *gorm.DB, userID uint) (int, error) {
	rec, err := s.record(tx.WithContext(ctx), userID, false)
	if err != nil {
		return 0, err
	}
	return rec.ReputationPoints, nil
}

// AdjustCounter changes one of the activity counters, never below zero.
func (s *ReputationService) AdjustCounter(ctx context.Context, tx *gorm.DB, userID uint, field CounterField, delta int) error {
	switch field {
	case CounterAcceptedAnswers, CounterHelpfulAnswers, CounterQuestionsAsked, CounterAnswersGiven:
	default:
		return fmt.Errorf("unknown reputation counter %q", field)
	}
	tx = tx.WithContext(ctx)

	if _, err := s.record(tx, userID, false); err != nil {
		return err
	}

	col := string(field)
	if err := tx.Model(&models.ReputationRecord{}).
		Where("user_id = ?", userID).
		UpdateColumn(col, gorm.Expr("GREATEST("+col+" + ?, 0)", delta)).
		Error; err != nil {
		return fmt.Errorf("failed to update %s: %w", col, err)
	}
	return nil
}

// Get returns the standing of a user without creating anything.
func (s *ReputationService) Get(ctx context.Context, userID uint) (Standing, error) {
	tx := s.db.WithContext(ctx)

	var rec models.ReputationRecord
	err := tx.Where("user_id = ?", userID).Take(&rec).Error
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		role, found, err := s.role(tx, userID)
		if err != nil {
			return Standing{}, transientError("failed to load user", err)
		}
		if !found {
			return Standing{}, ErrUserNotFound
		}
		rec = models.ReputationRecord{UserID: userID, ReputationPoints: SeedPoints(role)}
	default:
		return Standing{}, transientError("failed to load reputation", err)
	}

	return Standing{ReputationRecord: rec, Tier: utils.TierFor(rec.ReputationPoints)}, nil
}

// SeedPoints is the starting balance for a role.
func SeedPoints(role string) int {
	if models.IsPrivileged(role) {
		return PrivilegedSeedPoints
	}
	return 0
}

// record loads the user's reputation row, seeding it on first use.
func (s *ReputationService) record(tx *gorm.DB, userID uint, lock bool) (*models.ReputationRecord, error) {
	q := tx
	if lock {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var rec models.ReputationRecord
	err := q.Where("user_id = ?", userID).Take(&rec).Error
	if err == nil {
		return &rec, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load reputation: %w", err)
	}

	role, _, err := s.role(tx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user role: %w", err)
	}
	seed := models.ReputationRecord{UserID: userID, ReputationPoints: SeedPoints(role)}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, fmt.Errorf("failed to seed reputation: %w", err)
	}

	rec = models.ReputationRecord{}
	if err := q.Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		return nil, fmt.Errorf("failed to load reputation: %w", err)
	}
	s.logger.Debug("Seeded reputation record", zap.Uint("user_id", userID), zap.Int("points", rec.ReputationPoints))
	return &rec, nil
}

func (s *ReputationService) role(tx *gorm.DB, userID uint) (string, bool, error) {
	var roles []string
	if err := tx.Model(&models.User{}).Where("id = ?", userID).Pluck("role", &roles).Error; err != nil {
		return "", false, err
	}
	if len(roles) == 0 {
		return models.RoleUser, false, nil
	}
	return roles[0], true, nil
}

func (s *ReputationService) todayRange() (time.Time, time.Time) {
	now := s.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}
