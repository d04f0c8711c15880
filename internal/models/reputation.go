package models

import (
	"time"
)

// ReputationRecord is created lazily on the first scoring event for a user.
type ReputationRecord struct {
	UserID               uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	ReputationPoints     int       `gorm:"not null;default:0" json:"reputation_points"`
	AcceptedAnswersCount int       `gorm:"not null;default:0" json:"accepted_answers_count"`
	HelpfulAnswersCount  int       `gorm:"not null;default:0" json:"helpful_answers_count"`
	QuestionsAsked       int       `gorm:"not null;default:0" json:"questions_asked"`
	AnswersGiven         int       `gorm:"not null;default:0" json:"answers_given"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// ReputationLog 积分流水，Amount 为实际生效的变化量（扣减时可能被截断）
type ReputationLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_replog_user_event" json:"user_id"`
	Event     string    `gorm:"size:40;not null;index:idx_replog_user_event" json:"event"`
	Amount    int       `gorm:"not null" json:"amount"`
	PostID    *uint     `gorm:"index" json:"post_id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
