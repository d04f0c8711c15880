package models

import (
	"time"

	"gorm.io/datatypes"
)

type PostStatus string

const (
	PostStatusDraft             PostStatus = "draft"
	PostStatusPendingModeration PostStatus = "pending_moderation"
	PostStatusApproved          PostStatus = "approved"
	PostStatusRejected          PostStatus = "rejected"
	PostStatusArchived          PostStatus = "archived"
)

// Valid reports whether s is a known status.
func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusDraft, PostStatusPendingModeration, PostStatusApproved, PostStatusRejected, PostStatusArchived:
		return true
	}
	return false
}

type Post struct {
	ID         uint                        `gorm:"primaryKey" json:"id"`
	Slug       string                      `gorm:"uniqueIndex;size:128;not null" json:"slug"`
	UserID     uint                        `gorm:"not null;index" json:"user_id"`
	User       User                        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	CategoryID uint                        `gorm:"not null;index;default:1" json:"category_id"`
	Category   Category                    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	Title      string                      `gorm:"not null" json:"title"`
	Content    string                      `gorm:"type:text" json:"content"`
	Tags       datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"tags"`
	Status     PostStatus                  `gorm:"size:32;not null;default:'pending_moderation';index" json:"status"`

	// 计数器只允许投票、回答、关注服务修改
	ViewCount        int   `gorm:"not null;default:0" json:"view_count"`
	UpvoteCount      int   `gorm:"not null;default:0" json:"upvote_count"`
	CommentCount     int   `gorm:"not null;default:0" json:"comment_count"`
	FollowersCount   int   `gorm:"not null;default:0" json:"followers_count"`
	AcceptedAnswerID *uint `gorm:"index" json:"accepted_answer_id"`

	LastActivityAt *time.Time `gorm:"index" json:"last_activity_at"`
	PublishedAt    *time.Time `json:"published_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
