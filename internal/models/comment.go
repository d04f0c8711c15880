package models

import (
	"time"
)

// Comment is an answer to a Post.
// A partial unique index on post_id WHERE is_accepted_answer is created by db.Migrate.
type Comment struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	PostID           uint       `gorm:"not null;index" json:"post_id"`
	Post             Post       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID           uint       `gorm:"not null;index" json:"user_id"`
	User             User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	Content          string     `gorm:"type:text;not null" json:"content"`
	UpvoteCount      int        `gorm:"not null;default:0" json:"upvote_count"`
	IsAcceptedAnswer bool       `gorm:"not null;default:false" json:"is_accepted_answer"`
	AcceptedAt       *time.Time `json:"accepted_at"`
	Status           string     `gorm:"size:20;not null;default:'visible'" json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
}
