package models

import (
	"time"
)

// Follow 关注文章，有新回答时通知
type Follow struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_follow_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;index;uniqueIndex:idx_follow_user_post" json:"post_id"`
	Post      Post      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
