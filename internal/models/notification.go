package models

import (
	"time"
)

type NotificationType string

const (
	NotificationTypeNewAnswer NotificationType = "new_answer"
	NotificationTypeSystem    NotificationType = "system"
)

type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;index" json:"user_id"` // Receiver
	User      User             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ActorID   *uint            `gorm:"index" json:"actor_id"` // Sender
	Actor     User             `gorm:"foreignKey:ActorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"actor"`
	Type      NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	PostID    *uint            `gorm:"index" json:"post_id"`
	CommentID *uint            `json:"comment_id"`
	Reason    string           `gorm:"type:text" json:"reason"` // 纯文本摘要
	IsRead    bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
