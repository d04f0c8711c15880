package models

import (
	"time"
)

type TargetType string

const (
	TargetPost    TargetType = "post"
	TargetComment TargetType = "comment"
)

// Vote 一行代表一个有效的赞，取消即硬删除
type Vote struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;uniqueIndex:idx_vote_target" json:"user_id"`
	TargetType TargetType `gorm:"size:16;not null;uniqueIndex:idx_vote_target" json:"target_type"`
	TargetID   uint       `gorm:"not null;uniqueIndex:idx_vote_target;index" json:"target_id"`
	Weight     float64    `gorm:"not null;default:1" json:"weight"` // 投票时的等级权重
	Rewarded   bool       `gorm:"not null;default:false" json:"rewarded"`
	CreatedAt  time.Time  `json:"created_at"`
}
