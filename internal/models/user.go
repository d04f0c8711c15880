package models

import (
	"time"
)

const (
	RoleUser        = "user"
	RoleContributor = "contributor"
	RoleModerator   = "moderator"
	RoleAdmin       = "admin"
)

// User 由身份服务维护，评分核心只读取 Username 和 Role
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Role      string    `gorm:"size:20;default:'user';not null" json:"role"` // user, contributor, moderator, admin
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsPrivileged reports whether the role skips moderation and starts with seeded reputation.
func IsPrivileged(role string) bool {
	switch role {
	case RoleContributor, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// CanModerate reports whether the role may change post status.
func CanModerate(role string) bool {
	return role == RoleModerator || role == RoleAdmin
}
