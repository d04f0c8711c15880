package models

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ChangeType string

const (
	ChangeCreated   ChangeType = "created"
	ChangeMinorEdit ChangeType = "minor_edit"
	ChangeMajorEdit ChangeType = "major_edit"
)

var ErrVersionImmutable = errors.New("post versions are append-only")

type PostVersion struct {
	ID            uint                        `gorm:"primaryKey" json:"id"`
	PostID        uint                        `gorm:"not null;uniqueIndex:idx_post_version" json:"post_id"`
	Post          Post                        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	VersionNumber int                         `gorm:"not null;uniqueIndex:idx_post_version" json:"version_number"`
	Title         string                      `gorm:"not null" json:"title"`
	Slug          string                      `gorm:"size:128;not null" json:"slug"`
	Content       string                      `gorm:"type:text" json:"content"`
	CategoryID    uint                        `json:"category_id"`
	Tags          datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"tags"`
	EditorID      uint                        `gorm:"not null" json:"editor_id"`
	ChangeType    ChangeType                  `gorm:"size:20;not null" json:"change_type"`
	Summary       string                      `gorm:"size:500" json:"summary"`
	CreatedAt     time.Time                   `json:"created_at"`
}

func (v *PostVersion) BeforeUpdate(tx *gorm.DB) error {
	return ErrVersionImmutable
}

func (v *PostVersion) BeforeDelete(tx *gorm.DB) error {
	return ErrVersionImmutable
}
