package services

import (
	"context"

	"gorm.io/gorm"

	"knowledgehub/internal/models"
)

const notificationPageSize = 50

// NotificationService is the inbox written by DBSink.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) List(ctx context.Context, user Identity) ([]models.Notification, error) {
	if !user.Authenticated() {
		return nil, ErrUnauthorized
	}
	var notifications []models.Notification
	err := s.db.WithContext(ctx).Preload("Actor").
		Where("user_id = ?", user.UserID).
		Order("created_at DESC").
		Limit(notificationPageSize).
		Find(&notifications).Error
	if err != nil {
		return nil, transientError("failed to load notifications", err)
	}
	return notifications, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, user Identity) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", user.UserID, false).
		Count(&n).Error
	if err != nil {
		return 0, transientError("failed to count notifications", err)
	}
	return n, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, user Identity, id uint) error {
	if !user.Authenticated() {
		return ErrUnauthorized
	}
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, user.UserID).
		Update("is_read", true)
	if res.Error != nil {
		return transientError("failed to update notification", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, user Identity) (int64, error) {
	if !user.Authenticated() {
		return 0, ErrUnauthorized
	}
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", user.UserID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, transientError("failed to update notifications", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *NotificationService) Delete(ctx context.Context, user Identity, id uint) error {
	if !user.Authenticated() {
		return ErrUnauthorized
	}
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, user.UserID).Delete(&models.Notification{})
	if res.Error != nil {
		return transientError("failed to delete notification", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
