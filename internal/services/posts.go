package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"knowledgehub/internal/db"
	"knowledgehub/internal/models"
	"knowledgehub/internal/utils"
)

// maxSlugAttempts bounds how many timestamp suffixes are tried.
const maxSlugAttempts = 3

var ErrInvalidCategory = &Error{Kind: KindInvalidInput, Msg: "category does not exist"}

// PostInput is what the authoring collaborator submits.
type PostInput struct {
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	CategoryID uint              `json:"category_id"`
	Tags       []string          `json:"tags"`
	Draft      bool              `json:"draft"`
	ChangeType models.ChangeType `json:"change_type"`
	Summary    string            `json:"summary"`
}

func (in *PostInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return ErrEmptyTitle
	}
	in.Content = strings.TrimSpace(utils.SanitizeContent(in.Content))
	if in.Content == "" {
		return ErrEmptyContent
	}
	if in.CategoryID == 0 {
		in.CategoryID = 1
	}
	tags := make([]string, 0, len(in.Tags))
	seen := make(map[string]bool, len(in.Tags))
	for _, t := range in.Tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	in.Tags = tags
	return nil
}

type PostService struct {
	db         *gorm.DB
	reputation *ReputationService
	ranking    TrendingScheduler
	logger     *zap.Logger
	now        func() time.Time
}

// NewPostService wires slug allocation and versioning. ranking may be nil.
func NewPostService(db *gorm.DB, reputation *ReputationService, ranking TrendingScheduler, logger *zap.Logger) *PostService {
	return &PostService{
		db:         db,
		reputation: reputation,
		ranking:    ranking,
		logger:     logger.Named("post_service"),
		now:        time.Now,
	}
}

// AllocateSlug returns a slug for title that no other post uses. When the
// post already owns a slug derived from the same title it is kept.
func (s *PostService) AllocateSlug(ctx context.Context, tx *gorm.DB, title, existingSlug string, postID uint) (string, error) {
	tx = tx.WithContext(ctx)
	candidate := utils.Slugify(title)
	if existingSlug != "" && sameSlugBase(existingSlug, candidate) {
		return existingSlug, nil
	}

	slug := candidate
	for attempt := 0; ; attempt++ {
		var n int64
		if err := tx.Model(&models.Post{}).Where("slug = ? AND id <> ?", slug, postID).Count(&n).Error; err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if n == 0 {
			return slug, nil
		}
		if attempt == maxSlugAttempts {
			return "", ErrSlugConflict
		}
		slug = fmt.Sprintf("%s-%d", candidate, s.now().UnixNano())
	}
}

// slugSuffixLen is the width of the unix-nanosecond suffix AllocateSlug appends.
const slugSuffixLen = 19

// sameSlugBase reports whether slug is candidate, optionally with the
// collision suffix AllocateSlug appends. Shorter numbers belong to the title.
func sameSlugBase(slug, candidate string) bool {
	if slug == candidate {
		return true
	}
	rest, ok := strings.CutPrefix(slug, candidate+"-")
	if !ok || len(rest) != slugSuffixLen {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// AppendVersion snapshots post as the next version. The caller must hold the
// post row lock. The first version is always "created".
func (s *PostService) AppendVersion(ctx context.Context, tx *gorm.DB, post *models.Post, editorID uint, changeType models.ChangeType, summary string) (*models.PostVersion, error) {
	tx = tx.WithContext(ctx)

	var latest int
	if err := tx.Model(&models.PostVersion{}).
		Where("post_id = ?", post.ID).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&latest).Error; err != nil {
		return nil, fmt.Errorf("failed to read latest version: %w", err)
	}

	switch {
	case latest == 0:
		changeType = models.ChangeCreated
	case changeType != models.ChangeMinorEdit && changeType != models.ChangeMajorEdit:
		changeType = models.ChangeMinorEdit
	}

	v := models.PostVersion{
		PostID:        post.ID,
		VersionNumber: latest + 1,
		Title:         post.Title,
		Slug:          post.Slug,
		Content:       post.Content,
		CategoryID:    post.CategoryID,
		Tags:          post.Tags,
		EditorID:      editorID,
		ChangeType:    changeType,
		Summary:       summary,
	}
	if err := tx.Create(&v).Error; err != nil {
		return nil, fmt.Errorf("failed to append version: %w", err)
	}
	return &v, nil
}

// CreatePost allocates a slug, stores the post and records version 1.
func (s *PostService) CreatePost(ctx context.Context, author Identity, in PostInput) (*models.Post, error) {
	if !author.Authenticated() {
		return nil, ErrUnauthorized
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var post models.Post
	err := db.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.checkCategory(tx, in.CategoryID); err != nil {
			return err
		}
		slug, err := s.AllocateSlug(ctx, tx, in.Title, "", 0)
		if err != nil {
			return err
		}

		post = models.Post{
			Slug:       slug,
			UserID:     author.UserID,
			CategoryID: in.CategoryID,
			Title:      in.Title,
			Content:    in.Content,
			Tags:       datatypes.JSONSlice[string](in.Tags),
			Status:     initialStatus(author.Role, in.Draft),
		}
		if post.Status == models.PostStatusApproved {
			now := s.now()
			post.PublishedAt = &now
		}
		if err := tx.Create(&post).Error; err != nil {
			return fmt.Errorf("failed to create post: %w", err)
		}

		if _, err := s.AppendVersion(ctx, tx, &post, author.UserID, models.ChangeCreated, in.Summary); err != nil {
			return err
		}
		return s.reputation.AdjustCounter(ctx, tx, author.UserID, CounterQuestionsAsked, 1)
	})
	if err != nil {
		return nil, storeError("failed to create post", err)
	}

	s.logger.Info("Post created",
		zap.Uint("post_id", post.ID),
		zap.String("slug", post.Slug),
		zap.String("status", string(post.Status)))

	if post.Status == models.PostStatusApproved && s.ranking != nil {
		s.ranking.ScheduleUpdate(post.ID)
	}
	return &post, nil
}

// UpdatePost edits a post and appends a version. A new slug is allocated
// only when the title changes.
func (s *PostService) UpdatePost(ctx context.Context, editor Identity, postID uint, in PostInput) (*models.Post, error) {
	if !editor.Authenticated() {
		return nil, ErrUnauthorized
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var post models.Post
	err := db.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		post = models.Post{}
		if err := lockPost(tx, postID, &post); err != nil {
			return err
		}
		if post.UserID != editor.UserID && !models.CanModerate(editor.Role) {
			return ErrNotAuthor
		}
		if in.CategoryID != post.CategoryID {
			if err := s.checkCategory(tx, in.CategoryID); err != nil {
				return err
			}
		}

		if in.Title != post.Title {
			slug, err := s.AllocateSlug(ctx, tx, in.Title, post.Slug, post.ID)
			if err != nil {
				return err
			}
			post.Slug = slug
		}
		post.Title = in.Title
		post.Content = in.Content
		post.CategoryID = in.CategoryID
		post.Tags = datatypes.JSONSlice[string](in.Tags)

		if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).Updates(map[string]any{
			"title":       post.Title,
			"slug":        post.Slug,
			"content":     post.Content,
			"category_id": post.CategoryID,
			"tags":        post.Tags,
		}).Error; err != nil {
			return fmt.Errorf("failed to update post: %w", err)
		}

		_, err := s.AppendVersion(ctx, tx, &post, editor.UserID, in.ChangeType, in.Summary)
		return err
	})
	if err != nil {
		return nil, storeError("failed to update post", err)
	}

	s.logger.Info("Post updated", zap.Uint("post_id", post.ID), zap.Uint("editor_id", editor.UserID))
	return &post, nil
}

// SetStatus is the moderation boundary. It never touches counters.
func (s *PostService) SetStatus(ctx context.Context, moderator Identity, postID uint, status models.PostStatus) (*models.Post, error) {
	if !moderator.Authenticated() {
		return nil, ErrUnauthorized
	}
	if !models.CanModerate(moderator.Role) {
		return nil, ErrNotModerator
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	var post models.Post
	err := db.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		post = models.Post{}
		if err := lockPost(tx, postID, &post); err != nil {
			return err
		}

		updates := map[string]any{"status": status}
		if status == models.PostStatusApproved && post.PublishedAt == nil {
			now := s.now()
			updates["published_at"] = now
			post.PublishedAt = &now
		}
		post.Status = status
		return tx.Model(&models.Post{}).Where("id = ?", post.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, storeError("failed to set post status", err)
	}

	s.logger.Info("Post status changed",
		zap.Uint("post_id", postID),
		zap.String("status", string(status)),
		zap.Uint("moderator_id", moderator.UserID))

	if s.ranking != nil {
		s.ranking.ScheduleUpdate(postID)
	}
	return &post, nil
}

// Versions lists a post's history, oldest first.
func (s *PostService) Versions(ctx context.Context, postID uint) ([]models.PostVersion, error) {
	tx := s.db.WithContext(ctx)

	var n int64
	if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&n).Error; err != nil {
		return nil, transientError("failed to load post", err)
	}
	if n == 0 {
		return nil, ErrPostNotFound
	}

	var versions []models.PostVersion
	if err := tx.Where("post_id = ?", postID).Order("version_number ASC").Find(&versions).Error; err != nil {
		return nil, transientError("failed to load versions", err)
	}
	return versions, nil
}

func (s *PostService) checkCategory(tx *gorm.DB, id uint) error {
	var n int64
	if err := tx.Model(&models.Category{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check category: %w", err)
	}
	if n == 0 {
		return ErrInvalidCategory
	}
	return nil
}

func initialStatus(role string, draft bool) models.PostStatus {
	switch {
	case draft:
		return models.PostStatusDraft
	case models.IsPrivileged(role):
		return models.PostStatusApproved
	default:
		return models.PostStatusPendingModeration
	}
}

const moderationQueueSize = 100

// ModerationQueue lists posts waiting for review, oldest first.
func (s *PostService) ModerationQueue(ctx context.Context, moderator Identity) ([]models.Post, error) {
	if !moderator.Authenticated() {
		return nil, ErrUnauthorized
	}
	if !models.CanModerate(moderator.Role) {
		return nil, ErrNotModerator
	}

	var posts []models.Post
	err := s.db.WithContext(ctx).Preload("User").
		Where("status = ?", models.PostStatusPendingModeration).
		Order("created_at ASC").
		Limit(moderationQueueSize).
		Find(&posts).Error
	if err != nil {
		return nil, transientError("failed to load moderation queue", err)
	}
	return posts, nil
}

// Published returns the most recently published approved posts.
func (s *PostService) Published(ctx context.Context, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).
		Select("id", "slug", "updated_at", "published_at", "created_at").
		Where("status = ?", models.PostStatusApproved).
		Order("published_at DESC NULLS LAST").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, transientError("failed to load published posts", err)
	}
	return posts, nil
}

func (s *PostService) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&categories).Error; err != nil {
		return nil, transientError("failed to load categories", err)
	}
	return categories, nil
}
