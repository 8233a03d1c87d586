package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rangapin/forum/forum"
	"github.com/rangapin/forum/models"
)

// PostListing is one row of a post listing: the post joined with its author's
// username and its category's name and slug.
type PostListing struct {
	ID             uint      `json:"id"`
	Title          string    `json:"title"`
	ReplyCount     int       `json:"reply_count"`
	CreatedAt      time.Time `json:"created_at"`
	AuthorUsername string    `json:"author_username"`
	CategoryName   string    `json:"category_name"`
	CategorySlug   string    `json:"category_slug"`
}

// ListOptions selects and orders a post listing. Zero values mean "no filter";
// the cap is always forum.ListLimit.
type ListOptions struct {
	// CategorySlug filters by category. An unknown slug drops the filter
	// rather than failing; listings degrade to the unfiltered set.
	CategorySlug string
	// AuthorID filters to one author's posts (profile pages).
	AuthorID uint
	// Query matches the title or body substring, case-insensitively.
	Query string
	Sort  forum.Sort
}

// ListPosts returns up to forum.ListLimit posts with author and category
// columns joined in, ordered per opts.Sort.
func (s *Store) ListPosts(ctx context.Context, opts ListOptions) ([]PostListing, error) {
	q := s.db.WithContext(ctx).
		Table("posts").
		Select("posts.id, posts.title, posts.reply_count, posts.created_at, users.username AS author_username, categories.name AS category_name, categories.slug AS category_slug").
		Joins("JOIN users ON users.id = posts.author_id").
		Joins("JOIN categories ON categories.id = posts.category_id")

	if opts.CategorySlug != "" {
		cat, err := s.CategoryBySlug(ctx, opts.CategorySlug)
		switch {
		case err == nil:
			q = q.Where("posts.category_id = ?", cat.ID)
		case errors.Is(err, forum.ErrNotFound):
			// Tolerant fallback: unknown slug returns the unfiltered listing.
		default:
			return nil, err
		}
	}
	if opts.AuthorID != 0 {
		q = q.Where("posts.author_id = ?", opts.AuthorID)
	}
	if opts.Query != "" {
		pattern := "%" + opts.Query + "%"
		q = q.Where("posts.title LIKE ? OR posts.body LIKE ?", pattern, pattern)
	}

	var rows []PostListing
	if err := q.Order(opts.Sort.OrderClause()).Limit(forum.ListLimit).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetPost loads a post with its author and category, plus its replies with
// their authors, oldest first.
func (s *Store) GetPost(ctx context.Context, id uint) (*models.Post, []models.Reply, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Preload("Author").Preload("Category").First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: post %d", forum.ErrNotFound, id)
		}
		return nil, nil, err
	}

	var replies []models.Reply
	err = s.db.WithContext(ctx).Where("post_id = ?", id).Preload("Author").Order("created_at ASC").Find(&replies).Error
	if err != nil {
		return nil, nil, err
	}
	return &post, replies, nil
}

// CreatePost inserts a new post with reply_count zero. The category must
// exist; a dangling category id is a referential error, not a crash.
func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", post.CategoryID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: category %d", forum.ErrReferential, post.CategoryID)
	}
	post.ReplyCount = 0
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
}

// DeletePost removes a post together with its replies and every report
// referencing the post or one of its replies, in one transaction. Only the
// author or an admin may delete; the check lives here, not only in the UI.
func (s *Store) DeletePost(ctx context.Context, id uint, caller *models.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: post %d", forum.ErrNotFound, id)
			}
			return err
		}
		if post.AuthorID != caller.ID && !caller.IsAdmin {
			return fmt.Errorf("%w: delete post %d", forum.ErrUnauthorized, id)
		}

		replyIDs := tx.Model(&models.Reply{}).Select("id").Where("post_id = ?", post.ID)
		if err := tx.Where("post_id = ? OR reply_id IN (?)", post.ID, replyIDs).Delete(&models.Report{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Reply{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, post.ID).Error
	})
}
