// Package store is the single gateway to the relational database. Every
// query, insert, and delete in the system goes through an explicitly passed
// *Store rather than ambient global state, and every read-modify-write that
// matters (reply_count maintenance, cascade deletes, delete authorization)
// runs inside one transaction here.
package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/rangapin/forum/forum"
	"github.com/rangapin/forum/models"
)

// Store wraps a gorm handle. Construct with New and pass it to controllers.
type Store struct {
	db *gorm.DB
}

// New creates a Store around an initialized database handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// SeedCategories inserts any registry category missing from the categories
// table. Existing rows are never modified; the table is read-only after boot.
func (s *Store) SeedCategories(ctx context.Context) error {
	for _, c := range forum.Categories {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Category{}).Where("slug = ?", c.Slug).Count(&count).Error; err != nil {
			return fmt.Errorf("check category %s: %w", c.Slug, err)
		}
		if count > 0 {
			continue
		}
		cat := models.Category{
			Slug:        c.Slug,
			Name:        c.Name,
			Description: c.Description,
			Color:       c.Color,
			SortOrder:   c.SortOrder,
		}
		if err := s.db.WithContext(ctx).Create(&cat).Error; err != nil {
			return fmt.Errorf("seed category %s: %w", c.Slug, err)
		}
	}
	return nil
}

// Categories returns all categories in display order.
func (s *Store) Categories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	if err := s.db.WithContext(ctx).Order("sort_order").Find(&cats).Error; err != nil {
		return nil, err
	}
	return cats, nil
}

// CategoryBySlug resolves a slug to its category row.
func (s *Store) CategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var cat models.Category
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&cat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: category %s", forum.ErrNotFound, slug)
		}
		return nil, err
	}
	return &cat, nil
}
