package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/rangapin/forum/forum"
	"github.com/rangapin/forum/models"
)

// CreateUser inserts a user row bootstrapped from the identity provider.
// Concurrent first-logins for the same identity can race; the unique index on
// provider_id makes the loser fail, and callers surface that error instead of
// inserting a duplicate.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

// UserByID resolves a user by primary key.
func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", forum.ErrNotFound, id)
		}
		return nil, err
	}
	return &user, nil
}

// UserByProviderID resolves a user by the identity provider's stable id.
func (s *Store) UserByProviderID(ctx context.Context, providerID string) (*models.User, error) {
	return s.userBy(ctx, "provider_id = ?", providerID)
}

// UserByEmail resolves a user by email (credential and magic-link login).
func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.userBy(ctx, "email = ?", email)
}

// UserByUsername resolves a user by username (profile pages).
func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.userBy(ctx, "username = ?", username)
}

func (s *Store) userBy(ctx context.Context, cond string, arg string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where(cond, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user", forum.ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}
