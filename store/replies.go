package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rangapin/forum/forum"
	"github.com/rangapin/forum/models"
)

// CreateReply inserts a reply and increments the parent post's reply_count in
// the same transaction. Never two independent statements: a lost counter
// update under concurrent replies would break the reply_count invariant.
func (s *Store) CreateReply(ctx context.Context, reply *models.Reply) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Post{}).Where("id = ?", reply.PostID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: post %d", forum.ErrReferential, reply.PostID)
		}
		if err := tx.Omit(clause.Associations).Create(reply).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", reply.PostID).
			Update("reply_count", gorm.Expr("reply_count + ?", 1)).Error
	})
}

// DeleteReply removes one reply and decrements its parent post's reply_count
// by exactly one, in one transaction. Author-or-admin only. Returns the
// parent post id so the caller can re-render the containing post.
func (s *Store) DeleteReply(ctx context.Context, id uint, caller *models.User) (uint, error) {
	var postID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reply models.Reply
		if err := tx.First(&reply, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: reply %d", forum.ErrNotFound, id)
			}
			return err
		}
		if reply.AuthorID != caller.ID && !caller.IsAdmin {
			return fmt.Errorf("%w: delete reply %d", forum.ErrUnauthorized, id)
		}
		postID = reply.PostID

		if err := tx.Where("reply_id = ?", reply.ID).Delete(&models.Report{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Reply{}, reply.ID).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", reply.PostID).
			Update("reply_count", gorm.Expr("reply_count - ?", 1)).Error
	})
	return postID, err
}
