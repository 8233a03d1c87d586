package store

import (
	"context"
	"fmt"

	"github.com/rangapin/forum/forum"
	"github.com/rangapin/forum/models"
)

// CreateReport files a moderation report against the target. The targeted
// post or reply must still exist; with migration-time foreign keys disabled
// this check is what keeps dangling report rows out of the table. No
// deduplication: the same user may report the same content repeatedly.
// Reports are write-once; nothing in this system updates or reads them back.
func (s *Store) CreateReport(ctx context.Context, reporterID uint, target forum.ReportTarget, reason string) error {
	if !target.Valid() {
		return fmt.Errorf("%w: report needs exactly one target", forum.ErrValidation)
	}
	report := models.Report{
		ReporterID: reporterID,
		Reason:     reason,
	}
	db := s.db.WithContext(ctx)
	if id, ok := target.PostID(); ok {
		var count int64
		if err := db.Model(&models.Post{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: post %d", forum.ErrReferential, id)
		}
		report.PostID = &id
	}
	if id, ok := target.ReplyID(); ok {
		var count int64
		if err := db.Model(&models.Reply{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: reply %d", forum.ErrReferential, id)
		}
		report.ReplyID = &id
	}
	return db.Create(&report).Error
}
