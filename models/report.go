package models

import "time"

// Report is a moderation flag against a post or a reply. Exactly one of
// PostID/ReplyID is set; the store builds reports from forum.ReportTarget so
// the invalid states never reach this struct. Reports are never updated and
// are retained for moderator review.
type Report struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ReporterID uint      `gorm:"index;not null" json:"reporter_id"`
	PostID     *uint     `gorm:"index" json:"post_id"`
	ReplyID    *uint     `gorm:"index" json:"reply_id"`
	Reason     string    `gorm:"size:500;not null" json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}
