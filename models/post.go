package models

import "time"

// Post is a top-level thread starter within a category. ReplyCount is
// denormalized and must always equal the number of replies referencing the
// post; the store layer maintains it inside the same transaction as every
// reply insert or delete.
type Post struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CategoryID uint      `gorm:"index;not null" json:"category_id"`
	AuthorID   uint      `gorm:"index;not null" json:"author_id"`
	Title      string    `gorm:"size:200;not null" json:"title"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	ReplyCount int       `gorm:"not null;default:0" json:"reply_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Author     User      `gorm:"foreignKey:AuthorID" json:"author"`
	Category   Category  `gorm:"foreignKey:CategoryID" json:"category"`
}
