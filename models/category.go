package models

// Category is a fixed topical bucket for posts. Seeded at boot from the
// registry in the forum package; read-only afterwards.
type Category struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Slug        string `gorm:"size:64;uniqueIndex;not null" json:"slug"`
	Name        string `gorm:"size:64;not null" json:"name"`
	Description string `gorm:"size:255" json:"description"`
	Color       string `gorm:"size:32" json:"color"`
	SortOrder   int    `gorm:"not null;default:0" json:"sort_order"`
}
