package models

import "time"

// Category groups posts under a unique slug. Managed by administrators.
// Unpublishing a category hides every post in it from public lists.
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:256;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Slug        string    `gorm:"size:64;uniqueIndex;not null" json:"slug"`
	IsPublished bool      `gorm:"not null" json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	Posts       []Post    `json:"-"`
}
