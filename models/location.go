package models

import "time"

// Location is the place a post was written from. Managed by administrators;
// posts reference it optionally and survive its deletion.
type Location struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:256;not null" json:"name"`
	IsPublished bool      `gorm:"not null" json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
}
