package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is a blog publication. A future PubDate schedules it: the post stays
// out of public lists until the date passes, while the author sees it always.
//
// Deletion policy: removing the author removes the post (and its comments);
// removing the category or location only clears the reference.
type Post struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:256;not null" json:"title"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	PubDate     time.Time `gorm:"index;not null" json:"pub_date"`
	AuthorID    uint      `gorm:"index;not null" json:"author_id"`
	LocationID  *uint     `gorm:"index" json:"location_id"`
	CategoryID  *uint     `gorm:"index" json:"category_id"`
	ImageURL    string    `gorm:"size:1024" json:"image_url"`
	IsPublished bool      `gorm:"not null" json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Author      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Location    *Location `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"location,omitempty"`
	Category    *Category `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"category,omitempty"`
	Comments    []Comment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// VisibleTo reports whether the viewer may open this post: authors always see
// their own posts, everyone else only when the publication predicate holds.
func (p Post) VisibleTo(viewerID uint, now time.Time) bool {
	if viewerID != 0 && viewerID == p.AuthorID {
		return true
	}
	if !p.IsPublished || p.PubDate.After(now) {
		return false
	}
	return p.Category != nil && p.Category.IsPublished
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.PubDate.IsZero() {
		p.PubDate = now
	}
	p.UpdatedAt = now
	return nil
}

// BeforeUpdate refreshes the UpdatedAt timestamp.
func (p *Post) BeforeUpdate(tx *gorm.DB) error {
	p.UpdatedAt = time.Now()
	return nil
}
