package models

import (
	"time"

	"gorm.io/gorm"
)

// PageView stores aggregated view counts per day and post.
type PageView struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Date      time.Time `gorm:"index:idx_views_date_post,unique;type:date;not null" json:"date"`
	PostID    uint      `gorm:"index;index:idx_views_date_post,unique;not null" json:"post_id"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Post      Post      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// PostViewTotal sums all daily counters for a post.
func PostViewTotal(db *gorm.DB, postID uint) int64 {
	var total int64
	err := db.Model(&PageView{}).
		Where("post_id = ?", postID).
		Select("COALESCE(SUM(count), 0)").
		Scan(&total).Error
	if err != nil {
		return 0
	}
	return total
}
