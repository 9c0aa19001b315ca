package models

import "time"

// PostImage records an uploaded image file on disk so the background sweeper
// can delete files whose post is gone or whose image was replaced.
// Deliberately no foreign key: the row must survive the post's deletion so
// the file path is still known at cleanup time.
type PostImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"post_id"`
	FilePath  string    `gorm:"size:1024;not null" json:"file_path"`
	URL       string    `gorm:"size:1024;not null" json:"url"`
	CreatedAt time.Time `json:"created_at"`
}
