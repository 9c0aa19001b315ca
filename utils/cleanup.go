package utils

import (
	"os"
	"time"

	"gorm.io/gorm"

	"blogicum/models"
)

// StartImageSweeper launches a background goroutine that periodically deletes
// image files no post references anymore: the post was removed, or its image
// replaced. Best-effort; failures are logged and retried next round.
func StartImageSweeper(db *gorm.DB, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go func() {
		for {
			// Sleep first to avoid racing at startup
			time.Sleep(interval)
			sweepOrphanImages(db)
		}
	}()
}

func sweepOrphanImages(db *gorm.DB) {
	var images []models.PostImage
	// Grace period: skip rows younger than an hour so an image uploaded in a
	// form that has not been submitted yet is not swept away.
	cutoff := time.Now().Add(-time.Hour)
	err := db.Where("created_at <= ?", cutoff).Limit(100).Find(&images).Error
	if err != nil {
		if Sugar != nil {
			Sugar.Warnf("image sweeper query failed: %v", err)
		}
		return
	}

	for _, img := range images {
		var referencing int64
		err := db.Model(&models.Post{}).
			Where("id = ? AND image_url = ?", img.PostID, img.URL).
			Count(&referencing).Error
		if err != nil || referencing > 0 {
			continue
		}
		if img.FilePath != "" {
			_ = os.Remove(img.FilePath)
		}
		if err := db.Delete(&models.PostImage{}, img.ID).Error; err != nil {
			if Sugar != nil {
				Sugar.Warnf("image sweeper delete row failed: %v", err)
			}
		}
	}
}
