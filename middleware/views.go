package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"blogicum/models"
)

// PostViewRecorder counts successful detail-page views per day and post.
// Attached only to the post detail route; the total shows on that page.
func PostViewRecorder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if c.Request.Method != "GET" || status < 200 || status >= 300 {
			return
		}

		postID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			return
		}

		// Local midnight aligns with the DATE column
		now := time.Now().In(time.Local)
		localMidnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

		// Atomic upsert to avoid duplicate key errors under concurrency
		_ = db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}, {Name: "post_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": time.Now()}),
		}).Create(&models.PageView{Date: localMidnight, PostID: uint(postID), Count: 1}).Error
	}
}
