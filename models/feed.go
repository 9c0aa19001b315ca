package models

import (
	"time"

	"gorm.io/gorm"
)

// FeedOptions selects and restricts a post feed. PublishedOnly applies the
// public visibility predicate; an owner viewing their own profile leaves it
// off and sees drafts and scheduled posts too.
type FeedOptions struct {
	PublishedOnly bool
	CategoryID    uint
	AuthorID      uint
}

// FeedItem is a post annotated with its comment count for list displays.
type FeedItem struct {
	Post
	CommentCount int64 `json:"comment_count"`
}

// Pagination describes one page of a feed for the templates.
type Pagination struct {
	Number     int
	Size       int
	Total      int64
	TotalPages int
}

// HasPrev reports whether an earlier page exists.
func (p Pagination) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a later page exists.
func (p Pagination) HasNext() bool { return p.Number < p.TotalPages }

// PrevNumber returns the previous page number.
func (p Pagination) PrevNumber() int { return p.Number - 1 }

// NextNumber returns the next page number.
func (p Pagination) NextNumber() int { return p.Number + 1 }

// FeedQuery composes the base post query for list displays. The public
// predicate joins categories, so posts without a category are never publicly
// visible.
func FeedQuery(db *gorm.DB, now time.Time, opt FeedOptions) *gorm.DB {
	q := db.Model(&Post{})
	if opt.PublishedOnly {
		q = q.Joins("JOIN categories ON categories.id = posts.category_id").
			Where("posts.is_published = ? AND categories.is_published = ? AND posts.pub_date <= ?",
				true, true, now)
	}
	if opt.CategoryID != 0 {
		q = q.Where("posts.category_id = ?", opt.CategoryID)
	}
	if opt.AuthorID != 0 {
		q = q.Where("posts.author_id = ?", opt.AuthorID)
	}
	return q
}

// FetchFeedPage evaluates one page of the feed: publication-relevance
// ordering (pub_date desc, title asc tie-break), fixed page size, and a
// grouped count of comments per post without materializing them.
func FetchFeedPage(db *gorm.DB, now time.Time, opt FeedOptions, page, pageSize int) ([]FeedItem, Pagination, error) {
	if page < 1 {
		page = 1
	}

	// Clone per finisher; Count and Find must not share one statement.
	q := FeedQuery(db, now, opt).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}

	var posts []Post
	err := q.Preload("Author").Preload("Category").Preload("Location").
		Order("posts.pub_date DESC, posts.title ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&posts).Error
	if err != nil {
		return nil, Pagination{}, err
	}

	counts, err := commentCounts(db, posts)
	if err != nil {
		return nil, Pagination{}, err
	}

	items := make([]FeedItem, 0, len(posts))
	for _, post := range posts {
		items = append(items, FeedItem{Post: post, CommentCount: counts[post.ID]})
	}

	pagination := Pagination{
		Number:     page,
		Size:       pageSize,
		Total:      total,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}
	return items, pagination, nil
}

func commentCounts(db *gorm.DB, posts []Post) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(posts))
	if len(posts) == 0 {
		return counts, nil
	}
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}

	var rows []struct {
		PostID uint
		Total  int64
	}
	err := db.Model(&Comment{}).
		Select("post_id, COUNT(*) AS total").
		Where("post_id IN ?", ids).
		Group("post_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.PostID] = row.Total
	}
	return counts, nil
}
