package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"blogicum/config"
	"blogicum/models"
	"blogicum/utils"
)

// BlogController serves the read-only pages: home feed, category feed,
// profiles and the post detail view.
type BlogController struct {
	db *gorm.DB
}

// NewBlogController creates a BlogController.
func NewBlogController(db *gorm.DB) *BlogController {
	return &BlogController{db: db}
}

// feedPayload is what gets cached per public feed page.
type feedPayload struct {
	Items      []models.FeedItem `json:"items"`
	Pagination models.Pagination `json:"pagination"`
}

// Index renders the home page with published posts.
func (b *BlogController) Index(ctx *gin.Context) {
	page := parsePage(ctx)
	cacheKey := fmt.Sprintf("cache:feed:home:page=%d", page)

	var payload feedPayload
	if !utils.CacheGetJSON(cacheKey, &payload) {
		items, pagination, err := models.FetchFeedPage(
			b.db, time.Now(),
			models.FeedOptions{PublishedOnly: true},
			page, config.Get().PostsPerPage,
		)
		if err != nil {
			utils.ServerError(ctx, err)
			return
		}
		payload = feedPayload{Items: items, Pagination: pagination}
		utils.CacheSetJSON(cacheKey, payload, 0)
	}

	utils.HTML(ctx, http.StatusOK, "blog/index", gin.H{
		"posts":      payload.Items,
		"pagination": payload.Pagination,
	})
}

// CategoryPosts renders all published posts of a published category.
// An unknown or unpublished slug is a uniform not-found.
func (b *BlogController) CategoryPosts(ctx *gin.Context) {
	slug := ctx.Param("slug")
	page := parsePage(ctx)

	var category models.Category
	err := b.db.Where("slug = ? AND is_published = ?", slug, true).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(ctx)
			return
		}
		utils.ServerError(ctx, err)
		return
	}

	cacheKey := fmt.Sprintf("cache:feed:cat=%s:page=%d", slug, page)
	var payload feedPayload
	if !utils.CacheGetJSON(cacheKey, &payload) {
		items, pagination, err := models.FetchFeedPage(
			b.db, time.Now(),
			models.FeedOptions{PublishedOnly: true, CategoryID: category.ID},
			page, config.Get().PostsPerPage,
		)
		if err != nil {
			utils.ServerError(ctx, err)
			return
		}
		payload = feedPayload{Items: items, Pagination: pagination}
		utils.CacheSetJSON(cacheKey, payload, 0)
	}

	utils.HTML(ctx, http.StatusOK, "blog/category", gin.H{
		"category":   category,
		"posts":      payload.Items,
		"pagination": payload.Pagination,
	})
}

// Profile renders a user's page with their posts. The owner sees everything,
// including drafts and scheduled posts; everyone else only the published
// subset.
func (b *BlogController) Profile(ctx *gin.Context) {
	username := ctx.Param("username")
	page := parsePage(ctx)

	var profile models.User
	err := b.db.Where("username = ?", username).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(ctx)
			return
		}
		utils.ServerError(ctx, err)
		return
	}

	own := utils.CurrentUserID(ctx) == profile.ID
	opt := models.FeedOptions{PublishedOnly: !own, AuthorID: profile.ID}

	var payload feedPayload
	cacheKey := fmt.Sprintf("cache:feed:profile=%s:page=%d", username, page)
	// Only the public rendering is cacheable; the owner's view includes drafts.
	cached := !own && utils.CacheGetJSON(cacheKey, &payload)
	if !cached {
		items, pagination, err := models.FetchFeedPage(
			b.db, time.Now(), opt, page, config.Get().PostsPerPage,
		)
		if err != nil {
			utils.ServerError(ctx, err)
			return
		}
		payload = feedPayload{Items: items, Pagination: pagination}
		if !own {
			utils.CacheSetJSON(cacheKey, payload, 0)
		}
	}

	utils.HTML(ctx, http.StatusOK, "blog/profile", gin.H{
		"profile":    profile,
		"own":        own,
		"posts":      payload.Items,
		"pagination": payload.Pagination,
	})
}

// PostDetail renders a post with its comment thread and an empty comment
// form. A post invisible to the viewer is indistinguishable from a missing
// one.
func (b *BlogController) PostDetail(ctx *gin.Context) {
	postID, ok := paramID(ctx, "id")
	if !ok {
		utils.NotFound(ctx)
		return
	}

	var post models.Post
	err := b.db.Preload("Author").Preload("Category").Preload("Location").
		First(&post, postID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(ctx)
			return
		}
		utils.ServerError(ctx, err)
		return
	}

	if !post.VisibleTo(utils.CurrentUserID(ctx), time.Now()) {
		utils.NotFound(ctx)
		return
	}

	var comments []models.Comment
	err = b.db.Preload("Author").
		Where("post_id = ?", post.ID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}

	// The view recorder counts this response after it renders, so the
	// current visit is added to the stored total here.
	utils.HTML(ctx, http.StatusOK, "blog/detail", gin.H{
		"post":     post,
		"comments": comments,
		"views":    models.PostViewTotal(b.db, post.ID) + 1,
	})
}

// parsePage reads the ?page= query, defaulting to the first page.
func parsePage(ctx *gin.Context) int {
	if n, err := strconv.Atoi(ctx.Query("page")); err == nil && n > 0 {
		return n
	}
	return 1
}

func paramID(ctx *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}
