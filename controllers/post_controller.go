package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"blogicum/models"
	"blogicum/utils"
)

// PostController handles every mutation: posts, comments and their images.
// The injected Authorizer gates update and delete; a denied actor is
// redirected to the post's detail page before anything is written.
type PostController struct {
	db    *gorm.DB
	allow Authorizer
}

// NewPostController creates a PostController with the author-only policy.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db, allow: AuthorOnly}
}

// postForm carries the post form fields and their validation errors between
// the request and the re-rendered template.
type postForm struct {
	Title       string
	Text        string
	PubDate     string
	CategoryID  string
	LocationID  string
	IsPublished bool
	Errors      map[string]string
}

func (f *postForm) bind(ctx *gin.Context) {
	f.Title = utils.Sanitize(strings.TrimSpace(ctx.PostForm("title")))
	f.Text = utils.Sanitize(ctx.PostForm("text"))
	f.PubDate = strings.TrimSpace(ctx.PostForm("pub_date"))
	f.CategoryID = strings.TrimSpace(ctx.PostForm("category"))
	f.LocationID = strings.TrimSpace(ctx.PostForm("location"))
	f.IsPublished = ctx.PostForm("is_published") != ""
	f.Errors = map[string]string{}
}

func (f *postForm) validate() (time.Time, bool) {
	if f.Title == "" {
		f.Errors["title"] = "Title cannot be empty."
	}
	if strings.TrimSpace(f.Text) == "" {
		f.Errors["text"] = "Text cannot be empty."
	}
	pubDate := time.Now()
	if f.PubDate != "" {
		parsed, err := parsePubDate(f.PubDate)
		if err != nil {
			f.Errors["pub_date"] = "Enter a valid date and time."
		} else {
			pubDate = parsed
		}
	}
	return pubDate, len(f.Errors) == 0
}

func parsePubDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// CreatePost renders the post form on GET and persists a new post on POST.
func (pc *PostController) CreatePost(ctx *gin.Context) {
	viewer := utils.CurrentUser(ctx)

	if ctx.Request.Method == http.MethodGet {
		pc.renderPostForm(ctx, http.StatusOK, &postForm{IsPublished: true, Errors: map[string]string{}})
		return
	}

	var form postForm
	form.bind(ctx)
	pubDate, _ := form.validate()
	catID, locID := pc.resolveRefs(&form)
	if len(form.Errors) > 0 {
		pc.renderPostForm(ctx, http.StatusOK, &form)
		return
	}

	post := models.Post{
		Title:       form.Title,
		Text:        form.Text,
		PubDate:     pubDate,
		AuthorID:    viewer.ID,
		CategoryID:  catID,
		LocationID:  locID,
		IsPublished: form.IsPublished,
	}

	imageURL, imagePath, ok := pc.saveImage(ctx, &form)
	if !ok {
		pc.renderPostForm(ctx, http.StatusOK, &form)
		return
	}
	post.ImageURL = imageURL

	if err := pc.db.Create(&post).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}
	if imageURL != "" {
		_ = pc.db.Create(&models.PostImage{PostID: post.ID, FilePath: imagePath, URL: imageURL}).Error
	}

	utils.InvalidateByPrefix("cache:feed:")
	ctx.Redirect(http.StatusFound, profileURL(viewer.Username))
}

// EditPost lets the author change their post. Other users are silently
// redirected to the detail page.
func (pc *PostController) EditPost(ctx *gin.Context) {
	post, ok := pc.loadPost(ctx)
	if !ok {
		return
	}
	if !pc.allow(post.AuthorID, utils.CurrentUserID(ctx)) {
		ctx.Redirect(http.StatusFound, postDetailURL(post.ID))
		return
	}

	if ctx.Request.Method == http.MethodGet {
		form := postForm{
			Title:       post.Title,
			Text:        post.Text,
			PubDate:     post.PubDate.Format("2006-01-02T15:04"),
			CategoryID:  idString(post.CategoryID),
			LocationID:  idString(post.LocationID),
			IsPublished: post.IsPublished,
			Errors:      map[string]string{},
		}
		pc.renderPostForm(ctx, http.StatusOK, &form)
		return
	}

	var form postForm
	form.bind(ctx)
	pubDate, _ := form.validate()
	catID, locID := pc.resolveRefs(&form)
	if len(form.Errors) > 0 {
		pc.renderPostForm(ctx, http.StatusOK, &form)
		return
	}

	imageURL, imagePath, valid := pc.saveImage(ctx, &form)
	if !valid {
		pc.renderPostForm(ctx, http.StatusOK, &form)
		return
	}

	post.Title = form.Title
	post.Text = form.Text
	post.PubDate = pubDate
	post.CategoryID = catID
	post.LocationID = locID
	post.IsPublished = form.IsPublished
	if imageURL != "" {
		post.ImageURL = imageURL
	}

	if err := pc.db.Save(post).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}
	if imageURL != "" {
		_ = pc.db.Create(&models.PostImage{PostID: post.ID, FilePath: imagePath, URL: imageURL}).Error
	}

	utils.InvalidateByPrefix("cache:feed:")
	ctx.Redirect(http.StatusFound, postDetailURL(post.ID))
}

// DeletePost removes the author's post; its comments go with it through the
// schema's cascade.
func (pc *PostController) DeletePost(ctx *gin.Context) {
	post, ok := pc.loadPost(ctx)
	if !ok {
		return
	}
	viewer := utils.CurrentUser(ctx)
	if !pc.allow(post.AuthorID, viewer.ID) {
		ctx.Redirect(http.StatusFound, postDetailURL(post.ID))
		return
	}

	if err := pc.db.Delete(post).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	utils.InvalidateByPrefix("cache:feed:")
	ctx.Redirect(http.StatusFound, profileURL(viewer.Username))
}

// CreateComment appends a comment to an existing post and returns to its
// detail page.
func (pc *PostController) CreateComment(ctx *gin.Context) {
	post, ok := pc.loadPost(ctx)
	if !ok {
		return
	}
	viewer := utils.CurrentUser(ctx)

	text := utils.Sanitize(strings.TrimSpace(ctx.PostForm("text")))
	if text == "" {
		utils.HTML(ctx, http.StatusOK, "blog/comment", gin.H{
			"post":  post,
			"text":  "",
			"error": "Comment cannot be empty.",
		})
		return
	}

	comment := models.Comment{
		PostID:   post.ID,
		AuthorID: viewer.ID,
		Text:     text,
	}
	if err := pc.db.Create(&comment).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	utils.InvalidateByPrefix("cache:feed:")
	ctx.Redirect(http.StatusFound, postDetailURL(post.ID))
}

// EditComment lets the comment's author change its text.
func (pc *PostController) EditComment(ctx *gin.Context) {
	comment, ok := pc.loadComment(ctx)
	if !ok {
		return
	}
	if !pc.allow(comment.AuthorID, utils.CurrentUserID(ctx)) {
		ctx.Redirect(http.StatusFound, postDetailURL(comment.PostID))
		return
	}

	if ctx.Request.Method == http.MethodGet {
		utils.HTML(ctx, http.StatusOK, "blog/comment", gin.H{
			"comment": comment,
			"text":    comment.Text,
		})
		return
	}

	text := utils.Sanitize(strings.TrimSpace(ctx.PostForm("text")))
	if text == "" {
		utils.HTML(ctx, http.StatusOK, "blog/comment", gin.H{
			"comment": comment,
			"text":    "",
			"error":   "Comment cannot be empty.",
		})
		return
	}

	comment.Text = text
	if err := pc.db.Save(comment).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	utils.InvalidateByPrefix("cache:feed:")
	ctx.Redirect(http.StatusFound, postDetailURL(comment.PostID))
}

// DeleteComment removes the comment after the ownership check.
func (pc *PostController) DeleteComment(ctx *gin.Context) {
	comment, ok := pc.loadComment(ctx)
	if !ok {
		return
	}
	if !pc.allow(comment.AuthorID, utils.CurrentUserID(ctx)) {
		ctx.Redirect(http.StatusFound, postDetailURL(comment.PostID))
		return
	}

	if err := pc.db.Delete(comment).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	utils.InvalidateByPrefix("cache:feed:")
	ctx.Redirect(http.StatusFound, postDetailURL(comment.PostID))
}

// loadPost fetches the post from the :id route param, rendering not-found
// when it is absent.
func (pc *PostController) loadPost(ctx *gin.Context) (*models.Post, bool) {
	postID, ok := paramID(ctx, "id")
	if !ok {
		utils.NotFound(ctx)
		return nil, false
	}
	var post models.Post
	if err := pc.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(ctx)
		} else {
			utils.ServerError(ctx, err)
		}
		return nil, false
	}
	return &post, true
}

// loadComment fetches the comment from :cid, requiring it to belong to the
// post in :id.
func (pc *PostController) loadComment(ctx *gin.Context) (*models.Comment, bool) {
	postID, ok := paramID(ctx, "id")
	if !ok {
		utils.NotFound(ctx)
		return nil, false
	}
	commentID, ok := paramID(ctx, "cid")
	if !ok {
		utils.NotFound(ctx)
		return nil, false
	}
	var comment models.Comment
	err := pc.db.Where("id = ? AND post_id = ?", commentID, postID).First(&comment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(ctx)
		} else {
			utils.ServerError(ctx, err)
		}
		return nil, false
	}
	return &comment, true
}

// saveImage stores an uploaded image when one was sent. Upload problems are
// reported as form errors, not hard failures.
func (pc *PostController) saveImage(ctx *gin.Context, form *postForm) (string, string, bool) {
	header, err := ctx.FormFile("image")
	if err != nil {
		return "", "", true // no file sent
	}
	url, path, err := utils.SavePostImage(header)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrImageTooLarge):
			form.Errors["image"] = "Image is too large."
		case errors.Is(err, utils.ErrImageType):
			form.Errors["image"] = "Unsupported image type."
		default:
			form.Errors["image"] = "Could not store the image."
		}
		return "", "", false
	}
	return url, path, true
}

func (pc *PostController) renderPostForm(ctx *gin.Context, status int, form *postForm) {
	var categories []models.Category
	var locations []models.Location
	_ = pc.db.Where("is_published = ?", true).Order("title ASC").Find(&categories).Error
	_ = pc.db.Where("is_published = ?", true).Order("name ASC").Find(&locations).Error

	utils.HTML(ctx, status, "blog/create", gin.H{
		"form":       form,
		"categories": categories,
		"locations":  locations,
	})
}

// resolveRefs turns the submitted category and location ids into verified
// references. Stale or forged ids become field errors instead of foreign-key
// failures at write time.
func (pc *PostController) resolveRefs(form *postForm) (*uint, *uint) {
	catID := optionalID(form.CategoryID)
	if form.CategoryID != "" && catID == nil {
		form.Errors["category"] = "Select a valid category."
	}
	if catID != nil && !pc.rowExists(&models.Category{}, *catID) {
		form.Errors["category"] = "Select a valid category."
		catID = nil
	}

	locID := optionalID(form.LocationID)
	if form.LocationID != "" && locID == nil {
		form.Errors["location"] = "Select a valid location."
	}
	if locID != nil && !pc.rowExists(&models.Location{}, *locID) {
		form.Errors["location"] = "Select a valid location."
		locID = nil
	}
	return catID, locID
}

func (pc *PostController) rowExists(model interface{}, id uint) bool {
	var n int64
	if err := pc.db.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return false
	}
	return n > 0
}

func optionalID(s string) *uint {
	if s == "" {
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return nil
	}
	id := uint(n)
	return &id
}

func idString(id *uint) string {
	if id == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*id), 10)
}

func postDetailURL(id uint) string {
	return fmt.Sprintf("/posts/%d/", id)
}

func profileURL(username string) string {
	return "/profile/" + username + "/"
}
