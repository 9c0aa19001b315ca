package controllers_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"blogicum/models"
)

func TestHomeShowsOnlyPublicPosts(t *testing.T) {
	db, r := newTestApp(t)
	now := time.Now()

	author := createUser(t, db, "author", "")
	visible := createCategory(t, db, "go", true)
	hidden := createCategory(t, db, "secret", false)

	createPost(t, db, models.Post{Title: "public-post", AuthorID: author.ID,
		CategoryID: &visible.ID, IsPublished: true, PubDate: now.Add(-time.Hour)})
	createPost(t, db, models.Post{Title: "draft-post", AuthorID: author.ID,
		CategoryID: &visible.ID, IsPublished: false, PubDate: now.Add(-time.Hour)})
	createPost(t, db, models.Post{Title: "future-post", AuthorID: author.ID,
		CategoryID: &visible.ID, IsPublished: true, PubDate: now.Add(time.Hour)})
	createPost(t, db, models.Post{Title: "hidden-cat-post", AuthorID: author.ID,
		CategoryID: &hidden.ID, IsPublished: true, PubDate: now.Add(-time.Hour)})

	w := doGET(r, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	require.Contains(t, body, "public-post")
	require.NotContains(t, body, "draft-post")
	require.NotContains(t, body, "future-post")
	require.NotContains(t, body, "hidden-cat-post")
}

func TestPostDetailVisibility(t *testing.T) {
	db, r := newTestApp(t)
	now := time.Now()

	author := createUser(t, db, "author", "")
	other := createUser(t, db, "other", "")
	cat := createCategory(t, db, "go", true)
	scheduled := createPost(t, db, models.Post{Title: "scheduled", AuthorID: author.ID,
		CategoryID: &cat.ID, IsPublished: true, PubDate: now.Add(time.Hour)})

	path := fmt.Sprintf("/posts/%d/", scheduled.ID)

	// Anonymous visitors and other users get the uniform not-found page.
	require.Equal(t, http.StatusNotFound, doGET(r, path, nil).Code)
	require.Equal(t, http.StatusNotFound, doGET(r, path, sessionCookie(t, other)).Code)

	w := doGET(r, path, sessionCookie(t, author))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "scheduled")
}

func TestPostDetailMissing(t *testing.T) {
	_, r := newTestApp(t)
	require.Equal(t, http.StatusNotFound, doGET(r, "/posts/12345/", nil).Code)
	require.Equal(t, http.StatusNotFound, doGET(r, "/posts/abc/", nil).Code)
}

func TestPostDetailCountsViews(t *testing.T) {
	db, r := newTestApp(t)
	now := time.Now()

	author := createUser(t, db, "author", "")
	cat := createCategory(t, db, "go", true)
	post := createPost(t, db, models.Post{Title: "seen", AuthorID: author.ID,
		CategoryID: &cat.ID, IsPublished: true, PubDate: now.Add(-time.Hour)})

	path := fmt.Sprintf("/posts/%d/", post.ID)

	// The page counts its own visit, so the very first view already shows 1.
	first := doGET(r, path, nil)
	require.Equal(t, http.StatusOK, first.Code)
	require.Contains(t, first.Body.String(), "1 views")

	second := doGET(r, path, nil)
	require.Equal(t, http.StatusOK, second.Code)
	require.Contains(t, second.Body.String(), "2 views")

	require.EqualValues(t, 2, models.PostViewTotal(db, post.ID))
}

func TestPostDetailCommentsChronological(t *testing.T) {
	db, r := newTestApp(t)
	now := time.Now()

	author := createUser(t, db, "author", "")
	cat := createCategory(t, db, "go", true)
	post := createPost(t, db, models.Post{Title: "threaded", AuthorID: author.ID,
		CategoryID: &cat.ID, IsPublished: true, PubDate: now.Add(-time.Hour)})

	// Insert the newer comment first so insertion order and thread order differ.
	newer := models.Comment{PostID: post.ID, AuthorID: author.ID,
		Text: "newer-comment", CreatedAt: now.Add(-time.Minute)}
	require.NoError(t, db.Create(&newer).Error)
	older := models.Comment{PostID: post.ID, AuthorID: author.ID,
		Text: "older-comment", CreatedAt: now.Add(-30 * time.Minute)}
	require.NoError(t, db.Create(&older).Error)

	w := doGET(r, fmt.Sprintf("/posts/%d/", post.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	oldest := strings.Index(body, "older-comment")
	newest := strings.Index(body, "newer-comment")
	require.NotEqual(t, -1, oldest)
	require.NotEqual(t, -1, newest)
	require.Less(t, oldest, newest)
}

func TestProfileDraftsOnlyForOwner(t *testing.T) {
	db, r := newTestApp(t)
	now := time.Now()

	author := createUser(t, db, "author", "")
	cat := createCategory(t, db, "go", true)
	createPost(t, db, models.Post{Title: "published-entry", AuthorID: author.ID,
		CategoryID: &cat.ID, IsPublished: true, PubDate: now.Add(-time.Hour)})
	createPost(t, db, models.Post{Title: "draft-entry", AuthorID: author.ID,
		CategoryID: &cat.ID, IsPublished: false, PubDate: now.Add(-time.Hour)})

	anon := doGET(r, "/profile/author/", nil)
	require.Equal(t, http.StatusOK, anon.Code)
	require.Contains(t, anon.Body.String(), "published-entry")
	require.NotContains(t, anon.Body.String(), "draft-entry")

	own := doGET(r, "/profile/author/", sessionCookie(t, author))
	require.Equal(t, http.StatusOK, own.Code)
	require.Contains(t, own.Body.String(), "draft-entry")
}

func TestProfileUnknownUser(t *testing.T) {
	_, r := newTestApp(t)
	require.Equal(t, http.StatusNotFound, doGET(r, "/profile/nobody/", nil).Code)
}

func TestCategoryPage(t *testing.T) {
	db, r := newTestApp(t)
	now := time.Now()

	author := createUser(t, db, "author", "")
	goCat := createCategory(t, db, "go", true)
	hidden := createCategory(t, db, "secret", false)
	createPost(t, db, models.Post{Title: "go-entry", AuthorID: author.ID,
		CategoryID: &goCat.ID, IsPublished: true, PubDate: now.Add(-time.Hour)})

	w := doGET(r, "/category/go/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "go-entry")

	// Unknown and unpublished slugs are both not-found.
	require.Equal(t, http.StatusNotFound, doGET(r, "/category/none/", nil).Code)
	require.Equal(t, http.StatusNotFound, doGET(r, "/category/"+hidden.Slug+"/", nil).Code)
}
