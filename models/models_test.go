package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCategoryDeleteKeepsPost(t *testing.T) {
	db := openTestDB(t)

	author := seedUser(t, db, "author")
	cat := seedCategory(t, db, "go", true)
	post := seedPost(t, db, Post{Title: "p", Text: "x", AuthorID: author.ID, CategoryID: &cat.ID, IsPublished: true})

	require.NoError(t, db.Delete(&Category{}, cat.ID).Error)

	var reloaded Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	require.Nil(t, reloaded.CategoryID)
}

func TestLocationDeleteKeepsPost(t *testing.T) {
	db := openTestDB(t)

	author := seedUser(t, db, "author")
	cat := seedCategory(t, db, "go", true)
	loc := Location{Name: "Somewhere", IsPublished: true}
	require.NoError(t, db.Create(&loc).Error)
	post := seedPost(t, db, Post{Title: "p", Text: "x", AuthorID: author.ID, CategoryID: &cat.ID, LocationID: &loc.ID, IsPublished: true})

	require.NoError(t, db.Delete(&Location{}, loc.ID).Error)

	var reloaded Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	require.Nil(t, reloaded.LocationID)
	require.NotNil(t, reloaded.CategoryID)
}

func TestUserDeleteCascades(t *testing.T) {
	db := openTestDB(t)

	author := seedUser(t, db, "author")
	commenter := seedUser(t, db, "commenter")
	cat := seedCategory(t, db, "go", true)
	post := seedPost(t, db, Post{Title: "p", Text: "x", AuthorID: author.ID, CategoryID: &cat.ID, IsPublished: true})
	require.NoError(t, db.Create(&Comment{PostID: post.ID, AuthorID: commenter.ID, Text: "hi"}).Error)

	require.NoError(t, db.Delete(&User{}, author.ID).Error)

	var postCount, commentCount int64
	db.Model(&Post{}).Count(&postCount)
	db.Model(&Comment{}).Count(&commentCount)
	require.EqualValues(t, 0, postCount)
	require.EqualValues(t, 0, commentCount)
}

func TestPostDeleteCascadesComments(t *testing.T) {
	db := openTestDB(t)

	author := seedUser(t, db, "author")
	cat := seedCategory(t, db, "go", true)
	post := seedPost(t, db, Post{Title: "p", Text: "x", AuthorID: author.ID, CategoryID: &cat.ID, IsPublished: true})
	keep := seedPost(t, db, Post{Title: "keep", Text: "x", AuthorID: author.ID, CategoryID: &cat.ID, IsPublished: true})
	require.NoError(t, db.Create(&Comment{PostID: post.ID, AuthorID: author.ID, Text: "gone"}).Error)
	require.NoError(t, db.Create(&Comment{PostID: keep.ID, AuthorID: author.ID, Text: "stays"}).Error)

	require.NoError(t, db.Delete(&Post{}, post.ID).Error)

	var comments []Comment
	require.NoError(t, db.Find(&comments).Error)
	require.Len(t, comments, 1)
	require.Equal(t, keep.ID, comments[0].PostID)
}

func TestCategorySlugUnique(t *testing.T) {
	db := openTestDB(t)

	seedCategory(t, db, "go", true)
	dup := Category{Title: "Go again", Slug: "go", IsPublished: true}
	require.Error(t, db.Create(&dup).Error)
}

func TestPostViewTotal(t *testing.T) {
	db := openTestDB(t)

	author := seedUser(t, db, "author")
	cat := seedCategory(t, db, "go", true)
	post := seedPost(t, db, Post{Title: "p", Text: "x", AuthorID: author.ID, CategoryID: &cat.ID, IsPublished: true})

	day1 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&PageView{Date: day1, PostID: post.ID, Count: 3}).Error)
	require.NoError(t, db.Create(&PageView{Date: day2, PostID: post.ID, Count: 4}).Error)

	require.EqualValues(t, 7, PostViewTotal(db, post.ID))
	require.EqualValues(t, 0, PostViewTotal(db, post.ID+1))
}

func TestPostDefaultsPubDate(t *testing.T) {
	db := openTestDB(t)

	author := seedUser(t, db, "author")
	cat := seedCategory(t, db, "go", true)
	post := seedPost(t, db, Post{Title: "p", Text: "x", AuthorID: author.ID, CategoryID: &cat.ID, IsPublished: true})

	require.False(t, post.PubDate.IsZero())
	require.WithinDuration(t, time.Now(), post.PubDate, time.Minute)
}
