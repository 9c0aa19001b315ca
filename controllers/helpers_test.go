package controllers_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"blogicum/config"
	"blogicum/models"
	"blogicum/routes"
	"blogicum/utils"
)

func newTestApp(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()

	config.Set(config.AppConfig{
		SessionSecret:      "test-secret",
		GinMode:            "test",
		RateLimitPerMinute: 100000,
	})

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Location{}, &models.Category{},
		&models.Post{}, &models.Comment{}, &models.PageView{}, &models.PostImage{},
	))

	return db, routes.SetupRouter(db)
}

func createUser(t *testing.T, db *gorm.DB, username, password string) models.User {
	t.Helper()
	u := models.User{Username: username}
	if password != "" {
		hash, err := utils.HashPassword(password)
		require.NoError(t, err)
		u.PasswordHash = hash
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func createCategory(t *testing.T, db *gorm.DB, slug string, published bool) models.Category {
	t.Helper()
	c := models.Category{Title: "Category " + slug, Slug: slug, IsPublished: published}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func createPost(t *testing.T, db *gorm.DB, p models.Post) models.Post {
	t.Helper()
	if p.Text == "" {
		p.Text = "text"
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func sessionCookie(t *testing.T, u models.User) *http.Cookie {
	t.Helper()
	token, err := utils.GenerateToken(u.ID, u.Username, time.Hour)
	require.NoError(t, err)
	return &http.Cookie{Name: utils.SessionCookieName, Value: token}
}

func doGET(r *gin.Engine, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doPOST(r *gin.Engine, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
