package middleware

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"blogicum/models"
	"blogicum/utils"
)

// LoginURL is where anonymous visitors are sent when a page requires a session.
const LoginURL = "/auth/login/"

// CurrentUser resolves the viewer from the session cookie, if any, and makes
// it available to handlers and templates. Anonymous requests pass through.
func CurrentUser(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, err := ctx.Cookie(utils.SessionCookieName)
		if err != nil || token == "" {
			ctx.Next()
			return
		}
		if utils.IsTokenBlacklisted(token) {
			ctx.Next()
			return
		}
		claims, err := utils.ParseToken(token)
		if err != nil {
			ctx.Next()
			return
		}

		var user models.User
		if err := db.First(&user, claims.UserID).Error; err != nil {
			ctx.Next()
			return
		}

		ctx.Set(utils.ContextUserKey, &user)
		ctx.Next()
	}
}

// LoginRequired redirects anonymous visitors to the login page, carrying the
// original path so a successful login returns them.
func LoginRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if utils.CurrentUser(ctx) == nil {
			next := url.QueryEscape(ctx.Request.URL.RequestURI())
			ctx.Redirect(http.StatusFound, LoginURL+"?next="+next)
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
