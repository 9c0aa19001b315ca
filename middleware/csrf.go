package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"

	"blogicum/utils"
)

const (
	csrfCookieName = "blogicum_csrf"
	// CSRFFormField is the hidden input name the form templates render.
	CSRFFormField = "csrf_token"
	csrfTokenLen  = 32
)

// CSRF implements double-submit-cookie protection for form posts: every
// response carries a token cookie, every unsafe request must echo it in the
// form body (or the X-CSRF-Token header). Mismatches render the 403 page.
func CSRF(enabled bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !enabled {
			ctx.Set(utils.ContextCSRFKey, "")
			ctx.Next()
			return
		}

		token, err := ctx.Cookie(csrfCookieName)
		if err != nil || len(token) != csrfTokenLen*2 {
			token = newCSRFToken()
			ctx.SetSameSite(http.SameSiteLaxMode)
			ctx.SetCookie(csrfCookieName, token, 0, "/", "", false, false)
		}
		ctx.Set(utils.ContextCSRFKey, token)

		switch ctx.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			ctx.Next()
			return
		}

		sent := ctx.PostForm(CSRFFormField)
		if sent == "" {
			sent = ctx.GetHeader("X-CSRF-Token")
		}
		if sent == "" || subtle.ConstantTimeCompare([]byte(sent), []byte(token)) != 1 {
			utils.CSRFFailure(ctx)
			return
		}
		ctx.Next()
	}
}

func newCSRFToken() string {
	buf := make([]byte, csrfTokenLen)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
