package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"blogicum/models"
)

const (
	// ContextUserKey holds the authenticated *models.User, when any.
	ContextUserKey = "current_user"
	// ContextCSRFKey holds the CSRF token the form templates embed.
	ContextCSRFKey = "csrf_token"
)

// CurrentUser returns the viewer resolved by the session middleware, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(ContextUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// CurrentUserID returns the viewer's id, 0 for anonymous visitors.
func CurrentUserID(c *gin.Context) uint {
	if u := CurrentUser(c); u != nil {
		return u.ID
	}
	return 0
}

// HTML renders a template with the shared base context (viewer, csrf token)
// merged into data.
func HTML(c *gin.Context, status int, name string, data gin.H) {
	c.HTML(status, name, baseContext(c, data))
}

// NotFound renders the 404 page. Absent and invisible resources both land
// here so their existence is not leaked.
func NotFound(c *gin.Context) {
	c.Abort()
	c.HTML(http.StatusNotFound, "pages/404", baseContext(c, gin.H{}))
}

// CSRFFailure renders the 403 page used for rejected form tokens.
func CSRFFailure(c *gin.Context) {
	c.Abort()
	c.HTML(http.StatusForbidden, "pages/403csrf", baseContext(c, gin.H{}))
}

// ServerError logs err and renders the 500 page.
func ServerError(c *gin.Context, err error) {
	if Sugar != nil && err != nil {
		Sugar.Errorf("internal error on %s: %v", c.Request.URL.Path, err)
	}
	c.Abort()
	c.HTML(http.StatusInternalServerError, "pages/500", baseContext(c, gin.H{}))
}

func baseContext(c *gin.Context, data gin.H) gin.H {
	out := gin.H{}
	for k, v := range data {
		out[k] = v
	}
	out["viewer"] = CurrentUser(c)
	if token, ok := c.Get(ContextCSRFKey); ok {
		out["csrf_token"] = token
	} else {
		out["csrf_token"] = ""
	}
	return out
}
