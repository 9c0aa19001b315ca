package routes

import (
	"html/template"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"blogicum/config"
	"blogicum/controllers"
	"blogicum/middleware"
	"blogicum/templates"
	"blogicum/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-CSRF-Token"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Templates ship inside the binary; no working-directory dependence.
	r.SetHTMLTemplate(template.Must(template.ParseFS(templates.FS, "*.tmpl")))

	r.Static("/static", "./static")
	r.Static("/media", "./"+cfg.MediaRoot)

	r.Use(middleware.CurrentUser(db))
	r.Use(middleware.CSRF(cfg.CSRFEnabled))

	blogController := controllers.NewBlogController(db)
	postController := controllers.NewPostController(db)
	authController := controllers.NewAuthController(db)

	r.GET("/", blogController.Index)
	r.GET("/category/:slug/", blogController.CategoryPosts)
	r.GET("/profile/:username/", blogController.Profile)
	r.GET("/posts/:id/", middleware.PostViewRecorder(db), blogController.PostDetail)

	authGroup := r.Group("/auth")
	authGroup.Use(middleware.RateLimit())
	authGroup.GET("/login/", authController.LoginForm)
	authGroup.POST("/login/", authController.Login)
	authGroup.GET("/logout/", authController.Logout)
	authGroup.GET("/registration/", authController.RegisterForm)
	authGroup.POST("/registration/", authController.Register)
	authGroup.GET("/oauth/:provider/", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback/", authController.OAuthCallback)

	protected := r.Group("")
	protected.Use(middleware.LoginRequired(), middleware.RateLimit())
	protected.GET("/posts/create/", postController.CreatePost)
	protected.POST("/posts/create/", postController.CreatePost)
	protected.GET("/posts/:id/edit/", postController.EditPost)
	protected.POST("/posts/:id/edit/", postController.EditPost)
	protected.POST("/posts/:id/delete/", postController.DeletePost)
	protected.POST("/posts/:id/comment/", postController.CreateComment)
	protected.GET("/posts/:id/edit_comment/:cid/", postController.EditComment)
	protected.POST("/posts/:id/edit_comment/:cid/", postController.EditComment)
	protected.POST("/posts/:id/delete_comment/:cid/", postController.DeleteComment)
	protected.GET("/personal_info/", authController.EditProfileForm)
	protected.POST("/personal_info/", authController.EditProfile)

	r.NoRoute(func(ctx *gin.Context) {
		utils.NotFound(ctx)
	})

	return r
}
