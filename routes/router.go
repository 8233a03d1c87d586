package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/rangapin/forum/config"
	"github.com/rangapin/forum/controllers"
	"github.com/rangapin/forum/middleware"
	"github.com/rangapin/forum/realtime"
	"github.com/rangapin/forum/store"
	"github.com/rangapin/forum/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(st *store.Store, hub realtime.Hub) *gin.Engine {
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
	r.Use(utils.Ginzap(utils.Logger))
	r.Use(utils.RecoveryWithZap(utils.Logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
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

	r.Use(middleware.CurrentUser(st))

	r.LoadHTMLGlob("templates/*.html")
	r.Static("/static", "./static")

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(st)
	forumController := controllers.NewForumController(st, hub)

	// Public pages
	r.GET("/", forumController.Home)
	r.GET("/c/:category", forumController.CategoryPage)
	r.GET("/post/:id", forumController.PostPage)
	r.GET("/profile/:username", forumController.Profile)
	r.GET("/search", forumController.Search)

	// Event streams for open pages
	r.GET("/events/posts", forumController.PostEvents)
	r.GET("/events/posts/:id/replies", forumController.ReplyEvents)

	// Auth
	auth := r.Group("/auth")
	auth.Use(middleware.RateLimitMiddleware())
	auth.GET("/login", authController.LoginPage)
	auth.POST("/login", authController.Login)
	auth.GET("/oauth/:provider", authController.OAuthRedirect)
	auth.GET("/callback", authController.Callback)
	auth.POST("/logout", authController.Logout)

	// Writes require a session
	protected := r.Group("")
	protected.Use(middleware.RequireUser(), middleware.RateLimitMiddleware())
	protected.GET("/new", forumController.NewPostForm)
	protected.POST("/new", forumController.CreatePost)
	protected.POST("/post/:id/replies", forumController.CreateReply)
	protected.POST("/post/:id/delete", forumController.DeletePost)
	protected.POST("/reply/:id/delete", forumController.DeleteReply)
	protected.POST("/report", forumController.Report)

	r.NoRoute(func(ctx *gin.Context) {
		ctx.HTML(http.StatusNotFound, "notfound.html", gin.H{"User": middleware.UserFrom(ctx)})
	})

	return r
}
