package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/linkfeed/config"
	"github.com/cppla/linkfeed/controllers"
	"github.com/cppla/linkfeed/middleware"
	"github.com/cppla/linkfeed/services"
	"github.com/cppla/linkfeed/utils"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	Config    config.AppConfig
	Posts     *services.PostService
	Feed      *services.FeedService
	Users     *services.UserService
	Blacklist *utils.TokenBlacklist
	// AccessLog receives one line per request; nil disables access logging.
	AccessLog *zap.Logger
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(d Deps) *gin.Engine {
	cfg := d.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = int64(max(cfg.UploadMaxMB, 1)) << 20
	if d.AccessLog != nil {
		r.Use(ginzap.Ginzap(d.AccessLog, time.RFC3339, true))
		r.Use(ginzap.RecoveryWithZap(d.AccessLog, true))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Static("/assets", cfg.AssetsDir)
	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authRequired := middleware.AuthRequired(d.Blacklist)
	feedAuth := middleware.AuthOptional(d.Blacklist)
	if cfg.FeedRequiresAuth {
		feedAuth = authRequired
	}
	limited := middleware.RateLimit(cfg.RateLimitPerMinute)

	authController := controllers.NewAuthController(d.Users)
	userController := controllers.NewUserController(d.Users)
	postController := controllers.NewPostController(d.Posts, d.Feed)

	authGroup := r.Group("/auth")
	authGroup.Use(limited)
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", authRequired, authController.Logout)

	usersGroup := r.Group("/users", authRequired)
	usersGroup.GET("/:id", userController.GetUser)
	usersGroup.GET("/:id/friends", userController.GetUserFriends)
	usersGroup.PATCH("/:id/:friendId", limited, userController.AddRemoveFriend)

	postsGroup := r.Group("/posts")
	postsGroup.GET("", feedAuth, postController.ListPosts)
	postsGroup.GET("/:userId/posts", feedAuth, postController.ListUserPosts)
	postsGroup.POST("", authRequired, limited, postController.CreatePost)
	postsGroup.PATCH("/:id/like", authRequired, limited, postController.LikePost)
	postsGroup.POST("/:id/comments", authRequired, limited, postController.CommentPost)

	return r
}
