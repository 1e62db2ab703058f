package main

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"inkwell/internal/api"
	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/db"
	"inkwell/internal/handlers"
	"inkwell/internal/middleware"
	"inkwell/internal/services"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using system environment")
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := config.Load()

	db.Init(cfg.DatabaseURL)

	// Cache backend: Redis when configured, in-process LRU otherwise. The
	// rate limiter is only effective with Redis and fails open without it.
	var redisClient *redis.Client
	var store cache.Store
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unreachable, falling back to memory cache")
			redisClient = nil
		}
	}
	if redisClient != nil {
		store = cache.NewRedisStore(redisClient, cfg.CachePrefix)
	} else {
		store = cache.NewMemoryStore(500)
	}
	log.Info().Str("backend", store.Backend()).Msg("cache ready")

	blog := services.NewBlogService(store)
	mail := services.NewMailService(cfg)
	uploader := services.NewImageUploader(cfg)
	limiter := middleware.NewRateLimiter(redisClient)
	services.GetAnalyticsService()

	go func() {
		if err := blog.WarmPopularContent(context.Background(), cfg.PostsPerPage, 10); err != nil {
			log.Warn().Err(err).Msg("cache warm-up failed")
		}
	}()
	go notificationJanitor()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.RequestLogger(log.Logger), gin.Recovery())

	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("inkwell_session", sessionStore))

	r.HTMLRender = loadTemplates("./web/templates")
	r.Static("/static", "./web/static")

	r.Use(middleware.LoadUser())
	r.Use(limiter.GeneralLimit())

	authHandler := handlers.NewAuthHandler(mail)
	blogHandler := handlers.NewBlogHandler(blog, uploader, mail, cfg)
	userHandler := handlers.NewUserHandler(blog, uploader, cfg)
	notificationHandler := handlers.NewNotificationHandler(cfg.CommentsPerPage)
	adminHandler := handlers.NewAdminHandler(blog, limiter, cfg)

	// Public pages
	r.GET("/", blogHandler.Index)
	r.GET("/about", blogHandler.About)
	r.GET("/contact", blogHandler.Contact)
	r.POST("/contact", blogHandler.SendContact)
	r.GET("/blog", blogHandler.Index)
	r.GET("/blog/categories", blogHandler.Categories)
	r.GET("/blog/category/:id", blogHandler.CategoryPosts)
	r.GET("/blog/post/:id", blogHandler.ShowPost)
	r.GET("/blog/search", blogHandler.Search)
	r.GET("/blog/trending", blogHandler.Trending)
	r.GET("/user/profile/:id", userHandler.ShowProfile)
	r.GET("/user/profile/:id/posts", userHandler.ShowPosts)
	r.GET("/user/profile/:id/followers", userHandler.ShowFollowers)
	r.GET("/user/profile/:id/following", userHandler.ShowFollowing)

	// Auth, with tighter windows on the credential endpoints
	auth := r.Group("/auth")
	{
		auth.GET("/register", authHandler.ShowRegister)
		auth.POST("/register", limiter.AuthLimit("register"), authHandler.Register)
		auth.GET("/login", authHandler.ShowLogin)
		auth.POST("/login", limiter.AuthLimit("login"), authHandler.Login)
		auth.GET("/logout", authHandler.Logout)
		auth.GET("/confirm/:token", authHandler.ConfirmEmail)
		auth.GET("/reset-password", authHandler.ShowResetRequest)
		auth.POST("/reset-password", limiter.AuthLimit("reset"), authHandler.RequestReset)
		auth.GET("/reset-password/:token", authHandler.ShowResetForm)
		auth.POST("/reset-password/:token", limiter.AuthLimit("reset"), authHandler.ResetPassword)
	}

	// Logged-in surface
	authorized := r.Group("/", middleware.AuthRequired())
	{
		authorized.GET("/blog/create", blogHandler.ShowCreatePost)
		authorized.POST("/blog/create", blogHandler.CreatePost)
		authorized.GET("/blog/post/:id/edit", blogHandler.ShowEditPost)
		authorized.POST("/blog/post/:id/edit", blogHandler.UpdatePost)
		authorized.POST("/blog/post/:id/delete", blogHandler.DeletePost)
		authorized.POST("/blog/post/:id/comment", blogHandler.CreateComment)
		authorized.POST("/blog/comment/:id/delete", blogHandler.DeleteComment)
		authorized.POST("/blog/post/:id/like", blogHandler.ToggleLike)
		authorized.GET("/blog/feed", blogHandler.Feed)

		authorized.GET("/user/edit", userHandler.ShowEditProfile)
		authorized.POST("/user/edit", userHandler.UpdateProfile)
		authorized.POST("/user/follow/:id", userHandler.Follow)
		authorized.POST("/user/unfollow/:id", userHandler.Unfollow)

		authorized.GET("/auth/change-password", authHandler.ShowChangePassword)
		authorized.POST("/auth/change-password", authHandler.ChangePassword)
		authorized.GET("/auth/resend-confirmation", authHandler.ResendConfirmation)

		authorized.GET("/notifications", notificationHandler.List)
		authorized.POST("/notifications/:id/read", notificationHandler.MarkRead)
		authorized.POST("/notifications/read-all", notificationHandler.MarkAllRead)
		authorized.POST("/notifications/:id/delete", notificationHandler.Delete)
		authorized.GET("/notifications/unread-count", notificationHandler.UnreadCount)
	}

	// Admin panel
	admin := r.Group("/admin", middleware.AdminRequired())
	{
		admin.GET("", adminHandler.Dashboard)
		admin.GET("/users", adminHandler.ListUsers)
		admin.POST("/users/:id/toggle-active", adminHandler.ToggleUserActive)
		admin.POST("/users/:id/role", adminHandler.ChangeUserRole)
		admin.POST("/users/:id/delete", adminHandler.DeleteUser)
		admin.GET("/posts", adminHandler.ListPosts)
		admin.POST("/posts/:id/delete", adminHandler.DeletePost)
		admin.GET("/comments", adminHandler.ListComments)
		admin.POST("/comments/:id/delete", adminHandler.DeleteComment)
		admin.GET("/categories", adminHandler.ListCategories)
		admin.POST("/categories", adminHandler.CreateCategory)
		admin.POST("/categories/:id/edit", adminHandler.UpdateCategory)
		admin.POST("/categories/:id/delete", adminHandler.DeleteCategory)
		admin.POST("/broadcast", adminHandler.Broadcast)
		admin.GET("/cache", adminHandler.CachePanel)
		admin.POST("/cache/flush", adminHandler.FlushCache)
		admin.POST("/cache/invalidate", adminHandler.InvalidatePattern)
		admin.POST("/cache/warm", adminHandler.WarmCache)
		admin.POST("/rate-limit/clear", adminHandler.ClearRateLimit)
	}

	// JSON API, JWT-authenticated where it mutates
	apiHandler := api.New(blog, cfg)
	apiHandler.Register(r.Group("/api/v1", limiter.APILimit()))

	log.Info().Str("addr", cfg.Addr).Msg("server starting")
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// notificationJanitor prunes expired notifications once an hour.
func notificationJanitor() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		if n, err := services.CleanupExpiredNotifications(); err != nil {
			log.Error().Err(err).Msg("notification cleanup failed")
		} else if n > 0 {
			log.Info().Int64("deleted", n).Msg("expired notifications removed")
		}
	}
}

func loadTemplates(templatesDir string) multitemplate.Renderer {
	r := multitemplate.NewRenderer()

	layouts, err := filepath.Glob(templatesDir + "/layouts/*.html")
	if err != nil {
		panic(err)
	}
	includes, err := filepath.Glob(templatesDir + "/includes/*.html")
	if err != nil {
		panic(err)
	}

	assemble := func(view string) []string {
		files := make([]string, 0, len(layouts)+len(includes)+1)
		files = append(files, layouts...)
		files = append(files, includes...)
		files = append(files, view)
		return files
	}

	funcMap := template.FuncMap{
		"dict": func(values ...interface{}) (map[string]interface{}, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"add":      func(a, b int) int { return a + b },
		"sub":      func(a, b int) int { return a - b },
		"deref":    func(p *uint) uint { return *p },
		"urlquery": url.QueryEscape,
		"timeAgo": func(t time.Time) string {
			seconds := int(time.Since(t).Seconds())
			switch {
			case seconds < 60:
				return "just now"
			case seconds < 3600:
				return fmt.Sprintf("%dm ago", seconds/60)
			case seconds < 86400:
				return fmt.Sprintf("%dh ago", seconds/3600)
			case seconds < 2592000:
				return fmt.Sprintf("%dd ago", seconds/86400)
			default:
				return t.Format("Jan 2, 2006")
			}
		},
		"truncate": func(s string, n int) string {
			runes := []rune(s)
			if len(runes) <= n {
				return s
			}
			return string(runes[:n]) + "…"
		},
	}

	views := []string{
		"error.html",
		"pages/about.html",
		"pages/contact.html",
		"auth/login.html",
		"auth/register.html",
		"auth/reset_request.html",
		"auth/reset_password.html",
		"auth/change_password.html",
		"blog/index.html",
		"blog/categories.html",
		"blog/category.html",
		"blog/post.html",
		"blog/create.html",
		"blog/edit.html",
		"blog/search.html",
		"blog/trending.html",
		"blog/feed.html",
		"user/profile.html",
		"user/posts.html",
		"user/edit_profile.html",
		"user/follow_list.html",
		"notification/list.html",
		"admin/dashboard.html",
		"admin/users.html",
		"admin/posts.html",
		"admin/comments.html",
		"admin/categories.html",
		"admin/cache.html",
	}
	for _, view := range views {
		r.AddFromFilesFuncs(view, funcMap, assemble(filepath.Join(templatesDir, "views", view))...)
	}

	return r
}
