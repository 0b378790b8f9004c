package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/d60-Lab/anotoki/docs"
	"github.com/d60-Lab/anotoki/internal/api/handler"
	"github.com/d60-Lab/anotoki/internal/api/middleware"
	"github.com/d60-Lab/anotoki/internal/auth"
)

// Options 路由可选项
type Options struct {
	ServiceName string
	Limiter     *middleware.Limiter
	Swagger     bool
}

// Setup 注册全部路由；/api 下除 /api/auth/* 外都需要登录
func Setup(h *handler.Handler, tokens *auth.TokenManager, opts Options) *gin.Engine {
	r := gin.New()
	if opts.ServiceName == "" {
		opts.ServiceName = "anotoki"
	}
	r.Use(
		middleware.Recovery(),
		otelgin.Middleware(opts.ServiceName),
		middleware.Logger(),
		gzip.Gzip(gzip.DefaultCompression),
	)

	r.GET("/healthz", h.Health)
	if opts.Swagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authGroup := r.Group("/api/auth")
	{
		authGroup.GET("/login", h.Login)
		authGroup.GET("/callback", h.Callback)
		authGroup.POST("/logout", h.Logout)
	}

	api := r.Group("/api", middleware.Auth(tokens, h.CookieName()))
	{
		api.GET("/session", h.Session)
		api.GET("/categories", h.ListCategories)
		api.GET("/categories/:slug", h.GetCategory)

		posts := api.Group("/posts")
		posts.GET("", h.ListPosts)
		posts.GET("/:id", h.GetPost)

		write := posts.Group("", middleware.RateLimit(opts.Limiter))
		write.POST("", h.CreatePost)
		write.PUT("/:id", h.UpdatePost)
		write.DELETE("/:id", h.DeletePost)
		write.POST("/:id/reactions", h.AddReaction)
		write.DELETE("/:id/reactions", h.RemoveReaction)
	}
	return r
}
