package router

import (
	"github.com/gin-gonic/gin"

	"sudooom.fedi.sync/internal/config"
	"sudooom.fedi.sync/internal/handler"
	"sudooom.fedi.sync/internal/jwt"
	"sudooom.fedi.sync/internal/middleware"
)

// Handlers 路由使用的全部处理器
type Handlers struct {
	Auth         *handler.AuthHandler
	Conversation *handler.ConversationHandler
	Status       *handler.StatusHandler
	Thread       *handler.ThreadHandler
	Event        *handler.EventHandler
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, jwtService *jwt.Service, h Handlers) *gin.Engine {
	if cfg.HTTP.Mode != "" {
		gin.SetMode(cfg.HTTP.Mode)
	}

	r := gin.New()

	// 全局中间件
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(nil))
	r.Use(middleware.CORS(
		cfg.HTTP.CORS.AllowedOrigins,
		cfg.HTTP.CORS.AllowedMethods,
		cfg.HTTP.CORS.AllowCredentials,
	))

	v1 := r.Group("/api/v1")
	{
		// 认证接口（无需登录）
		v1.POST("/auth/token", h.Auth.Token)

		authenticated := v1.Group("")
		authenticated.Use(middleware.JWTAuth(jwtService))
		{
			conversations := authenticated.Group("/conversations")
			{
				conversations.GET("", h.Conversation.List)
				conversations.POST("/refresh", h.Conversation.Refresh)
				conversations.POST("/append", h.Conversation.Append)
				conversations.DELETE("/:id", h.Conversation.Delete)
				conversations.POST("/:id/read", h.Conversation.MarkRead)
			}

			statuses := authenticated.Group("/statuses/:id")
			{
				statuses.POST("/favourite", h.Status.Favourite)
				statuses.POST("/bookmark", h.Status.Bookmark)
				statuses.POST("/mute", h.Status.Mute)
				statuses.POST("/poll", h.Status.Vote)
				statuses.PUT("/view", h.Status.UpdateView)
				statuses.POST("/translation", h.Status.Translate)
				statuses.DELETE("/translation", h.Status.TranslateUndo)
			}

			authenticated.GET("/threads/:id", h.Thread.Get)
			authenticated.POST("/events", h.Event.Publish)
		}
	}

	return r
}
