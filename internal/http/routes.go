package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(CORS(h.AllowedOrigins))
	r.Use(Metrics())

	// ops surface, outside the API-key gate
	r.GET("/health", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// browser navigations: the consent redirect carries neither a
	// trusted Origin nor an API key, so these sit outside the gate
	r.GET("/auth/google/init", RateLimit(h.Redis, h.RateLimitPerMin), h.GoogleInit)
	r.GET("/auth/google/callback", RateLimit(h.Redis, h.RateLimitPerMin), h.GoogleCallback)

	auth := r.Group("/auth",
		APIKeyGate(h.AllowedOrigins, h.APIKeys),
		RateLimit(h.Redis, h.RateLimitPerMin),
	)
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/google", h.GoogleAuth)
		auth.GET("/me", AuthRequired(h.JWTSecret), h.Me)
	}

	tasks := r.Group("/tasks",
		APIKeyGate(h.AllowedOrigins, h.APIKeys),
		AuthRequired(h.JWTSecret),
	)
	{
		tasks.GET("", h.ListTasks)
		tasks.POST("", h.CreateTask)
		tasks.GET("/:id", h.GetTask)
		tasks.PUT("/:id", h.UpdateTask)
		tasks.DELETE("/:id", h.DeleteTask)
	}

	return r
}
