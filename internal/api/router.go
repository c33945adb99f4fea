package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = "request_id"

// RequestLogger tags each request with an X-Request-ID and logs it when it completes.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)

		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("request_id", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if c.Writer.Status() >= 500 {
			logger.Warn("request", fields...)
			return
		}
		logger.Info("request", fields...)
	}
}

// NewRouter registers all routes on a new gin engine.
func NewRouter(h *Handler, allowOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(h.Logger))

	// Configure CORS middleware
	corsConfig := cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Client-ID", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	r.Use(cors.New(corsConfig))

	r.GET("/health", h.Health)
	r.GET("/thumbnails/:id", h.Thumbnail)

	api := r.Group("/api")
	api.GET("/search", h.Search)
	api.GET("/recipes/:id", h.GetRecipe)
	api.GET("/random", h.Random)
	api.GET("/categories", h.Categories)
	api.GET("/home", h.Home)

	api.GET("/favorites", h.ListFavorites)
	api.GET("/favorites/:id", h.GetFavorite)
	api.POST("/favorites", h.AddFavorite)
	api.POST("/favorites/toggle", h.ToggleFavorite)
	api.DELETE("/favorites/:id", h.RemoveFavorite)

	return r
}
