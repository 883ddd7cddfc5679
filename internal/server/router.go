package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/storygraph/kgraph-backend/internal/handlers"
	"github.com/storygraph/kgraph-backend/internal/platform/ctxutil"
)

type RouterConfig struct {
	GraphHandler   *handlers.GraphHandler
	AllowedOrigins []string
	GinMode        string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	router := gin.Default()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.Use(requestID())

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api/v1")
	{
		api.POST("/graphs/:namespace/ingest", cfg.GraphHandler.Ingest)
		api.POST("/graphs/:namespace/triples", cfg.GraphHandler.IngestTriples)
		api.GET("/graphs/:namespace/triples", cfg.GraphHandler.ListTriples)
		api.GET("/graphs/:namespace/top-nodes", cfg.GraphHandler.TopNodes)
		api.GET("/graphs/:namespace/stats", cfg.GraphHandler.Stats)
		api.DELETE("/graphs/:namespace", cfg.GraphHandler.Drop)
	}

	return router
}

// requestID threads request and trace ids through the context so batch logs
// can be correlated with their HTTP request.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		td := &ctxutil.TraceData{
			TraceID:   c.GetHeader("X-Trace-ID"),
			RequestID: id,
		}
		c.Request = c.Request.WithContext(ctxutil.WithTraceData(c.Request.Context(), td))
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
