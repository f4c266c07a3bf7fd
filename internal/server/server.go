package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vitaegraph/vitae/internal/config"
	"github.com/vitaegraph/vitae/internal/core"
	"github.com/vitaegraph/vitae/internal/logger"
)

// Server exposes the HTTP and websocket surface. Authentication happens
// upstream; the caller's identity arrives as the X-User-ID header and
// every query is scoped to it.
type Server struct {
	engine   *core.Engine
	cfg      *config.Config
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewServer(engine *core.Engine, cfg *config.Config) *Server {
	return &Server{
		engine: engine,
		cfg:    cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin checks belong to the proxy in front of us.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger.Get(),
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.Health)
	r.GET("/ws", s.WebSocket)

	api := r.Group("/api", s.identity())
	{
		api.POST("/extraction", s.Extract)

		api.POST("/batches", s.CreateBatch)
		api.GET("/batches", s.ListBatches)
		api.GET("/batches/:id", s.GetBatch)
		api.PUT("/batches/:id", s.UpdateBatch)
		api.DELETE("/batches/:id", s.DeleteBatch)

		api.POST("/commits", s.CreateCommit)
		api.GET("/commits", s.ListCommits)
		api.GET("/commits/:id", s.GetCommit)
		api.PUT("/commits/:id", s.ReviewCommit)
		api.DELETE("/commits/:id", s.DeleteCommit)

		api.GET("/timeline", s.Timeline)
		api.POST("/timeline", s.AddTimelineEvent)
		api.GET("/timeline/clusters", s.TimelineClusters)
		api.GET("/progression", s.Progression)

		api.GET("/graph", s.Graph)
		api.POST("/graph/query", s.GraphQuery)
		api.DELETE("/graph", s.GraphCleanup)
	}

	return r
}

// identity requires the X-User-ID header on every API route.
func (s *Server) identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "missing X-User-ID header"})
			return
		}
		c.Set("user_id", userID)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func userID(c *gin.Context) string {
	return c.GetString("user_id")
}
