package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vitaegraph/vitae/internal/core/graphsync"
)

// Graph serves the projection read views, selected by the type query
// param: network, colleagues, career-paths, skill-migration, stats.
func (s *Server) Graph(c *gin.Context) {
	ctx := c.Request.Context()
	graph := s.engine.Graph()

	switch c.DefaultQuery("type", "network") {
	case "network":
		network, err := graph.Network(ctx, userID(c))
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, network)

	case "colleagues":
		colleagues, err := graph.Colleagues(ctx, userID(c))
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"colleagues": colleagues})

	case "career-paths":
		from, to := c.Query("from"), c.Query("to")
		if from == "" || to == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from and to roles are required"})
			return
		}
		paths, err := graph.CareerPaths(ctx, from, to)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"paths": paths})

	case "skill-migration":
		skill := c.Query("skill")
		if skill == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "skill is required"})
			return
		}
		migrations, err := graph.SkillMigration(ctx, skill)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"migrations": migrations})

	case "stats":
		stats, err := graph.Stats(ctx)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown graph view"})
	}
}

type GraphQueryRequest struct {
	Query  string                 `json:"query" binding:"required"`
	Params map[string]interface{} `json:"params"`
}

// GraphQuery runs a caller-supplied read-only query against the
// projection. Disabled in production; write verbs are rejected before
// execution either way.
func (s *Server) GraphQuery(c *gin.Context) {
	if s.cfg.IsProduction() {
		c.JSON(http.StatusForbidden, gin.H{"error": "custom queries are disabled in production"})
		return
	}

	var req GraphQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	rows, err := s.engine.Graph().CustomQuery(c.Request.Context(), req.Query, req.Params)
	if errors.Is(err, graphsync.ErrWriteQuery) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": rows})
}

// GraphCleanup drops the caller's projection. Disabled in production;
// the projection rebuilds from the relational store on the next sync.
func (s *Server) GraphCleanup(c *gin.Context) {
	if s.cfg.IsProduction() {
		c.JSON(http.StatusForbidden, gin.H{"error": "cleanup is disabled in production"})
		return
	}

	if err := s.engine.Graph().Cleanup(c.Request.Context(), userID(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleaned"})
}
