package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Health check endpoint (no auth required)
	s.engine.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "gitgate",
		})
	})

	// Token exchange - the only unauthenticated API operation besides health
	s.engine.POST("/api/login/oauth/access_token", s.exchangeToken)

	// Proxy endpoints - all gated by upstream token verification
	user := s.engine.Group("/api/user")
	user.Use(s.authMiddleware())
	{
		user.GET("/profile", s.getProfile)
		user.GET("/repos", s.getRepos)
	}

	// Host statistics, gated like the proxy endpoints
	system := s.engine.Group("/api/system")
	system.Use(s.authMiddleware())
	{
		system.GET("", s.getSystemStats)
	}
}
