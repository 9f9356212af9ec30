package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// getProfile returns the user the auth middleware already resolved; no
// second upstream call is made
func (s *Server) getProfile(c *gin.Context) {
	user, exists := getUserFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Not authenticated"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Protected profile data",
		"user":    user,
	})
}

// getRepos re-issues the repository list call upstream with the caller's
// own bearer token and passes the JSON body through unmodified
func (s *Server) getRepos(c *gin.Context) {
	token := extractBearerToken(c.Request)

	body, err := s.github.GetUserReposRaw(c.Request.Context(), token)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to fetch repositories", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Error fetching repositories"})
		return
	}

	c.Data(http.StatusOK, "application/json", body)
}
