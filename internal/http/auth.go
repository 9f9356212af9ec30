package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gitgate/internal/github"
)

// contextUserKey is the gin context key the resolved user is stored under
const contextUserKey = "user"

// authMiddleware gates proxy endpoints behind upstream token verification.
// The bearer token is checked against the provider's user endpoint on
// every request; validity is never cached, so a revoked token is rejected
// immediately at the cost of one upstream round trip per call.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "No token provided"})
			return
		}

		user, err := s.github.GetUser(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, github.ErrUnauthorized) {
				slog.WarnContext(c.Request.Context(), "rejected invalid token", "error", err)
				c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid token"})
				return
			}
			slog.ErrorContext(c.Request.Context(), "token verification failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "Error verifying token"})
			return
		}

		c.Set(contextUserKey, user)
		c.Next()
	}
}

// extractBearerToken pulls the token out of the Authorization header
func extractBearerToken(req *http.Request) string {
	auth := req.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// getUserFromContext extracts the middleware-resolved user from context
func getUserFromContext(c *gin.Context) (*github.User, bool) {
	if user, exists := c.Get(contextUserKey); exists {
		if u, ok := user.(*github.User); ok {
			return u, true
		}
	}
	return nil, false
}
