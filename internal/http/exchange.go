package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gitgate/internal/github"
)

// ExchangeRequest is the body accepted by the token exchange endpoint.
// The client secret never travels from the caller; it is injected from
// server configuration before the request is forwarded upstream.
type ExchangeRequest struct {
	Code        string `json:"code" binding:"required"`
	RedirectURI string `json:"redirect_uri" binding:"required"`
}

// exchangeToken forwards an authorization code to the provider's token
// endpoint and passes the provider's response through verbatim
func (s *Server) exchangeToken(c *gin.Context) {
	var req ExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(c.Request.Context(), "invalid exchange request", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format"})
		return
	}

	if !s.config.GitHub.HasOAuthCredentials() {
		slog.ErrorContext(c.Request.Context(), "github oauth configuration is missing")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "OAuth is not configured"})
		return
	}

	status, body, err := s.github.ExchangeCode(c.Request.Context(), github.ExchangeRequest{
		ClientID:     s.config.GitHub.ClientID,
		ClientSecret: s.config.GitHub.ClientSecret,
		Code:         req.Code,
		RedirectURI:  req.RedirectURI,
	})
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "token exchange failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Error exchanging code for token"})
		return
	}

	c.Data(status, "application/json", body)
}
