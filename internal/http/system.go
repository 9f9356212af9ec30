package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gitgate/internal/system"
)

// getSystemStats returns host statistics for the server process
func (s *Server) getSystemStats(c *gin.Context) {
	collector := system.NewCollector()

	stats, err := collector.GetSystemStats()
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to get system stats", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to retrieve system statistics",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}
