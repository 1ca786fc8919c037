package handlers

import (
	"net/http"

	"handyhub/utils"

	"github.com/gin-gonic/gin"
)

// Counter reports a live count, such as open sockets or sessions.
type Counter func() int

// HealthHandler handles GET /health.
func HealthHandler(connections, sessions Counter) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := utils.GetHealthStatus()
		code := http.StatusOK
		if !status.Mongo {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"mongo":       status.Mongo,
			"redis":       status.Redis,
			"checkedAt":   status.CheckedAt,
			"connections": connections(),
			"sessions":    sessions(),
		})
	}
}
