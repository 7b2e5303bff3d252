package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
	redisc "github.com/pagemind/core/internal/pkg/redis"
)

func RegisterRoutes(rg *gin.RouterGroup, rc *redisc.Client) {
	rg.GET("/health", func(c *gin.Context) {
		storeReady := rc.Ping(c.Request.Context()) == nil

		status := "ok"
		code := http.StatusOK
		if !storeReady {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"status":      status,
			"store_ready": storeReady,
		})
	})
}
