package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/meal-analyzer/internal/metrics"
)

// shellRoute labels every request the gateway proxies, keeping label
// cardinality bounded.
const shellRoute = "shell"

func Metrics() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = shellRoute
		}
		status := strconv.Itoa(ctx.Writer.Status())
		elapsed := time.Since(start).Seconds()

		metrics.RequestDuration.WithLabelValues(status, ctx.Request.Method, route).Observe(elapsed)
		metrics.RequestCount.WithLabelValues(status, ctx.Request.Method, route).Inc()
	}
}
