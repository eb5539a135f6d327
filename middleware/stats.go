package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seo-optimizer/metatags/logging"
)

// AnalyzedURLKey is the gin context key under which the analyze handler
// stores the submitted URL
const AnalyzedURLKey = "analyzed_url"

const analyzePath = "/api/analyze"

// Stats tracks visitors for every request and load time for analysis requests
func Stats(stats *logging.Statistics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		stats.TrackVisitor(c.ClientIP())

		c.Next()

		if c.Request.Method == http.MethodPost && c.FullPath() == analyzePath {
			loadTime := float64(time.Since(start).Milliseconds())
			stats.TrackAnalysis(c.GetString(AnalyzedURLKey), loadTime, c.Writer.Status() >= http.StatusBadRequest)
		}
	}
}
