package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Logger emits one structured log line per request via the teacher's
// gin.LoggerWithFormatter pattern, with the status-to-level mapping the
// teacher's second, now-folded-in request logger used to apply separately.
func Logger() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		level := logrus.InfoLevel
		switch {
		case param.StatusCode >= 500:
			level = logrus.ErrorLevel
		case param.StatusCode >= 400:
			level = logrus.WarnLevel
		}

		logrus.WithFields(logrus.Fields{
			"status_code": param.StatusCode,
			"latency":     param.Latency,
			"client_ip":   param.ClientIP,
			"method":      param.Method,
			"path":        param.Path,
			"user_agent":  param.Request.UserAgent(),
			"error":       param.ErrorMessage,
		}).Log(level, "http request")

		return ""
	})
}
