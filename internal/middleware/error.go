package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorHandler recovers panics and classifies request-scoped errors into
// HTTP status codes, generalized from the teacher's error middleware: a
// generic 500 body in production, full detail only in non-production logs
// (spec §7 "Unexpected exception").
func ErrorHandler(production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logrus.WithFields(logrus.Fields{
					"panic":     r,
					"path":      c.Request.URL.Path,
					"method":    c.Request.Method,
					"client_ip": c.ClientIP(),
				}).Error("panic recovered")

				body := gin.H{"error": "internal server error"}
				if !production {
					body["detail"] = r
				}
				c.JSON(http.StatusInternalServerError, body)
				c.Abort()
			}
		}()

		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last()
		logrus.WithFields(logrus.Fields{
			"error":     err.Error(),
			"path":      c.Request.URL.Path,
			"method":    c.Request.Method,
			"client_ip": c.ClientIP(),
		}).Error("request error")

		switch err.Type {
		case gin.ErrorTypeBind:
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		case gin.ErrorTypePublic:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			if production {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
		}
	}
}
