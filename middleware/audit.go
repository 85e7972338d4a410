package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fitquest/fitquest/audit"
)

// Audit records mutating API requests (POST/PUT/DELETE) to the audit
// service after the handler has run. Reads are not audited.
func Audit(svc *audit.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case "POST", "PUT", "DELETE":
		default:
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		entry := audit.Entry{
			TraceID:    GetTraceID(c),
			Action:     c.Request.Method + " " + c.FullPath(),
			IP:         c.ClientIP(),
			DurationMs: int(time.Since(start).Milliseconds()),
			Response:   map[string]int{"status": c.Writer.Status()},
		}
		if userID := GetUserID(c); userID != 0 {
			entry.UserID = &userID
		}
		if len(c.Errors) > 0 {
			entry.Error = c.Errors.String()
		}
		svc.Log(entry)
	}
}
