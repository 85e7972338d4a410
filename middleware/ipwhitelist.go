package middleware

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
)

// IPWhitelist restricts a route group (the admin tree) to the given
// addresses. Entries may be plain IPs or CIDR blocks. An empty list
// disables the check, for local development.
func IPWhitelist(entries []string) gin.HandlerFunc {
	exact := make(map[string]bool, len(entries))
	var blocks []*net.IPNet
	for _, e := range entries {
		if _, block, err := net.ParseCIDR(e); err == nil {
			blocks = append(blocks, block)
			continue
		}
		exact[e] = true
	}

	allowed := func(ip string) bool {
		if exact[ip] {
			return true
		}
		parsed := net.ParseIP(ip)
		if parsed == nil {
			return false
		}
		for _, block := range blocks {
			if block.Contains(parsed) {
				return true
			}
		}
		return false
	}

	return func(c *gin.Context) {
		if len(exact) == 0 && len(blocks) == 0 {
			c.Next()
			return
		}
		if !allowed(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
		c.Next()
	}
}
