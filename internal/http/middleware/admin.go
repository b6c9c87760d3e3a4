package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminKey guards write-back endpoints. With no key configured the guarded
// routes are disabled outright.
func AdminKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{"code": "admin_disabled", "message": "admin endpoints are not configured"},
			})
			return
		}
		supplied := c.GetHeader("X-Admin-Key")
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "unauthorized", "message": "invalid admin key"},
			})
			return
		}
		c.Next()
	}
}
