package middleware

import (
	"net/http"
	"strings"

	"credential-client/internal/auth"
	"github.com/gin-gonic/gin"
)

const viewerIDContextKey = "viewerID"

func ViewerIDFromContext(c *gin.Context) (string, bool) {
	viewerID, ok := c.Get(viewerIDContextKey)
	if !ok {
		return "", false
	}
	value, ok := viewerID.(string)
	return value, ok && value != ""
}

// ViewToken reads a bearer token, falling back to the token query parameter
// used by browsers that cannot set headers (websocket, image tags).
func ViewToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return c.Query("token")
}

func RequireViewer(cfg auth.TokenConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := ViewToken(c)
		if tok == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid view token"})
			c.Abort()
			return
		}

		claims, err := auth.VerifyViewToken(tok, cfg)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid view token"})
			c.Abort()
			return
		}

		c.Set(viewerIDContextKey, claims.ViewerID)
		c.Next()
	}
}
