package middleware

import (
	"net/http"
	"strings"

	"handyhub/models"
	"handyhub/utils"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWTAuthMiddleware.
const (
	PartyIDKey = "partyID"
	RoleKey    = "role"
)

// JWTAuthMiddleware verifies the bearer token and stores the caller's party ID and role on the
// context. Tokens whose role is not user, provider or admin are rejected.
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}

		partyID, role, err := utils.ExtractClaims(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil || partyID == "" || !models.Role(role).Valid() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(PartyIDKey, partyID)
		c.Set(RoleKey, models.Role(role))
		c.Next()
	}
}

// RequireRole lets through callers whose token carries one of roles. It must run after
// JWTAuthMiddleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, role := Identity(c)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient role"})
	}
}

// Identity returns what JWTAuthMiddleware stored, or zero values on an unauthenticated request.
func Identity(c *gin.Context) (string, models.Role) {
	role, _ := c.Get(RoleKey)
	r, _ := role.(models.Role)
	return c.GetString(PartyIDKey), r
}
