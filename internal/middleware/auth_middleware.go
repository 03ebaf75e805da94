package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/pkg/jwt"
)

// UserContextKey is the key used to store user information in Gin context
const UserContextKey = "user"

// UserContext represents the authenticated user's information
type UserContext struct {
	UserID   string   `json:"user_id"`
	Roles    []string `json:"roles"`
	Operator string   `json:"operator,omitempty"`
}

// HasRole reports whether the user carries any of roles
func (u UserContext) HasRole(roles ...string) bool {
	for _, want := range roles {
		for _, have := range u.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// IsAdmin reports whether the user carries the admin role
func (u UserContext) IsAdmin() bool {
	return u.HasRole(jwt.RoleAdmin)
}

// AuthMiddleware creates a middleware that validates JWT bearer tokens
func AuthMiddleware(jwtService *jwt.Service, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.WithFields(logrus.Fields{
			"path": c.Request.URL.Path,
			"ip":   c.ClientIP(),
		})

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Debug("auth failed: missing authorization header")
			abort(c, http.StatusUnauthorized, "MISSING_AUTH_HEADER", "Authorization header is required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			log.Debug("auth failed: invalid authorization header format")
			abort(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Invalid authorization header format. Expected: Bearer <token>")
			return
		}

		claims, err := jwtService.ValidateAccessToken(strings.TrimSpace(parts[1]))
		if err != nil {
			log.WithError(err).Info("auth failed")
			if errors.Is(err, jwt.ErrTokenExpired) {
				abort(c, http.StatusUnauthorized, "TOKEN_EXPIRED", "Access token has expired")
				return
			}
			abort(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid access token")
			return
		}

		c.Set(UserContextKey, UserContext{
			UserID:   claims.Subject,
			Roles:    claims.Roles,
			Operator: claims.Operator,
		})
		c.Next()
	}
}

// RequireRole lets the request through when the user has any of roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userCtx, exists := GetUserContext(c)
		if !exists {
			abort(c, http.StatusUnauthorized, "MISSING_USER_CONTEXT", "User context not found")
			return
		}

		if !userCtx.HasRole(roles...) {
			abort(c, http.StatusForbidden, "INSUFFICIENT_PERMISSIONS", "You don't have permission to access this resource")
			return
		}

		c.Next()
	}
}

// GetUserContext retrieves the user context from Gin context
func GetUserContext(c *gin.Context) (UserContext, bool) {
	value, exists := c.Get(UserContextKey)
	if !exists {
		return UserContext{}, false
	}
	userCtx, ok := value.(UserContext)
	return userCtx, ok
}

// abort writes the same error body the handlers use
func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"status":  status,
		"code":    code,
		"message": message,
	})
}
