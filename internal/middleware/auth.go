package middleware

import (
	"fmt"
	"strings"

	pkgAuth "rulecard-service/pkg/auth"
	appErr "rulecard-service/pkg/errors"
	"rulecard-service/pkg/response"

	"github.com/gin-gonic/gin"
)

const ContextSessionIDKey = "sessionID"

// SessionAuthRequired checks that the bearer token was issued for the
// session named by the :id path parameter.
func SessionAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := ExtractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			response.FromError(c, err)
			c.Abort()
			return
		}

		claims, err := pkgAuth.ParseSessionToken(token, c.Param("id"))
		if err != nil {
			response.FromError(c, fmt.Errorf("%w: invalid token", appErr.ErrUnauthorized))
			c.Abort()
			return
		}

		c.Set(ContextSessionIDKey, claims.SessionID)
		c.Next()
	}
}

func ExtractBearerToken(authHeader string) (string, error) {
	if strings.TrimSpace(authHeader) == "" {
		return "", fmt.Errorf("%w: missing authorization header", appErr.ErrUnauthorized)
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("%w: invalid authorization header", appErr.ErrUnauthorized)
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", fmt.Errorf("%w: invalid authorization header", appErr.ErrUnauthorized)
	}
	return token, nil
}
