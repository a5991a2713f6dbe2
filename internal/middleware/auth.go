package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"sudooom.fedi.sync/internal/jwt"
	"sudooom.fedi.sync/internal/model"
	"sudooom.fedi.sync/pkg/response"
	appErrors "sudooom.fedi.sync/pkg/errors"
)

const accountIDKey = "account_id"

// JWTAuth JWT 认证中间件，通过后请求上下文中带有账号ID
func JWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c.GetHeader("Authorization"))
		if token == "" {
			response.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := jwtService.Validate(token)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				response.Error(c, appErrors.ErrTokenExpired)
			} else {
				response.Error(c, appErrors.ErrTokenInvalid)
			}
			c.Abort()
			return
		}

		c.Set(accountIDKey, claims.AccountID)
		c.Next()
	}
}

// extractToken 从 Authorization header 提取 token
func extractToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// GetAccountID 从 context 获取账号ID
func GetAccountID(c *gin.Context) model.AccountID {
	v, exists := c.Get(accountIDKey)
	if !exists {
		return 0
	}
	id, _ := v.(model.AccountID)
	return id
}
