package middleware

import (
	"errors"
	"net/http"

	"recipebox/internal/pkg/token"
	"recipebox/internal/service"

	"github.com/gin-gonic/gin"
)

// 写入 gin.Context 的键。
const (
	ContextUserID = "userID"
	ContextEmail  = "email"
	ContextClaims = "claims"
)

// TokenVerifier 校验 Bearer Token。
type TokenVerifier interface {
	VerifyToken(raw string) (*token.Claims, error)
}

// AuthMiddleware 校验 Authorization 头并将用户 ID 写入上下文。
//
// 缺少 token 返回 401，签名错误或过期返回 403，用户 ID 格式不合法返回 400。
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := token.FromHeader(c.GetHeader("Authorization"))
		claims, err := verifier.VerifyToken(raw)
		if err != nil {
			status, msg := authFailure(err)
			c.AbortWithStatusJSON(status, gin.H{"message": msg})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

func authFailure(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized."
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, service.MsgInvalidUserID
	default:
		return http.StatusForbidden, "Invalid token."
	}
}

// UserID 返回经过认证的用户 ID，未认证时为空字符串。
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
