package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/meegol/SIC-Gambling/internal/auth"
)

// 写入 gin.Context 的键
const (
	PlayerNameKey = "playerName"
	PlayerIDKey   = "playerID"
)

func tokenFrom(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	// 浏览器的 WebSocket 握手无法带自定义头
	return c.Query("token")
}

// JwtAuthMiddleware 校验游客令牌。required 为 false 时无令牌的请求直接放行，
// 但带了无效令牌仍然拒绝。
func JwtAuthMiddleware(secret []byte, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := tokenFrom(c)
		if tok == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
				return
			}
			c.Next()
			return
		}

		claims, err := auth.ParseToken(secret, tok)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(PlayerNameKey, claims.Name)
		c.Set(PlayerIDKey, claims.Subject)
		c.Next()
	}
}
