package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

const (
	TokenTTL      = 24 * time.Hour
	MaxNameLength = 24
)

// Claims 游客令牌：sub 为随机 id，name 为显示名。
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

type GuestRequest struct {
	Name string `json:"name"`
}

type Handler struct {
	secret []byte
	now    func() time.Time
}

// 工厂方法：创建 handler
func NewHandler(secret []byte) *Handler {
	return &Handler{secret: secret, now: time.Now}
}

// Issue signs a guest token for name.
func Issue(secret []byte, name string, now time.Time) (string, error) {
	claims := Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken verifies signature and expiry.
func ParseToken(secret []byte, token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// POST /auth/guest
func (h *Handler) Guest(c *gin.Context) {
	if len(h.secret) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "guest login disabled"})
		return
	}
	var req GuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || len([]rune(name)) > MaxNameLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid name"})
		return
	}

	jwtStr, err := Issue(h.secret, name, h.now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "jwt generation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jwt": jwtStr})
}
