package jwtmw

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// ContextUserID holds the token subject (user id string).
	ContextUserID = "userID"
	// ContextClaims holds the verified *Claims.
	ContextClaims = "jwtClaims"
)

// AuthRequired returns a Gin middleware function that validates bearer tokens
// and restricts access to authenticated users only.
func AuthRequired(verifier Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Authorization ヘッダからトークンを取り出す
		tokenStr, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			unauthorized(c, "missing bearer token")
			return
		}

		// 2. 署名・アルゴリズム・有効期限を検証する
		claims, err := verifier.VerifyToken(tokenStr)
		if err != nil {
			slog.Warn("bearer token rejected", "error", err, "remote_addr", c.ClientIP())
			unauthorized(c, "invalid token")
			return
		}

		// 3. 後続ハンドラへ主体を渡す
		c.Set(ContextUserID, claims.Subject)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// UserID returns the authenticated subject set by AuthRequired.
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// bearerToken extracts the credentials of a "Bearer" Authorization header.
// The scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}
