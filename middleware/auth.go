package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/gin-gonic/gin"

	"github.com/bedrock-gateway/bedrock-assumerole/common/config"
	"github.com/bedrock-gateway/bedrock-assumerole/common/ctxkey"
)

// TokenAuth requires `Authorization: Bearer <token>` when token is non-empty.
// An empty token lets every request through.
func TokenAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		key := strings.TrimSpace(strings.TrimPrefix(c.Request.Header.Get("Authorization"), "Bearer "))
		if key == "" {
			AbortWithError(c, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(token)) != 1 {
			AbortWithError(c, http.StatusUnauthorized, errors.New("invalid bearer token"))
			return
		}

		c.Set(ctxkey.TokenAuthenticated, true)
		c.Next()
	}
}

// APITokenAuth guards routes with config.APIToken.
func APITokenAuth() gin.HandlerFunc {
	return TokenAuth(config.APIToken)
}
