package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/bedrock-gateway/bedrock-assumerole/common/helper"
)

// RelayPanicRecover turns a panic in a Bedrock handler into a JSON 500.
func RelayPanicRecover() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				gmw.GetLogger(c).Error("panic detected",
					zap.Any("panic", err),
					zap.String("stacktrace", string(debug.Stack())),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path))
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": gin.H{
						"message": helper.MessageWithRequestId(fmt.Sprintf("Panic detected, error: %v", err), c.GetString(helper.RequestIdKey)),
						"type":    ErrorTypePanic,
					},
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}
