package middleware

import (
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/bedrock-gateway/bedrock-assumerole/common/helper"
)

// RequestId assigns an id to every request, echoes it in the response header
// and tags the request logger with it.
func RequestId() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := helper.GenRequestID()
		c.Set(helper.RequestIdKey, id)
		c.Header(helper.RequestIdKey, id)
		gmw.SetLogger(c, gmw.GetLogger(c).With(zap.String("request_id", id)))
		c.Next()
	}
}
