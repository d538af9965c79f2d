package middleware

import (
	"net/http"

	"github.com/Laisky/errors/v2"
	"github.com/gin-gonic/gin"

	"github.com/bedrock-gateway/bedrock-assumerole/common/network"
)

// SubnetAllowlist rejects clients outside subnets, a comma separated CIDR
// list. An empty list allows everyone.
func SubnetAllowlist(subnets string) (gin.HandlerFunc, error) {
	nets, err := network.ParseSubnets(subnets)
	if err != nil {
		return nil, errors.Wrap(err, "parse allowed subnets")
	}

	return func(c *gin.Context) {
		if len(nets) == 0 {
			c.Next()
			return
		}
		if ip := c.ClientIP(); !network.ContainsIP(nets, ip) {
			AbortWithError(c, http.StatusForbidden, errors.Errorf("client ip %s is not allowed", ip))
			return
		}
		c.Next()
	}, nil
}
