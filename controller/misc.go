package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bedrock-gateway/bedrock-assumerole/common"
	"github.com/bedrock-gateway/bedrock-assumerole/common/config"
	"github.com/bedrock-gateway/bedrock-assumerole/common/graceful"
)

func GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data": gin.H{
			"version":            common.Version,
			"start_time":         common.StartTime,
			"invocation_log":     config.InvocationLogEnabled,
			"redis":              common.IsRedisEnabled(),
			"prometheus_metrics": config.EnablePrometheusMetrics,
			"in_flight":          graceful.InFlight(),
			"draining":           graceful.IsDraining(),
		},
	})
}
