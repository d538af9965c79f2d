package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/bedrock-gateway/bedrock-assumerole/common/config"
	"github.com/bedrock-gateway/bedrock-assumerole/controller"
	"github.com/bedrock-gateway/bedrock-assumerole/middleware"
)

func SetApiRouter(server *gin.Engine, bedrock *controller.Bedrock) error {
	subnets, err := middleware.SubnetAllowlist(config.APIAllowedSubnets)
	if err != nil {
		return err
	}

	apiRouter := server.Group("/api")
	apiRouter.Use(gzip.Gzip(gzip.DefaultCompression))
	{
		apiRouter.GET("/status", controller.GetStatus)

		bedrockRoute := apiRouter.Group("/bedrock")
		bedrockRoute.Use(subnets, middleware.APITokenAuth(), middleware.RelayPanicRecover())
		{
			bedrockRoute.GET("/models", bedrock.ListModels)
			bedrockRoute.GET("/resolve", bedrock.ResolveModel)
			bedrockRoute.POST("/invoke", bedrock.Invoke)
			bedrockRoute.POST("/chat", bedrock.Chat)
			bedrockRoute.POST("/credentials/test", bedrock.TestCredentials)
			bedrockRoute.GET("/logs", controller.ListLogs)
			bedrockRoute.GET("/logs/stats", controller.GetLogStats)
		}
	}
	return nil
}
