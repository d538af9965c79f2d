package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bedrock-gateway/bedrock-assumerole/common"
	"github.com/bedrock-gateway/bedrock-assumerole/common/config"
	"github.com/bedrock-gateway/bedrock-assumerole/common/graceful"
	"github.com/bedrock-gateway/bedrock-assumerole/common/logger"
	"github.com/bedrock-gateway/bedrock-assumerole/controller"
	"github.com/bedrock-gateway/bedrock-assumerole/middleware"
	"github.com/bedrock-gateway/bedrock-assumerole/model"
	"github.com/bedrock-gateway/bedrock-assumerole/relay/adaptor/aws"
	"github.com/bedrock-gateway/bedrock-assumerole/relay/adaptor/aws/assumerole"
	relaycontroller "github.com/bedrock-gateway/bedrock-assumerole/relay/controller"
	"github.com/bedrock-gateway/bedrock-assumerole/router"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	common.Init()
	logger.SetupLogger()
	logger.SetupHostLogger()

	logger.Logger.Info("bedrock gateway started", zap.String("version", common.Version))

	if config.GinMode != "" {
		gin.SetMode(config.GinMode)
	} else if os.Getenv("GIN_MODE") != gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Redis
	if err := common.InitRedisClient(); err != nil {
		logger.Logger.Fatal("failed to initialize Redis", zap.Error(err))
	}

	var cache assumerole.Cache = assumerole.NewMemoryCache()
	if common.IsRedisEnabled() {
		cache = assumerole.NewRedisCache(common.RDB, config.CredentialCacheRedisPrefix)
	}
	provider := assumerole.NewProvider(
		assumerole.WithCache(cache),
		assumerole.WithExpiryBuffer(config.CredentialExpiryBuffer),
	)

	serviceOpts := []relaycontroller.Option{relaycontroller.WithConcurrency(config.BatchConcurrency)}

	// Initialize SQL Database
	if config.InvocationLogEnabled {
		if err := model.InitDB(); err != nil {
			logger.Logger.Fatal("database init error", zap.Error(err))
		}
		defer func() {
			if err := model.CloseDB(); err != nil {
				logger.Logger.Error("failed to close database", zap.Error(err))
			}
		}()

		model.StartRetentionCleaner(ctx, config.InvocationLogRetentionDays)
		serviceOpts = append(serviceOpts, relaycontroller.WithRecorder(relaycontroller.DBRecorder()))
	}

	svc := relaycontroller.NewService(
		aws.NewAdaptor(provider, aws.WithTimeout(config.InvokeTimeout)),
		serviceOpts...,
	)

	logLevel := glog.LevelInfo
	if config.DebugEnabled {
		logLevel = glog.LevelDebug
	}

	// Initialize HTTP server
	server := gin.New()
	server.RedirectTrailingSlash = false
	server.Use(
		gin.Recovery(),
		gmw.NewLoggerMiddleware(
			gmw.WithLoggerMwColored(),
			gmw.WithLevel(logLevel.String()),
			gmw.WithLogger(logger.Logger.Named("gin")),
		),
	)
	server.Use(middleware.RequestId())
	server.Use(graceful.RequestTracker())

	if config.EnablePrometheusMetrics {
		server.Use(middleware.PrometheusMiddleware())
		server.GET("/metrics", gin.WrapH(promhttp.Handler()))
		logger.Logger.Info("Prometheus metrics endpoint available at /metrics")
	}

	if err := router.SetRouter(server, controller.NewBedrock(svc, provider)); err != nil {
		logger.Logger.Fatal("failed to set up routes", zap.Error(err))
	}

	port := config.ServerPort
	if port == "" {
		port = strconv.Itoa(*common.Port)
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           server,
		ReadHeaderTimeout: 30 * time.Second,
	}

	go func() {
		logger.Logger.Info("server started", zap.String("address", "http://localhost:"+port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Logger.Info("shutdown signal received, draining",
		zap.Duration("timeout", config.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	graceful.SetDraining()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error("http server shutdown", zap.Error(err))
	}
	if err := graceful.Drain(shutdownCtx); err != nil {
		logger.Logger.Error("graceful drain", zap.Error(err))
	}
}
