// PricingService 主程序
// 功能：美式期权 LSM 定价、批量定价、收敛诊断与标的报价维护
// 架构：DDD 分层 + gin/gRPC 双协议 + MySQL 发件箱 + Kafka 事件投递
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/wyfcoding/lsmpricing/internal/pricing/application"
	"github.com/wyfcoding/lsmpricing/internal/pricing/domain"
	"github.com/wyfcoding/lsmpricing/internal/pricing/infrastructure/messaging"
	"github.com/wyfcoding/lsmpricing/internal/pricing/infrastructure/persistence/mysql"
	pricingredis "github.com/wyfcoding/lsmpricing/internal/pricing/infrastructure/persistence/redis"
	grpchandler "github.com/wyfcoding/lsmpricing/internal/pricing/interfaces/grpc"
	httphandler "github.com/wyfcoding/lsmpricing/internal/pricing/interfaces/http"
	"github.com/wyfcoding/lsmpricing/pkg/cache"
	"github.com/wyfcoding/lsmpricing/pkg/config"
	"github.com/wyfcoding/lsmpricing/pkg/db"
	"github.com/wyfcoding/lsmpricing/pkg/logger"
	"github.com/wyfcoding/lsmpricing/pkg/metrics"
	"github.com/wyfcoding/lsmpricing/pkg/middleware"
	"github.com/wyfcoding/lsmpricing/pkg/mq"
	"github.com/wyfcoding/lsmpricing/pkg/ratelimit"
	"github.com/wyfcoding/lsmpricing/pkg/trace"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

func main() {
	configPath := flag.String("config", "configs/pricing/config.toml", "config file path")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	loggerCfg := logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}
	if err := logger.Init(loggerCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger.Info(ctx, "Starting PricingService",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
	)

	// 3. 初始化追踪
	shutdownTracer, err := trace.InitTracer(ctx, cfg.ServiceName, cfg.Version, cfg.Tracing)
	if err != nil {
		logger.Error(ctx, "Failed to initialize tracer", "error", err)
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Error(ctx, "Failed to shutdown tracer", "error", err)
			}
		}()
	}

	// 4. 初始化数据库
	database, err := db.Init(cfg.Database)
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize database", "error", err)
	}
	defer database.Close()
	if cfg.Database.AutoMigrate {
		models := append(mysql.Models(), &messaging.OutboxMessage{})
		if err := database.AutoMigrate(models...); err != nil {
			logger.Fatal(ctx, "Failed to migrate schema", "error", err)
		}
	}

	// 5. 初始化 Redis，不可用时关闭结果缓存并退回进程内限流
	var redisClient *redis.Client
	redisCache, err := cache.New(cfg.Redis)
	if err != nil {
		logger.Warn(ctx, "Redis unavailable, result cache disabled", "addr", cfg.RedisAddr(), "error", err)
		redisCache = nil
	} else {
		defer redisCache.Close()
		redisClient = redisCache.GetClient()
	}

	// 6. 初始化限流器
	rateLimiter := middleware.NewHTTPRateLimiter(cfg.RateLimit, redisClient)
	logger.Info(ctx, "HTTP rate limiter ready", "limiter", fmt.Sprintf("%T", rateLimiter))

	// 7. 初始化 Kafka 生产者
	producer := mq.NewProducer(cfg.Kafka)
	defer producer.Close()
	dlq := mq.NewDeadLetterQueue(producer, cfg.Pricing.EventsTopic+"-dlq")

	// 8. 初始化指标
	metricsInstance := metrics.New(cfg.ServiceName)
	if err := metricsInstance.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Fatal(ctx, "Failed to register metrics", "error", err)
	}
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path, prometheus.DefaultGatherer)
		metrics.StartHTTPServer(metricsServer)
	}

	// 9. 初始化仓储、缓存与发件箱
	repo := mysql.NewPricingRepository(database)
	var resultCache domain.ResultCache
	if redisCache != nil && cfg.Pricing.CacheTTL > 0 {
		resultCache = pricingredis.NewResultCache(redisCache, time.Duration(cfg.Pricing.CacheTTL)*time.Second)
	}
	publisher := messaging.NewOutboxEventPublisher(database, cfg.Pricing.EventsTopic)
	relay := messaging.NewOutboxRelay(database, producer, dlq, metricsInstance, cfg.Outbox)

	// 10. 初始化应用服务
	appService := application.NewPricingService(repo, resultCache, publisher, metricsInstance, cfg.Pricing)

	// 11. 创建 HTTP 与 gRPC 服务器
	httpServer := createHTTPServer(cfg, appService, rateLimiter, metricsInstance)
	grpcServer := createGRPCServer(cfg, appService, metricsInstance)

	// 12. 启动发件箱中继
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		relay.Run(ctx)
	}()

	// 13. 启动 HTTP 服务器
	go func() {
		logger.Info(ctx, "Starting HTTP server", "addr", cfg.HTTPAddr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "HTTP server error", "error", err)
		}
	}()

	// 14. 启动 gRPC 服务器
	go func() {
		listener, err := net.Listen("tcp", cfg.GRPCAddr())
		if err != nil {
			logger.Fatal(ctx, "Failed to listen on gRPC address", "error", err)
		}
		logger.Info(ctx, "Starting gRPC server", "addr", cfg.GRPCAddr())
		if err := grpcServer.Serve(listener); err != nil {
			logger.Fatal(ctx, "gRPC server error", "error", err)
		}
	}()

	// 15. 优雅关停
	<-ctx.Done()
	logger.Info(context.Background(), "Shutting down PricingService")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "HTTP server shutdown error", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(shutdownCtx, "Metrics server shutdown error", "error", err)
		}
	}
	grpcServer.GracefulStop()
	<-relayDone

	logger.Info(shutdownCtx, "PricingService stopped")
}

// createHTTPServer 创建 HTTP 服务器
func createHTTPServer(cfg *config.Config, app *application.PricingService, limiter ratelimit.RateLimiter, m *metrics.Metrics) *http.Server {
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.GinLoggingMiddleware(m))
	router.Use(middleware.GinRecoveryMiddleware())
	router.Use(middleware.GinCORSMiddleware())
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimitMiddleware(limiter, cfg.RateLimit))
	}

	httphandler.NewPricingHandler(app).RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   cfg.ServiceName,
			"timestamp": time.Now().Unix(),
		})
	})

	return &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
}

// createGRPCServer 创建 gRPC 服务器
func createGRPCServer(cfg *config.Config, app *application.PricingService, m *metrics.Metrics) *grpc.Server {
	interceptors := []grpc.UnaryServerInterceptor{
		middleware.GRPCRecoveryInterceptor(),
		middleware.GRPCLoggingInterceptor(m),
	}
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(float64(cfg.RateLimit.QPS), cfg.RateLimit.Burst)
		interceptors = append(interceptors, middleware.GRPCRateLimitInterceptor(limiter))
	}

	opts := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors...),
		grpc.MaxConcurrentStreams(uint32(cfg.GRPC.MaxConcurrentStreams)),
	}
	if cfg.GRPC.IdleTimeout > 0 {
		opts = append(opts, grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle: time.Duration(cfg.GRPC.IdleTimeout) * time.Second,
		}))
	}

	server := grpc.NewServer(opts...)
	grpchandler.NewServer(server, app)
	return server
}
