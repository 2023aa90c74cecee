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
	"github.com/wyfcoding/runtracker/internal/runs/application"
	"github.com/wyfcoding/runtracker/internal/runs/domain"
	"github.com/wyfcoding/runtracker/internal/runs/infrastructure/messaging"
	"github.com/wyfcoding/runtracker/internal/runs/infrastructure/persistence/memory"
	runs_redis "github.com/wyfcoding/runtracker/internal/runs/infrastructure/persistence/redis"
	"github.com/wyfcoding/runtracker/internal/runs/interfaces/consumer"
	httpserver "github.com/wyfcoding/runtracker/internal/runs/interfaces/http"
	"github.com/wyfcoding/runtracker/pkg/cache"
	"github.com/wyfcoding/runtracker/pkg/config"
	"github.com/wyfcoding/runtracker/pkg/logger"
	"github.com/wyfcoding/runtracker/pkg/metrics"
	"github.com/wyfcoding/runtracker/pkg/middleware"
	"github.com/wyfcoding/runtracker/pkg/mq"
	"github.com/wyfcoding/runtracker/pkg/ratelimit"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

var configPath = flag.String("config", "configs/runtracker/config.toml", "config file path")

func main() {
	flag.Parse()

	// 1. Config
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. Logger
	if err := logger.Init(cfg.Logger); err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	log := logger.Get().With("service", cfg.Service.Name, "version", cfg.Service.Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Metrics
	metricsImpl := metrics.New(cfg.Service.Name)
	if err := metricsImpl.Register(); err != nil {
		log.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}
	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metricsSrv = metricsImpl.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	// 4. Redis：查询缓存与限流
	var (
		runCache domain.RunCache
		limiter  ratelimit.RateLimiter
	)
	if cfg.Redis.Enabled() {
		redisCache, err := cache.New(ctx, cfg.Redis)
		if err != nil {
			log.Error("failed to connect redis", "error", err)
			os.Exit(1)
		}
		defer redisCache.Close()

		if cfg.Runs.CacheTTL > 0 {
			runCache = runs_redis.NewRunCache(redisCache, cfg.Service.Name, time.Duration(cfg.Runs.CacheTTL)*time.Second)
		}
		if cfg.RateLimit.Enabled {
			limiter = ratelimit.NewRedisRateLimiter(redisCache.GetClient())
		}
	}

	// 5. Kafka：领域事件与命令消费
	var (
		publisher domain.EventPublisher
		producer  *mq.KafkaProducer
		commands  *mq.KafkaConsumer
	)
	if cfg.Kafka.Enabled() {
		producer = mq.NewProducer(cfg.Kafka)
		defer producer.Close()
		publisher = messaging.NewKafkaEventPublisher(producer, cfg.Runs.EventTopic)
		if cfg.Runs.CommandTopic != "" {
			commands = mq.NewConsumer(cfg.Kafka, cfg.Runs.CommandTopic).
				WithDeadLetterQueue(mq.NewDeadLetterQueue(producer, cfg.Runs.DeadLetterTopic))
			defer commands.Close()
		}
	}

	// 6. Application
	tickSize, err := cfg.Runs.TickSize()
	if err != nil {
		log.Error("invalid default tick size", "tick_size", cfg.Runs.DefaultTickSize, "error", err)
		os.Exit(1)
	}
	repo := memory.NewSeriesRepository()
	commandSvc := application.NewRunCommandService(repo, publisher, log, metricsImpl, tickSize)
	querySvc := application.NewRunQueryService(repo, runCache, log, metricsImpl)

	// 7. Interfaces
	if cfg.Service.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.GinRecoveryMiddleware(), middleware.GinLoggingMiddleware(metricsImpl))
	if limiter != nil {
		limit := ratelimit.PerPeriod(cfg.RateLimit.Rate, time.Duration(cfg.RateLimit.Period)*time.Second, cfg.RateLimit.Burst)
		r.Use(middleware.RateLimitMiddleware(limiter, limit))
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	httpserver.NewRunHandler(commandSvc, querySvc).RegisterRoutes(r.Group(""))

	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	grpcSrv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		middleware.GRPCRecoveryInterceptor(),
		middleware.GRPCLoggingInterceptor(),
	))
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	reflection.Register(grpcSrv)

	// 8. Start
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.GRPC.Enabled {
		g.Go(func() error {
			lis, err := net.Listen("tcp", cfg.GRPC.Addr())
			if err != nil {
				return err
			}
			healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
			log.Info("gRPC server starting", "addr", cfg.GRPC.Addr())
			return grpcSrv.Serve(lis)
		})
	}

	if commands != nil {
		handler := consumer.NewCommandHandler(commandSvc, querySvc, metricsImpl).WithReplies(producer, cfg.Runs.EventTopic)
		g.Go(func() error {
			log.Info("command consumer starting", "topic", cfg.Runs.CommandTopic)
			return commands.Run(gctx, handler.Handle)
		})
	}

	// 9. Graceful Shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down servers...")
		healthSrv.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown failed", "error", err)
		}
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		grpcSrv.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server exiting")
}
