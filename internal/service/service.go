package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/strayleigh/SIGMA/internal/config"
	"github.com/strayleigh/SIGMA/internal/consumer"
	"github.com/strayleigh/SIGMA/internal/database"
	"github.com/strayleigh/SIGMA/internal/detection"
	"github.com/strayleigh/SIGMA/internal/httpapi"
	"github.com/strayleigh/SIGMA/internal/hub"
	mqttclient "github.com/strayleigh/SIGMA/internal/mqtt"
	"github.com/strayleigh/SIGMA/internal/processor"
	"github.com/strayleigh/SIGMA/internal/redisutil"
	"github.com/strayleigh/SIGMA/internal/repository"
	"github.com/strayleigh/SIGMA/internal/store"
)

// SigmaService SIGMA后端服务
type SigmaService struct {
	config     *config.Config
	logger     *zap.Logger
	db         *sql.DB
	redis      *redis.Client
	mqttClient *mqttclient.Client
	stateStore *store.FruitStateStore
	hub        *hub.Hub
	processor  *processor.Processor
	consumer   *consumer.MQTTConsumer
	httpServer *http.Server
}

// NewSigmaService 创建SIGMA后端服务
func NewSigmaService(cfg *config.Config, logger *zap.Logger) (*SigmaService, error) {
	// 初始化数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 初始化Redis
	redisClient := redisutil.NewRedisClient(&cfg.Redis)
	if err := redisutil.Ping(context.Background(), redisClient); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	// 初始化MQTT
	mqttClient, err := mqttclient.NewClient(&cfg.MQTT, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT: %w", err)
	}

	// 加载检测规则
	rules, err := detection.LoadRuleSet(cfg.Detection.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load detection rules: %w", err)
	}
	detector := detection.NewDetector(rules)

	// 创建Repository
	readingRepo := repository.NewSensorReadingRepository(db, logger)
	logRepo := repository.NewDetectionLogRepository(db, logger)
	fruitRepo := repository.NewFruitRepository(db, logger)

	// 创建状态存储与Redis镜像
	stateStore := store.NewFruitStateStore()
	mirror := store.NewStateMirror(redisClient,
		time.Duration(cfg.Detection.StateTTL)*time.Second, logger)

	// 创建广播中心
	broadcastHub := hub.NewHub(
		cfg.Hub.QueueSize,
		time.Duration(cfg.Hub.WriteTimeout)*time.Second,
		time.Duration(cfg.Hub.HeartbeatInterval)*time.Second,
		logger,
	)

	// 创建Processor和Consumer
	readingProcessor := processor.NewProcessor(
		detector, stateStore, readingRepo, logRepo, fruitRepo,
		mirror, broadcastHub, cfg.Hub.QueueSize, logger,
	)
	mqttConsumer := consumer.NewMQTTConsumer(cfg, mqttClient, readingProcessor, logger)

	// 创建HTTP服务
	apiHandler := httpapi.NewHandler(stateStore, readingRepo, broadcastHub, logger)
	router := httpapi.NewRouter(apiHandler, cfg.HTTP.CORSOrigins)
	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: router,
	}

	return &SigmaService{
		config:     cfg,
		logger:     logger,
		db:         db,
		redis:      redisClient,
		mqttClient: mqttClient,
		stateStore: stateStore,
		hub:        broadcastHub,
		processor:  readingProcessor,
		consumer:   mqttConsumer,
		httpServer: httpServer,
	}, nil
}

// Start 启动服务，阻塞直到ctx取消
func (s *SigmaService) Start(ctx context.Context) error {
	s.logger.Info("Starting SIGMA service components")

	// 启动广播中心和持久化worker
	go s.hub.Run(ctx)
	go s.processor.Run(ctx)

	// 启动HTTP服务
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.config.HTTP.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	s.logger.Info("SIGMA service started successfully")

	// 启动MQTT消费者（阻塞直到ctx取消）
	if err := s.consumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start MQTT consumer: %w", err)
	}
	return nil
}

// Stop 停止服务
func (s *SigmaService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping SIGMA service")

	// 停止Consumer
	if s.consumer != nil {
		if err := s.consumer.Stop(ctx); err != nil {
			s.logger.Error("Error stopping consumer", zap.Error(err))
		}
	}

	// 断开MQTT
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}

	// 关闭HTTP服务
	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Error shutting down HTTP server", zap.Error(err))
		}
	}

	// 关闭Redis
	if s.redis != nil {
		_ = redisutil.Close(s.redis)
	}

	// 关闭数据库
	if s.db != nil {
		_ = database.Close(s.db)
	}

	s.logger.Info("SIGMA service stopped")
	return nil
}
