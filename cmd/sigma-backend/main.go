package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/strayleigh/SIGMA/internal/config"
	"github.com/strayleigh/SIGMA/internal/logger"
	"github.com/strayleigh/SIGMA/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化Logger
	zapLogger, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "sigma-backend")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting SIGMA backend",
		zap.String("mqtt_broker", cfg.MQTT.Broker),
		zap.String("sensor_topic", cfg.Sensor.Topic),
		zap.String("http_addr", cfg.HTTP.Addr),
	)

	// 创建服务
	sigmaService, err := service.NewSigmaService(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create SIGMA service", zap.Error(err))
	}

	// 启动服务
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := sigmaService.Start(ctx); err != nil {
			zapLogger.Fatal("Failed to start SIGMA service", zap.Error(err))
		}
	}()

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	zapLogger.Info("Received signal, shutting down", zap.String("signal", sig.String()))

	// 优雅关闭
	cancel()
	if err := sigmaService.Stop(context.Background()); err != nil {
		zapLogger.Error("Error during shutdown", zap.Error(err))
	}
}
