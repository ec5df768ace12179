package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pillbox-backend/internal/config"
	"pillbox-backend/internal/consumer"
	"pillbox-backend/internal/database"
	httpapi "pillbox-backend/internal/http"
	"pillbox-backend/internal/logger"
	"pillbox-backend/internal/mqtt"
	redisclient "pillbox-backend/internal/redis"
	"pillbox-backend/internal/repository"
	"pillbox-backend/internal/service"
	"pillbox-backend/internal/store"
)

func main() {
	cfg := config.Load()

	zapLogger, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "pillbox-backend")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting pillbox-backend service",
		zap.String("mqtt_broker", cfg.MQTT.Broker),
		zap.String("http_addr", cfg.HTTP.Addr),
	)

	loc, err := time.LoadLocation(cfg.Pillbox.Timezone)
	if err != nil {
		zapLogger.Fatal("Invalid timezone", zap.String("timezone", cfg.Pillbox.Timezone), zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient := redisclient.NewRedisClient(&cfg.Redis)
	if err := redisclient.Ping(ctx, redisClient); err != nil {
		zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisclient.Close(redisClient)

	mqttClient, err := mqtt.NewClient(&cfg.MQTT, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to MQTT broker", zap.Error(err))
	}
	defer mqttClient.Disconnect()

	slotsRepo := repository.NewPostgresSlotsRepository(db)
	medicationsRepo := repository.NewPostgresMedicationsRepository(db)
	adherenceRepo := repository.NewPostgresAdherenceRepository(db)
	intakeStore := repository.NewPostgresIntakeStore(db)
	readingsRepo := repository.NewPostgresReadingsRepository(db)
	vitalsRepo := repository.NewPostgresVitalsRepository(db)
	kv := store.NewRedisKV(redisClient)

	// 启动流程：先重建药仓，再下发各仓服药计划，最后开始消费事件
	initializer := service.NewPillboxInitializer(slotsRepo, medicationsRepo, cfg.Pillbox.SlotCount, loc, zapLogger)
	if err := initializer.Initialize(ctx); err != nil {
		zapLogger.Fatal("Failed to initialize pillbox", zap.Error(err))
	}

	publisher := service.NewSchedulePublisher(
		slotsRepo, medicationsRepo, mqttClient,
		cfg.Pillbox.Topics.Schedule, cfg.MQTT.QoS, zapLogger,
	)
	if err := publisher.PublishAll(ctx); err != nil {
		zapLogger.Fatal("Failed to publish slot schedules", zap.Error(err))
	}

	processor := service.NewAdherenceProcessor(slotsRepo, intakeStore, cfg.Pillbox.UserID, loc, zapLogger)
	ingest := service.NewSensorIngest(readingsRepo, kv, cfg.Pillbox.UserID, loc, zapLogger)

	mqttConsumer := consumer.NewMQTTConsumer(cfg, mqttClient, processor, ingest, zapLogger)
	if err := mqttConsumer.Start(ctx); err != nil {
		zapLogger.Fatal("Failed to start MQTT consumer", zap.Error(err))
	}

	predictor := service.NewInferenceClient(cfg.Inference.BaseURL, zapLogger)
	vitalsService := service.NewVitalsService(readingsRepo, vitalsRepo, kv, predictor, zapLogger)

	router := httpapi.NewRouter(zapLogger)
	router.RegisterVitalsRoutes(httpapi.NewVitalsHandler(vitalsService, zapLogger))
	router.RegisterAdherenceRoutes(httpapi.NewAdherenceHandler(adherenceRepo, cfg.Pillbox.UserID, loc, zapLogger))

	srv := service.NewServer(cfg.HTTP.Addr, router, zapLogger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zapLogger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		zapLogger.Error("HTTP server failed", zap.Error(err))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := mqttConsumer.Stop(shutdownCtx); err != nil {
		zapLogger.Error("Error stopping MQTT consumer", zap.Error(err))
	}
	if err := srv.Stop(shutdownCtx); err != nil {
		zapLogger.Error("Error stopping HTTP server", zap.Error(err))
	}

	zapLogger.Info("Service stopped")
}
