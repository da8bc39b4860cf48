package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/iviccpataro-eng/api-elipse-sub000/internal/alarm"
	"github.com/iviccpataro-eng/api-elipse-sub000/internal/config"
	"github.com/iviccpataro-eng/api-elipse-sub000/internal/database"
	"github.com/iviccpataro-eng/api-elipse-sub000/internal/httpapi"
	"github.com/iviccpataro-eng/api-elipse-sub000/internal/ingest"
	"github.com/iviccpataro-eng/api-elipse-sub000/internal/logger"
	"github.com/iviccpataro-eng/api-elipse-sub000/internal/repository"
	"github.com/iviccpataro-eng/api-elipse-sub000/internal/service"
	"github.com/iviccpataro-eng/api-elipse-sub000/internal/store"
	"github.com/iviccpataro-eng/api-elipse-sub000/internal/structure"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "api-elipse")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	// Durable alarm store; falls back to the in-memory repository when
	// the database is disabled or unreachable (dev mode).
	var alarmRepo repository.AlarmEventsRepository
	if cfg.Database.Enabled {
		if db, err := database.NewPostgresDB(&cfg.Database); err == nil {
			alarmRepo = repository.NewPostgresAlarmEventsRepository(db, log)
			defer db.Close()
			log.Info("Alarm store: Postgres", zap.String("host", cfg.Database.Host))
		} else {
			log.Warn("Database enabled but connection failed, falling back to memory alarm store", zap.Error(err))
		}
	}
	if alarmRepo == nil {
		alarmRepo = repository.NewMemoryAlarmEventsRepository()
		log.Info("Alarm store: in-memory (volatile)")
	}

	// Optional Redis snapshot publishing for dashboard replicas.
	var kv store.KV
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Warn("Redis enabled but unreachable, snapshot publishing disabled", zap.Error(err))
		} else {
			kv = store.NewRedisKV(redisClient)
			defer redisClient.Close()
		}
	}

	tree := store.NewTree()
	engine := alarm.NewEngine(alarmRepo, log)
	projection := structure.NewService(tree, kv, time.Duration(cfg.Redis.SnapshotTTL)*time.Second, log)
	ingestSvc := ingest.NewService(tree, engine, projection, log)

	authMiddleware := httpapi.NewMiddleware(
		httpapi.NewRestyVerifier(cfg.Auth.VerifyURL),
		cfg.Auth.Enabled,
		time.Duration(cfg.Auth.CacheTTL)*time.Second,
		log,
	)

	router := httpapi.NewRouter(log)
	router.RegisterDataRoutes(httpapi.NewDataHandler(ingestSvc, log))
	router.RegisterStructureRoutes(httpapi.NewStructureHandler(projection, log), authMiddleware)
	router.RegisterAlarmRoutes(httpapi.NewAlarmHandler(engine, log), authMiddleware)
	router.RegisterHealthRoutes()

	// Optional MQTT ingestion source.
	if cfg.MQTT.Enabled {
		consumer := ingest.NewMQTTConsumer(&cfg.MQTT, ingestSvc, log)
		if err := consumer.Start(); err != nil {
			log.Warn("MQTT consumer failed to start, continuing HTTP-only", zap.Error(err))
		} else {
			defer consumer.Stop()
		}
	}

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Shutdown error", zap.Error(err))
	}

	log.Info("api-elipse stopped")
}
