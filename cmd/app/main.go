package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/exambooking/api"
	"github.com/Domenick1991/exambooking/config"
	"github.com/Domenick1991/exambooking/internal/bootstrap"
	"github.com/Domenick1991/exambooking/internal/cache"
	"github.com/Domenick1991/exambooking/internal/kafka"
	"github.com/Domenick1991/exambooking/internal/repository"
	"github.com/Domenick1991/exambooking/internal/service/admission"
	"github.com/Domenick1991/exambooking/internal/service/bulkimport"
	"github.com/Domenick1991/exambooking/internal/service/occupancysync"
	"github.com/Domenick1991/exambooking/internal/service/sessions"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis,
		time.Duration(cfg.Booking.SessionsCacheTTLSeconds)*time.Second,
		time.Duration(cfg.Booking.OccupancyTTLSeconds)*time.Second)

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	dispatcher := occupancysync.NewDispatcher(
		producer,
		cfg.Kafka.OccupancyTopic,
		cfg.Booking.SyncMaxAttempts,
		occupancysync.ExponentialBackoff{Base: time.Duration(cfg.Booking.SyncBackoffBaseMS) * time.Millisecond},
	)

	traineeRepo := repository.NewTraineeRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	ledgerRepo := repository.NewLedgerRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	admissionSvc := admission.NewService(traineeRepo, sessionRepo, bookingRepo, auditRepo, redisCache, dispatcher)
	bulkSvc := bulkimport.NewService(traineeRepo, sessionRepo, bookingRepo, ledgerRepo, redisCache, dispatcher, cfg.Booking.BulkMaxRows)
	sessionSvc := sessions.NewService(sessionRepo, redisCache)

	auth := &api.StaticTokenAuthenticator{Token: cfg.Auth.AdminToken, Name: "admin"}

	err = bootstrap.Run(ctx, cfg, auth, redisCache,
		api.NewAdmissionHandler(admissionSvc),
		api.NewImportHandler(bulkSvc),
		api.NewSessionHandler(sessionSvc))
	if err != nil {
		log.Fatalf("server error: %v", err)
	}
}
