package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/exambooking/config"
	"github.com/Domenick1991/exambooking/internal/kafka"
	"github.com/Domenick1991/exambooking/internal/registry"
	"github.com/Domenick1991/exambooking/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	kafkaGo "github.com/segmentio/kafka-go"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	sessionRepo := repository.NewSessionRepository(pool)
	registryClient := registry.NewClient(cfg.Registry.BaseURL, time.Duration(cfg.Registry.TimeoutSeconds)*time.Second)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.OccupancyTopic)
	defer consumer.Close()

	go func() {
		if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.OccupancyEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Printf("decode occupancy event: %v", err)
				return nil
			}
			if err := registryClient.PushOccupancy(ctx, event); err != nil {
				// Per-message failures are logged, not fatal; the
				// reconciliation job covers the gap.
				log.Printf("registry push for session %d failed: %v", event.SessionID, err)
			}
			return nil
		}); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	driftTicker := time.NewTicker(time.Duration(cfg.Worker.DriftSweepMinutes) * time.Minute)
	defer driftTicker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-driftTicker.C:
			drift, err := sessionRepo.ListOccupancyDrift(ctx)
			if err != nil {
				log.Printf("drift sweep error: %v", err)
				continue
			}
			for _, d := range drift {
				log.Printf("occupancy drift: session %d durable=%d active_bookings=%d",
					d.SessionID, d.Occupancy, d.ActiveBookings)
			}
		case s := <-sig:
			log.Printf("received signal %v, shutting down", s)
			return
		}
	}
}
