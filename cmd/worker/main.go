package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/meditermin/booking-api/internal/config"
	"github.com/meditermin/booking-api/internal/notification"
	"github.com/meditermin/booking-api/internal/repository/postgres"
	"github.com/meditermin/booking-api/pkg/logger"
	"github.com/meditermin/booking-api/pkg/messaging/redis"
	"github.com/meditermin/booking-api/pkg/metrics"
	"github.com/meditermin/booking-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.NewLogger(nil)
	log := appLogger.ZL

	m := metrics.New("booking_worker")

	db, err := postgres.NewDB(cfg.Database.DSN())
	if err != nil {
		appLogger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(cfg.ToBrokerConfig(), &log)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to Redis")
	}
	defer broker.Close()

	outboxRepo := postgres.NewOutboxRepository(postgres.NewBaseRepository(db))
	processor := worker.NewOutboxProcessor(outboxRepo, broker, cfg.Outbox.ToWorkerConfig(), appLogger, m)

	sender := notification.NewEmailSender(cfg.SMTP, log)
	consumer := notification.NewConsumer(broker, sender, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Start(ctx)
	go func() {
		if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
			appLogger.Error(err, "notification consumer stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down worker")
	cancel()
}
