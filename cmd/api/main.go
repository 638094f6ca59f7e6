package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meditermin/booking-api/internal/authgate"
	"github.com/meditermin/booking-api/internal/config"
	"github.com/meditermin/booking-api/internal/finalizer"
	"github.com/meditermin/booking-api/internal/handler"
	authHandler "github.com/meditermin/booking-api/internal/handler/auth"
	bookingHandler "github.com/meditermin/booking-api/internal/handler/booking"
	confirmationHandler "github.com/meditermin/booking-api/internal/handler/confirmation"
	"github.com/meditermin/booking-api/internal/middleware"
	"github.com/meditermin/booking-api/internal/repository/postgres"
	"github.com/meditermin/booking-api/internal/router"
	"github.com/meditermin/booking-api/internal/store"
	"github.com/meditermin/booking-api/internal/upstream"
	"github.com/meditermin/booking-api/internal/wizard"
	"github.com/meditermin/booking-api/pkg/logger"
	"github.com/meditermin/booking-api/pkg/metrics"
	"github.com/meditermin/booking-api/pkg/validator"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.NewLogger(nil)
	log := appLogger.ZL

	if err := validator.RegisterCustomRules(); err != nil {
		appLogger.Fatal(err, "failed to register validation rules")
	}

	m := metrics.New("booking")

	redisClient, err := store.NewRedisClient(cfg.Redis)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to Redis")
	}
	defer redisClient.Close()

	db, err := postgres.NewDB(cfg.Database.DSN())
	if err != nil {
		appLogger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	drafts := store.NewDraftStore(redisClient, cfg.Booking.DraftTTL)
	artifacts := store.NewArtifactStore(redisClient, cfg.Booking.ArtifactTTL)
	sessions := store.NewSessionStore(redisClient, cfg.Booking.SessionTTL)
	outboxRepo := postgres.NewOutboxRepository(postgres.NewBaseRepository(db))

	client := upstream.NewClient(cfg.Upstream, m, log)

	wizardSvc := wizard.NewService(client, client, drafts, artifacts, m, log)
	gateSvc := authgate.NewService(client, sessions, log)
	finalizerSvc := finalizer.NewService(client, gateSvc, artifacts, wizardSvc, outboxRepo, m, log)

	h := handler.NewHandler()
	bookingH := bookingHandler.NewHandler(wizardSvc, gateSvc)
	authH := authHandler.NewHandler(gateSvc, finalizerSvc)
	confirmationH := confirmationHandler.NewHandler(finalizerSvc, gateSvc)

	r := router.NewRouter(bookingH, authH, confirmationH, h, log, router.RouterConfig{
		RateLimitRPS:  10,
		RateBurst:     20,
		CORSConfig:    middleware.DefaultCORSConfig(),
		MetricsPrefix: "booking_http",
	})
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		appLogger.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatal(err, "server forced to shutdown")
	}

	appLogger.Info("server exited properly")
}
