package main // Entry point package

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/evora/ticketing/internal/config"
	"github.com/evora/ticketing/internal/database"
	"github.com/evora/ticketing/internal/handler"
	"github.com/evora/ticketing/internal/payment"
	"github.com/evora/ticketing/internal/queue"
	"github.com/evora/ticketing/internal/repository"
	"github.com/evora/ticketing/internal/router"
	"github.com/evora/ticketing/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rdb := config.NewRedisClient() // nil disables rate limiting and caching
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and caching disabled")
	}

	seats := repository.NewSeatRepo(db)
	reservations := repository.NewReservationRepo(db)
	bookings := repository.NewBookingRepo(db)

	verifier := payment.NewClient(cfg.PaymentBaseURL, cfg.PaymentAPIKey)
	manager := service.NewReservationManager(seats, reservations, time.Duration(cfg.HoldTTLSec)*time.Second)
	confirmer := service.NewConfirmationService(seats, reservations, bookings, verifier, queue.PublishBookingConfirmed)

	reaper := service.NewReaper(seats, reservations, time.Duration(cfg.ReaperIntervalSec)*time.Second, cfg.ReaperBatchSize)
	go reaper.Run(ctx)

	if cfg.ConsumerEnabled {
		go func() {
			if err := queue.StartBookingConsumer(); err != nil {
				log.Printf("booking-consumer: %v", err)
			}
		}()
	}

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterReservations(e, handler.NewReservationHandler(manager, confirmer), rdb)
	router.RegisterWebhooks(e, handler.NewWebhookHandler(cfg.WebhookSecret, confirmer))
	router.RegisterAvailability(e, handler.NewAvailabilityHandler(seats), rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	if err := e.Start(addr); err != nil {
		log.Printf("server stopped: %v", err)
	}
}
