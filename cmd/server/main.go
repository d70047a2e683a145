package main

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/eventhorizon-tickets/reservation-engine/internal/config"
	"github.com/eventhorizon-tickets/reservation-engine/internal/database"
	"github.com/eventhorizon-tickets/reservation-engine/internal/handler"
	"github.com/eventhorizon-tickets/reservation-engine/internal/provider"
	"github.com/eventhorizon-tickets/reservation-engine/internal/queue"
	"github.com/eventhorizon-tickets/reservation-engine/internal/repository"
	"github.com/eventhorizon-tickets/reservation-engine/internal/router"
	"github.com/eventhorizon-tickets/reservation-engine/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(&cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional. A nil client disables the rate limiter and the
	// seat-map cache; the reservation flow itself never touches Redis.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting and seat-map cache disabled")
	}

	seatRepo := repository.NewSeatRepo(db)
	reservationRepo := repository.NewReservationRepo(db)
	paymentRepo := repository.NewPaymentRepo(db)
	ticketRepo := repository.NewTicketRepo(db)
	venueRepo := repository.NewVenueRepo(db)

	clock := service.SystemClock()
	reservations := service.NewReservationService(seatRepo, reservationRepo, clock,
		service.WithHoldTTL(cfg.HoldTTL),
		service.WithSweepBatch(cfg.SweepBatch),
	)
	tickets := service.NewTicketService(ticketRepo, reservationRepo, queue.NewPublisher(), clock)
	settlement := service.NewSettlementService(paymentRepo, reservations, tickets, provider.NewSandbox(), clock)

	// Expiry sweeper: returns lapsed ACTIVE holds to the pool.
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.SweepInterval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			n, err := reservations.ReconcileExpired(ctx)
			if err != nil {
				log.Printf("expiry sweep: %v", err)
			}
			if n > 0 {
				log.Printf("expiry sweep: released %d reservations", n)
			}
		}),
	)
	if err != nil {
		log.Fatalf("scheduler job: %v", err)
	}
	scheduler.Start()
	defer func() { _ = scheduler.Shutdown() }()

	// Audit-log consumer for ticket.issued events. Reconnects on its own;
	// losing the broker never blocks issuance.
	go func() {
		if err := queue.StartTicketConsumer(); err != nil {
			log.Printf("ticket consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()

	router.Register(e, router.Handlers{
		SeatMap:      handler.NewSeatMapHandler(venueRepo),
		Reservations: handler.NewReservationHandler(reservations, reservationRepo),
		Payments:     handler.NewPaymentHandler(settlement),
		Tickets:      handler.NewTicketHandler(tickets),
	}, cfg.JWTSecret, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
