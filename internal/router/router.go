package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/eventhorizon-tickets/reservation-engine/internal/config"
	"github.com/eventhorizon-tickets/reservation-engine/internal/handler"
	"github.com/eventhorizon-tickets/reservation-engine/internal/middleware"
)

// Handlers bundles every handler the API mounts. All fields must be non-nil.
type Handlers struct {
	SeatMap      *handler.SeatMapHandler
	Reservations *handler.ReservationHandler
	Payments     *handler.PaymentHandler
	Tickets      *handler.TicketHandler
}

// Register mounts all routes on the Echo instance.
//
// Public routes carry no authentication: the health check, the Prometheus
// scrape endpoint, the cached seat map and the provider callback (providers
// do not hold holder tokens; the provider_ref in the body is the
// correlation). Everything else requires a bearer token, with the gate and
// refund endpoints additionally restricted by role.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	seatmapCache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	e.GET("/v1/venues/:id/seatmap", h.SeatMap.GetSeatMap, seatmapCache)

	e.POST("/v1/payments/provider-callback", h.Payments.ProviderCallback)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	auth.POST("/seats/reserve", h.Reservations.Reserve)
	auth.POST("/reservations/:id/cancel", h.Reservations.Cancel)
	auth.GET("/reservations/:id", h.Reservations.Get)
	auth.GET("/my-reservations", h.Reservations.ListMine)

	auth.POST("/payments/create", h.Payments.Create)
	auth.GET("/payments/:id/status", h.Payments.Status)
	auth.POST("/payments/:id/refund", h.Payments.Refund, middleware.RequireRole("ADMIN"))

	auth.GET("/tickets", h.Tickets.ListMine)
	auth.GET("/tickets/:id/qr", h.Tickets.QR)
	auth.POST("/tickets/:id/validate", h.Tickets.Validate, middleware.RequireRole("GATE", "ADMIN"))
}
