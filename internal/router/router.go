package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/evora/ticketing/internal/config"
	"github.com/evora/ticketing/internal/handler"
	"github.com/evora/ticketing/internal/middleware"
)

// RegisterRoutes registers the health check endpoint on the provided
// Echo instance.  Load balancers and monitoring systems use it to
// verify that the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterReservations wires the reservation lifecycle endpoints.  The
// mutating endpoints share a Redis-backed rate limiter so a burst of
// hold attempts is bounded across all server instances; rdb may be nil,
// in which case the limiter is a no-op.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, rdb *redis.Client) {
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	g := e.Group("/v1/reservations", limiter)
	// Create a hold on a seat set.
	g.POST("", h.Create)
	// Grant extra hold time during payment processing.
	g.POST("/:id/extend", h.Extend)
	// Client-driven confirmation of a paid reservation.
	g.POST("/:id/confirm", h.Confirm)
	// Cancel a pending reservation and free its seats.
	g.POST("/:id/cancel", h.Cancel)
	// Inspect a reservation's state and seat set.
	g.GET("/:id", h.Get)
}

// RegisterWebhooks wires the inbound payment gateway webhook.  The
// handler verifies the body signature itself, so no middleware guards
// this route; rate limiting would let an attacker starve legitimate
// gateway deliveries.
func RegisterWebhooks(e *echo.Echo, h *handler.WebhookHandler) {
	e.POST("/v1/webhooks/payment", h.HandlePaymentWebhook)
}

// RegisterAvailability wires the read-only seat listing consumed by the
// seat-map renderer, cached briefly in Redis when available.
func RegisterAvailability(e *echo.Echo, h *handler.AvailabilityHandler, rdb *redis.Client) {
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	e.GET("/v1/shows/:id/seats", h.ListShowSeats, cache)
}
