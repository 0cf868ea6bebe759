package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"parcelroute/internal/domain"
	"parcelroute/internal/handler"
	"parcelroute/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	MatchHandler    *handler.MatchHandler
	TripHandler     *handler.TripHandler
	NotifyHandler   *handler.NotificationHandler
	TrackingHandler *handler.TrackingHandler
	ChatHandler     *handler.ChatHandler
	TravelerHandler *handler.TravelerHandler
	PaymentHandler  *handler.PaymentHandler
	WSHandler       *handler.WSHandler
	Tokens          middleware.TokenValidator
	RedisClient     *redis.Client
	NewRelicApp     *newrelic.Application
	AllowedOrigins  []string
	Logger          logrus.FieldLogger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.CORSMiddleware(deps.AllowedOrigins))

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	shippers := middleware.RequireRole(domain.RoleShipper)
	travelers := middleware.RequireRole(domain.RoleTraveler)
	admins := middleware.RequireRole(domain.RoleAdmin)

	// Idempotency keys are scoped to the caller, so replay runs after auth.
	v1 := router.Group("/v1")
	v1.Use(middleware.Authenticate(deps.Tokens))
	v1.Use(middleware.IdempotencyMiddleware(deps.RedisClient, deps.Logger))
	{
		v1.POST("/match/find", shippers, deps.MatchHandler.FindMatches)

		trips := v1.Group("/trips")
		{
			trips.POST("", shippers, deps.TripHandler.CreateTrip)
			trips.GET("", deps.TripHandler.ListTrips)
			trips.GET("/:id", deps.TripHandler.GetTrip)
			trips.POST("/:id/accept", shippers, deps.TripHandler.AcceptMatch)
			trips.POST("/:id/cancel", shippers, deps.TripHandler.CancelTrip)
			trips.POST("/:id/dispute", deps.TripHandler.DisputeTrip)
			trips.POST("/:id/resolve", admins, deps.TripHandler.ResolveDispute)
			trips.GET("/:id/messages", deps.ChatHandler.History)
			trips.DELETE("/:id/messages/:messageId", deps.ChatHandler.DeleteMessage)
			trips.GET("/:id/payment", deps.PaymentHandler.GetTripPayment)
		}

		tracking := v1.Group("/tracking")
		{
			tracking.POST("/:tripId/start", travelers, deps.TrackingHandler.StartTracking)
			tracking.POST("/:tripId/stop", travelers, deps.TrackingHandler.StopTracking)
			tracking.POST("/:tripId/fixes", travelers, deps.TrackingHandler.RecordFix)
			tracking.GET("/:tripId", deps.TrackingHandler.History)
		}

		travelerRoutes := v1.Group("/travelers")
		{
			travelerRoutes.POST("", travelers, deps.TravelerHandler.Register)
			travelerRoutes.GET("/nearby", deps.TravelerHandler.Nearby)
			travelerRoutes.GET("/:id", deps.TravelerHandler.GetTraveler)
			travelerRoutes.POST("/:id/complete", travelers, deps.TravelerHandler.EndJourney)
			travelerRoutes.PUT("/:id/location", travelers, deps.TravelerHandler.UpdateLocation)
		}

		disputes := v1.Group("/disputes")
		{
			disputes.GET("", deps.TripHandler.ListDisputes)
			disputes.GET("/:id", deps.TripHandler.GetDispute)
		}

		notifications := v1.Group("/notifications")
		{
			notifications.GET("/user/:userId", deps.NotifyHandler.ListForUser)
			notifications.PATCH("/:id/read", deps.NotifyHandler.MarkRead)
		}

		v1.GET("/payments/:id", deps.PaymentHandler.GetPayment)

		v1.GET("/ws", deps.WSHandler.Serve)
	}

	return router
}
