package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"parcelroute/internal/app"
	"parcelroute/internal/auth"
	"parcelroute/internal/config"
	"parcelroute/internal/events"
	"parcelroute/internal/georoute"
	"parcelroute/internal/handler"
	"parcelroute/internal/ingest"
	"parcelroute/internal/logging"
	"parcelroute/internal/notify"
	"parcelroute/internal/payments"
	"parcelroute/internal/realtime"
	internalRedis "parcelroute/internal/redis"
	"parcelroute/internal/repository/mongostore"
	"parcelroute/internal/repository/postgres"
	"parcelroute/internal/service"
)

// server bundles what main has to shut down.
type server struct {
	http      *http.Server
	ws        *handler.WSHandler
	publisher events.Publisher
	mqtt      *ingest.MQTTBridge
}

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// New Relic comes first so the database and Redis clients are instrumented.
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		var err error
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize New Relic")
		} else {
			logger.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled")
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	mongoClient, mongoDB, err := app.NewMongoDatabase(ctx, cfg.Mongo)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to mongo")
	}
	defer func() {
		dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dcancel()
		_ = mongoClient.Disconnect(dctx)
	}()
	logger.Info("connected to MongoDB")

	srv, err := wireServer(ctx, db, redisClient, mongoDB, nrApp, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to wire server")
	}

	if srv.mqtt != nil {
		if err := srv.mqtt.Start(); err != nil {
			// Devices can still fall back to REST and WebSocket.
			logger.WithError(err).Error("failed to start MQTT ingest")
		}
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("starting server")
		if err := srv.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	srv.shutdown(shutdownCtx, logger)
	logger.Info("server exited")
}

// shutdown stops intake first, then drains what is in flight. Hijacked
// WebSocket connections are not tracked by http.Server and are closed
// separately.
func (s *server) shutdown(ctx context.Context, logger logrus.FieldLogger) {
	if s.mqtt != nil {
		s.mqtt.Stop()
	}
	if err := s.http.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("http server forced to shutdown")
	}
	if err := s.ws.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("websocket connections did not drain")
	}
	if err := s.publisher.Close(); err != nil {
		logger.WithError(err).Error("failed to flush event stream")
	}
}

// wireServer wires all dependencies and returns the server.
func wireServer(
	ctx context.Context,
	db *sql.DB,
	redisClient *redis.Client,
	mongoDB *mongo.Database,
	nrApp *newrelic.Application,
	cfg *config.Config,
	logger *logrus.Logger,
) (*server, error) {
	// Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Repositories.
	tripRepo := internalRedis.NewCachedTripRepository(postgres.NewTripRepository(db), cacheStore, logger)
	travelerRepo := postgres.NewTravelerRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	fixRepo := mongostore.NewGPSFixRepository(mongoDB)
	chatRepo := mongostore.NewChatRepository(mongoDB)
	disputeRepo := mongostore.NewDisputeRepository(mongoDB)
	inboxRepo := mongostore.NewNotificationRepository(mongoDB)

	// Outbound integrations, each with an in-process fallback.
	var router georoute.Router = georoute.StraightLineRouter{}
	if cfg.Maps.APIKey != "" {
		mapsClient, err := georoute.NewMapsClient(cfg.Maps.APIKey, cfg.Maps.RateLimit)
		if err != nil {
			return nil, err
		}
		router = mapsClient
	} else {
		logger.Warn("GOOGLE_MAPS_API_KEY not set, using straight-line routing")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.TripTopic, cfg.Kafka.FixesTopic)
	}

	var gateway service.EscrowGateway = payments.NewSimulatedGateway()
	if cfg.Stripe.SecretKey != "" {
		gateway = payments.NewStripeGateway(cfg.Stripe.SecretKey)
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, escrow is simulated")
	}

	var sender service.PushSender = notify.LogSender{Logger: logger}
	if cfg.Firebase.CredentialsFile != "" || cfg.Firebase.ProjectID != "" {
		fcm, err := notify.NewFCMSender(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			return nil, err
		}
		sender = fcm
	}

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	rooms := realtime.NewRegistry(tripRepo)
	policy := service.EligibilityPolicy{MaxStopsPerRoute: cfg.Matching.MaxStopsPerRoute}

	// Services.
	scorer := service.NewDetourScorer(router, service.PricingRates{
		PerKm:          cfg.Matching.PerKmRate,
		PerMinute:      cfg.Matching.PerMinuteRate,
		CommissionRate: cfg.Matching.CommissionRate,
	})
	matchingService := service.NewMatchingService(travelerRepo, scorer, service.MatchingConfig{
		TopK:             cfg.Matching.TopK,
		Concurrency:      cfg.Matching.Concurrency,
		CandidateTimeout: cfg.Matching.CandidateTimeout,
		BBoxMarginKm:     cfg.Matching.BBoxMarginKm,
		Policy:           policy,
	}, logger)
	notificationService := service.NewNotificationService(sender, inboxRepo, logger)
	escrowService := service.NewEscrowService(paymentRepo, gateway, cfg.Matching.Currency, logger)
	tripService := service.NewTripService(tripRepo, travelerRepo, disputeRepo, lockStore, escrowService, notificationService, publisher, rooms, service.TripServiceConfig{
		Policy:  policy,
		LockTTL: cfg.Matching.TravelerLockTTL,
	}, logger)
	trackingService := service.NewTrackingService(tripRepo, fixRepo, tripService, rooms, locationStore, publisher, logger)
	chatService := service.NewChatService(chatRepo, tripRepo, rooms, notificationService, logger)
	travelerService := service.NewTravelerService(locationStore, travelerRepo)

	// Handlers.
	wsHandler := handler.NewWSHandler(chatService, trackingService, realtime.ConnOptions{
		SendBuffer:     cfg.Realtime.SendBuffer,
		MaxMessageSize: cfg.Realtime.MaxMessageSize,
		EventsPerSec:   cfg.Realtime.EventsPerSec,
		EventBurst:     cfg.Realtime.EventBurst,
	}, cfg.Realtime.AllowedOrigins, logger)

	engine := app.NewRouter(app.RouterDeps{
		MatchHandler:    handler.NewMatchHandler(matchingService),
		TripHandler:     handler.NewTripHandler(tripService),
		NotifyHandler:   handler.NewNotificationHandler(notificationService),
		TrackingHandler: handler.NewTrackingHandler(trackingService),
		ChatHandler:     handler.NewChatHandler(chatService),
		TravelerHandler: handler.NewTravelerHandler(travelerService),
		PaymentHandler:  handler.NewPaymentHandler(escrowService),
		WSHandler:       wsHandler,
		Tokens:          tokens,
		RedisClient:     redisClient,
		NewRelicApp:     nrApp,
		AllowedOrigins:  cfg.Realtime.AllowedOrigins,
		Logger:          logger,
	})

	var bridge *ingest.MQTTBridge
	if cfg.MQTT.BrokerURL != "" {
		bridge = ingest.NewMQTTBridge(ingest.Options{
			BrokerURL:   cfg.MQTT.BrokerURL,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
		}, tokens, trackingService, logger)
	}

	return &server{
		http: &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		ws:        wsHandler,
		publisher: publisher,
		mqtt:      bridge,
	}, nil
}
