package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"courtside/config"
	"courtside/cron"
	"courtside/database"
	bookingRepo "courtside/database/repository/booking"
	"courtside/handlers"
	"courtside/routes"
	"courtside/services/analytics"
	"courtside/services/booking"
	"courtside/services/notification"
	"courtside/services/storage"
	"courtside/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitEventsClient()
	utils.FirebaseInit()

	// Repository.
	repo := bookingRepo.NewMongoBookingRepo()
	if err := repo.EnsureIndexes(); err != nil {
		logger.Sugar().Fatalf("main: failed to create booking indexes: %v", err)
	}

	// Notification pipeline. With FCM configured, events go through the asynq
	// queue and the worker pushes them to devices; otherwise they only hit the
	// log.
	tokens := notification.NewRedisTokenStore(utils.GetCacheClient())
	var deliverySink notification.Sink = notification.NewLogSink(logger)
	if utils.FCMClient != nil {
		deliverySink = notification.NewFCMSink(utils.FCMClient, tokens)
	}
	cron.InitNotifyWorker(deliverySink)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer asynqClient.Close()
	queueSink := notification.NewQueueSink(asynqClient)

	// Event broker rides Redis pub/sub so watchers on other instances see
	// every transition.
	broker := booking.NewBroker(logger).WithRedis(utils.GetEventsClient())
	brokerCtx, stopBroker := context.WithCancel(context.Background())
	defer stopBroker()
	go func() {
		if err := broker.Run(brokerCtx); err != nil && brokerCtx.Err() == nil {
			logger.Sugar().Fatalf("main: event broker stopped: %v", err)
		}
	}()

	// Lifecycle engine.
	clock := booking.NewRealClock()
	engine := booking.NewEngine(repo, clock, queueSink, broker, logger, booking.Config{
		PaymentWindow: config.PaymentWindow(),
		MaxCASRetries: config.AppConfig.CASMaxRetries,
	})

	// Re-arm payment window timers lost in the previous shutdown.
	if err := engine.RecoverPendingTimers(context.Background()); err != nil {
		logger.Sugar().Fatalf("main: failed to recover pending timers: %v", err)
	}

	watcher := booking.NewStatusWatcher(repo, broker)

	// Payment proof storage is optional; without credentials, clients send
	// pre-uploaded proof URLs.
	var proofs storage.ProofStorage
	if cloudinaryStorage, err := storage.NewCloudinaryStorage(); err != nil {
		logger.Sugar().Warnf("main: cloudinary disabled: %v", err)
	} else {
		proofs = cloudinaryStorage
	}

	analyticsService := &analytics.DefaultAnalyticsService{
		Store:    repo,
		Cache:    utils.GetCacheClient(),
		CacheTTL: config.AnalyticsCacheTTL(),
		Logger:   logger,
	}

	// Create the Gin router.
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())

	handlerBundle := &handlers.HandlerBundle{
		Booking:   handlers.NewBookingHandler(engine, repo, watcher, clock, proofs),
		Analytics: handlers.NewAnalyticsHandler(analyticsService),
		Device:    handlers.NewDeviceHandler(tokens),
	}
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
