package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"handyhub/config"
	"handyhub/cron"
	"handyhub/database"
	messagesRepo "handyhub/database/repository/messages"
	recordsRepo "handyhub/database/repository/records"
	"handyhub/handlers"
	"handyhub/middleware"
	"handyhub/routes"
	"handyhub/services/booking"
	"handyhub/services/chat"
	"handyhub/services/notification"
	"handyhub/services/realtime"
	"handyhub/services/records"
	"handyhub/services/registry"
	"handyhub/services/tasks"
	"handyhub/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer logger.Sync()

	// Cancelled on shutdown; bounds sockets, the sweeper and the health monitor.
	appCtx, stop := context.WithCancel(context.Background())
	defer stop()

	if err := database.InitDB(appCtx); err != nil {
		logger.Fatal("main: failed to connect to MongoDB", zap.Error(err))
	}
	utils.InitCache()
	cache := utils.GetCacheClient()

	// Repositories.
	recordRepo, err := recordsRepo.NewMongoRecordRepo(database.Database())
	if err != nil {
		logger.Fatal("main: failed to prepare booking records", zap.Error(err))
	}
	messageRepo, err := messagesRepo.NewMongoMessageRepo(database.Database())
	if err != nil {
		logger.Fatal("main: failed to prepare chat messages", zap.Error(err))
	}

	// Receipts: records enqueue, the worker pushes through FCM.
	enqueuer := tasks.NewEnqueuer(utils.TaskQueueRedisOpt())
	tokens := notification.NewRedisTokenStore(cache)
	fcm, err := utils.FirebaseMessaging(appCtx)
	if err != nil {
		logger.Fatal("main: failed to initialize firebase", zap.Error(err))
	}
	var sender notification.MessageSender
	if fcm != nil {
		sender = fcm
	} else {
		logger.Info("main: FIREBASE_CREDENTIALS_FILE not set, receipt pushes disabled")
	}
	push := notification.NewFCMPushService(sender, tokens, logger)
	worker := cron.NewReceiptWorker(utils.TaskQueueRedisOpt(), push, logger)
	worker.Start()

	bridge := records.NewBridge(
		recordRepo,
		records.NewRedisRecordCache(cache, config.AppConfig.RecordCacheTTL),
		enqueuer,
		logger,
	)

	// Realtime core.
	reg := registry.NewInMemoryRegistry()
	hub := realtime.NewHub(logger, config.AppConfig.SocketEventsPerSec, config.AppConfig.SocketEventBurst)
	router := notification.NewRouter(reg, hub, logger)
	sessions := booking.NewSessionStore()

	coordinator := &booking.DefaultCoordinationService{
		Sessions: sessions,
		Registry: reg,
		Router:   router,
		Records:  bridge,
		Tokens:   tokens,
		Rates: booking.Rates{
			MinimumCharge: config.AppConfig.MinimumCharge,
			HourlyRate:    config.AppConfig.HourlyRate,
		},
		Logger: logger,
		Now:    time.Now,
	}
	chatService := &chat.Service{
		Messages: messageRepo,
		Registry: reg,
		Router:   router,
		Sessions: coordinator,
		Records:  bridge,
		Logger:   logger,
		Now:      time.Now,
	}

	cron.StartSessionSweeper(appCtx, sessions, config.AppConfig.SessionSweepInterval, config.AppConfig.SessionRetention, logger)
	utils.StartHealthMonitor(appCtx, 30*time.Second, []*redis.Client{cache}, database.MongoClient)

	// HTTP surface.
	origins := splitOrigins(config.AppConfig.AllowedOrigins)
	socketHandler := handlers.NewSocketHandler(appCtx, hub, coordinator, chatService, config.AppConfig.SocketAuthRequired, origins, logger)
	handlerBundle := handlers.NewHandlerBundle(
		socketHandler,
		&handlers.RecordHandler{Records: bridge},
		&handlers.SessionHandler{Sessions: coordinator},
		&handlers.MessageHandler{Messages: chatService},
		handlers.HealthHandler(hub.Count, sessions.Len),
	)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Logger())
	engine.Use(utils.ErrorHandler())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.RateLimitMiddleware(config.AppConfig.MaxRequestsPerMin, logger))
	routes.RegisterRoutes(engine, handlerBundle, origins)

	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: engine,
	}

	logger.Info("Starting server", zap.String("addr", srv.Addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("main: server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("main: server is shutting down")

	shutdown(srv, hub, worker, enqueuer, stop, cache, logger)
	logger.Info("main: server stopped gracefully")
}

// shutdown stops intake first, then background work, then closes the stores.
func shutdown(srv *http.Server, hub *realtime.Hub, worker *cron.ReceiptWorker, enqueuer *tasks.Enqueuer, stop context.CancelFunc, cache *redis.Client, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("main: server forced to shutdown", zap.Error(err))
	}
	// Hijacked websocket connections are not tracked by http.Server.
	hub.CloseAll()
	stop()
	worker.Shutdown()

	if err := enqueuer.Close(); err != nil {
		logger.Warn("main: failed to close task client", zap.Error(err))
	}
	if err := database.Close(ctx); err != nil {
		logger.Warn("main: failed to disconnect MongoDB", zap.Error(err))
	}
	if err := cache.Close(); err != nil {
		logger.Warn("main: failed to close Redis", zap.Error(err))
	}
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
