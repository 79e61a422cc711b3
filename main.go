package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"proxo/config"
	"proxo/cron"
	"proxo/database"
	hangoutRepo "proxo/database/repository/hangout"
	userRepoPkg "proxo/database/repository/user"
	"proxo/handlers"
	"proxo/routes"
	"proxo/services/geo"
	"proxo/services/hangout"
	"proxo/services/user"
	"proxo/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// changeFeedChannel is the Redis pub/sub channel used when CHANGE_FEED=redis.
const changeFeedChannel = "hangouts:changes"

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	cfg := config.AppConfig

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	database.InitDB()
	utils.FirebaseInit()
	db := database.Database()

	// repositories.
	redisClients := []*redis.Client{}
	var requests hangoutRepo.HangoutRepository
	var broadcast *hangoutRepo.RedisBroadcastRepo
	switch cfg.ChangeFeed {
	case "memory":
		logger.Warn("main: hangout requests are kept in memory; live feeds only see this process")
		requests = hangoutRepo.NewMemoryHangoutRepo()
	case "redis":
		feedClient := utils.GetFeedClient()
		redisClients = append(redisClients, feedClient)
		broadcast = hangoutRepo.NewRedisBroadcastRepo(
			hangoutRepo.NewMongoHangoutRepo(db, logger), feedClient, changeFeedChannel, logger)
		requests = broadcast
	default:
		requests = hangoutRepo.NewMongoHangoutRepo(db, logger)
	}
	users := userRepoPkg.NewMongoUserRepo(db, logger)

	// geocoding.
	google := geo.NewGoogleGeocoder(cfg.GoogleAPIKey, "")
	// Lookup caches need Redis; the memory feed runs without it unless geocoding is on.
	var cacheClient *redis.Client
	if google.Available() || cfg.ChangeFeed != "memory" {
		cacheClient = utils.GetCacheClient()
		redisClients = append(redisClients, cacheClient)
	}
	var geocoder geo.Geocoder = google
	if google.Available() {
		geocoder = geo.NewCachedGeocoder(google, cacheClient, cfg.GeocodeCacheTTL(), logger)
	} else {
		logger.Warn("main: GOOGLE_API_KEY not set; locations will be shown as coordinates")
	}
	resolver := geo.NewResolver(geocoder, google.Available, cfg.GeocodeTimeout(), logger)
	ipLocator := geo.NewIPLocator("", cacheClient, cfg.IPCacheTTL(), logger)

	// services.
	store := hangout.NewStore(requests, hangout.StoreOptions{
		RetryAttempts: cfg.StoreRetryAttempts,
		RetryBackoff:  cfg.StoreRetryBackoff(),
		Logger:        logger,
	})
	hangoutService := hangout.NewHangoutService(requests, nil, logger)

	// Expiry notices need a pub/sub change feed to be delivered on.
	var expiryWorker *asynq.Server
	if broadcast != nil {
		queueOpt := asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisQueueDB,
		}
		worker, err := cron.StartExpiryWorker(queueOpt, broadcast, logger)
		if err != nil {
			logger.Warn("main: expiry notices disabled", zap.Error(err))
		} else {
			expiryWorker = worker
			scheduler := cron.NewExpiryScheduler(queueOpt, logger)
			defer scheduler.Close()
			hangoutService.Expiry = scheduler
		}
	}

	userService := &user.DefaultUserService{Repo: users, Logger: logger}
	if photos, err := utils.Cloudinary(); err != nil {
		logger.Warn("main: photo uploads disabled", zap.Error(err))
	} else {
		userService.Photos = photos
	}

	// handlers.
	hangoutHandler := &handlers.HangoutHandler{
		Service:         hangoutService,
		Store:           store,
		Resolver:        resolver,
		IPLocator:       ipLocator,
		PositionOptions: cfg.PositionOptions(),
		RefreshInterval: cfg.FeedRefreshInterval(),
	}
	placesHandler := &handlers.PlacesHandler{
		Resolver:        resolver,
		IPLocator:       ipLocator,
		PositionOptions: cfg.PositionOptions(),
	}
	profileHandler := &handlers.ProfileHandler{UserService: userService}
	handlerBundle := handlers.NewHandlerBundle(hangoutHandler, placesHandler, profileHandler)

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	routes.RegisterRoutes(router, handlerBundle, routes.Auth{
		Verifier: utils.FirebaseAuth,
		Users:    userService,
	}, cfg.MaxRequestsPerMin)

	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	defer stopMonitor()
	utils.StartHealthMonitor(monitorCtx, 30*time.Second, redisClients, database.MongoClient)

	// Start the HTTP server.
	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s (change feed: %s)...", srv.Addr, cfg.ChangeFeed)
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
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	if expiryWorker != nil {
		expiryWorker.Shutdown()
	}
	if err := database.CloseDB(ctx); err != nil {
		logger.Sugar().Errorf("main: failed to close database: %v", err)
	}
	_ = logger.Sync()

	logger.Sugar().Info("main: server stopped gracefully")
}
