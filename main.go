package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chatify-service/internal/auth"
	"chatify-service/internal/config"
	"chatify-service/internal/db"
	"chatify-service/internal/fanout"
	"chatify-service/internal/handlers"
	"chatify-service/internal/logger"
	"chatify-service/internal/middleware"
	"chatify-service/internal/observability"
	"chatify-service/internal/presence"
	"chatify-service/internal/rabbitmq"
	"chatify-service/internal/repositories"
	"chatify-service/internal/telemetry"
	"chatify-service/internal/ws"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Environment)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.OTLPEndpoint, "chatify-service", cfg.Environment)
	if err != nil {
		log.Fatalw("failed to set up tracing", "err", err)
	}
	defer shutdownTracing(context.Background())

	database, err := db.Connect(cfg.DBDSN, log)
	if err != nil {
		log.Fatalw("failed to connect to db", "err", err)
	}
	defer database.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalw("failed to connect to redis", "err", err)
	}
	defer redisClient.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
	defer publisher.Close()
	log.Infow("event publisher ready", "mode", rabbitmq.PublisherMode(publisher))

	userRepo := repositories.NewUserRepo(database)
	convRepo := repositories.NewConversationRepo(database)
	msgRepo := repositories.NewMessageRepo(database)
	socialRepo := repositories.NewSocialRepo(database)

	authManager := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	tracker := presence.NewTracker(redisClient, cfg.PresenceTTL, log)

	hub := ws.NewHub(publisher, log)
	fan := fanout.New(hub, msgRepo, socialRepo, tracker, publisher, log)
	tracker.SetNotifier(fan)

	emitter := telemetry.NewAuditEmitter(publisher, "audit.chatify", "chatify-service", cfg.Environment, log)

	authHandler := handlers.NewAuthHandler(userRepo, authManager, tracker, emitter, log)
	userHandler := handlers.NewUserHandler(userRepo)
	convHandler := handlers.NewConversationHandler(convRepo, msgRepo, userRepo, socialRepo, fan, log)
	socialHandler := handlers.NewSocialHandler(socialRepo, userRepo, fan, emitter, log)
	presenceHandler := handlers.NewPresenceHandler(tracker)
	subscriptions := ws.NewSubscriptionHandler(hub, convRepo, fan, tracker, authManager, publisher, log)

	sweeper := presence.NewSweeper(tracker, cfg.PresenceSweepInterval, log)
	go sweeper.Run(ctx)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("chatify-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	router.POST("/auth/signup", authHandler.Signup)
	router.POST("/auth/login", authHandler.Login)

	authMiddleware := middleware.AuthMiddleware(authManager)

	router.POST("/auth/logout", authMiddleware, authHandler.Logout)
	router.GET("/me", authMiddleware, authHandler.Me)
	router.GET("/users/search", authMiddleware, userHandler.Search)

	router.GET("/conversations", authMiddleware, convHandler.ListConversations)
	router.POST("/messages", authMiddleware, convHandler.SendMessage)
	router.GET("/conversations/:key/messages", authMiddleware, convHandler.GetMessages)
	router.POST("/conversations/:key/messages/:message_id/read", authMiddleware, convHandler.MarkRead)

	router.POST("/friends/requests", authMiddleware, socialHandler.SendRequest)
	router.GET("/friends/requests", authMiddleware, socialHandler.ListRequests)
	router.POST("/friends/requests/:request_id/accept", authMiddleware, socialHandler.AcceptRequest)
	router.POST("/friends/requests/:request_id/decline", authMiddleware, socialHandler.DeclineRequest)
	router.GET("/friends", authMiddleware, socialHandler.ListFriends)
	router.GET("/friends/status/:user_id", authMiddleware, socialHandler.ConnectionStatus)

	router.POST("/presence/heartbeat", authMiddleware, presenceHandler.Heartbeat)
	router.GET("/presence/:user_id", authMiddleware, presenceHandler.Get)

	router.GET("/ws/conversations/:key", subscriptions.HandleConversation)
	router.GET("/ws/social", subscriptions.HandleSocial)
	router.GET("/ws/presence/:user_id", subscriptions.HandlePresence)

	handlers.RegisterDebugRoutes(router, emitter, cfg.DebugEndpoints)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infow("server listening", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalw("server error", "err", err)
	}
	log.Infow("server stopped")
}
