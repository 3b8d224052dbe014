package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"go-social/internal/chat"
	"go-social/internal/comment"
	"go-social/internal/config"
	"go-social/internal/db"
	"go-social/internal/follow"
	"go-social/internal/middleware"
	"go-social/internal/notification"
	"go-social/internal/platform/logger"
	"go-social/internal/platform/telemetry"
	"go-social/internal/post"
	"go-social/internal/realtime"
	"go-social/internal/user"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Config
	cfg, err := config.Load()
	if err != nil {
		logger.New("go-social", "info", "text").Error("config load failed", "error", err)
		return err
	}

	log := logger.New(cfg.ServiceName, cfg.LogLevel, cfg.LogFormat)

	// 2. Tracing (no-op unless OTEL_ENDPOINT is set)
	shutdownTracing, err := telemetry.Init(ctx, cfg.ServiceName, cfg.TraceEndpoint)
	if err != nil {
		log.Error("telemetry init failed", "error", err)
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()

	// 3. Platform connections
	database, err := db.NewDatabase(cfg.DatabaseDSN)
	if err != nil {
		log.Error("database connection failed", "error", err)
		return err
	}
	defer database.Conn.Close()
	log.Info("connected to postgres")

	if err := database.AutoMigrate(); err != nil {
		log.Error("migration failed", "error", err)
		return err
	}
	log.Info("database schema initialized")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("redis connection failed", "error", err)
		return err
	}
	defer redisClient.Close()
	log.Info("connected to redis")

	// 4. Repositories
	userRepo := user.NewRepository(database.Conn)
	postRepo := post.NewRepository(database.Conn)
	commentRepo := comment.NewRepository(database.Conn)
	followRepo := follow.NewRepository(database.Conn)
	notificationRepo := notification.NewRepository(database.Conn)
	chatRepo := chat.NewRepository(database.Conn)

	// 5. Realtime core
	presence := realtime.NewPresence()
	rooms := realtime.NewRooms(chatRepo, cfg.MembershipTimeout)
	outbox := realtime.NewRetryOutbox(log, redisClient, cfg.OutboxStream, cfg.OutboxGroup, cfg.OutboxRetryDelay)
	dispatcher := realtime.NewDispatcher(log, presence, rooms, outbox)
	reconciler := realtime.NewReconciler(log, chatRepo, dispatcher)

	go func() {
		if err := outbox.Run(ctx, dispatcher.Redeliver); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("retry outbox stopped", "error", err)
		}
	}()

	// 6. Services
	userService := user.NewService(userRepo, cfg.JWTSecret)
	notificationService := notification.NewService(log, notificationRepo, dispatcher)
	postService := post.NewService(log, postRepo, notificationService, userService)
	commentService := comment.NewService(log, commentRepo, notificationService, userService)
	followService := follow.NewService(log, followRepo, notificationService, userService)
	chatService := chat.NewService(log, chatRepo, notificationService, reconciler)

	// 7. Handlers
	userHandler := user.NewHandler(userService)
	postHandler := post.NewHandler(postService)
	commentHandler := comment.NewHandler(commentService)
	followHandler := follow.NewHandler(followService)
	notificationHandler := notification.NewHandler(notificationService)
	chatHandler := chat.NewHandler(chatService)
	wsHandler := realtime.NewHandler(log, presence, dispatcher, reconciler)

	authMiddleware := middleware.NewAuthMiddleware(userService)

	// 8. Routes
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Tracer(cfg.ServiceName))

	r.Post("/signup", userHandler.Signup)
	r.Post("/signin", userHandler.Signin)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)

		r.Get("/ws", wsHandler.ServeWS)

		r.Post("/api/auth/refresh", userHandler.Refresh)
		r.Get("/api/users/search", userHandler.Search)
		r.Get("/api/users/by-username", userHandler.ByUsername)
		r.Put("/api/users/me", userHandler.UpdateProfile)
		r.Delete("/api/users/me", userHandler.DeleteAccount)

		r.Post("/api/posts", postHandler.Create)
		r.Get("/api/posts", postHandler.Feed)
		r.Get("/api/posts/{postID}", postHandler.ByID)
		r.Post("/api/posts/{postID}/like", postHandler.ToggleLike)
		r.Get("/api/posts/{postID}/comments", commentHandler.ByPost)
		r.Post("/api/comments", commentHandler.Create)
		r.Get("/api/users/{userID}/posts", postHandler.UserPosts)
		r.Get("/api/users/{userID}/likes", postHandler.UserLikes)

		r.Post("/api/users/{userID}/follow", followHandler.Toggle)
		r.Get("/api/users/{userID}/followers", followHandler.Followers)
		r.Get("/api/users/{userID}/following", followHandler.Following)
		r.Get("/api/users/suggested", followHandler.Suggested)

		r.Get("/api/notifications", notificationHandler.List)
		r.Put("/api/notifications/{notificationID}/read", notificationHandler.MarkRead)
		r.Put("/api/notifications/read-all", notificationHandler.MarkAllRead)
		r.Get("/api/notifications/unread-count", notificationHandler.UnreadCount)

		r.Post("/api/conversations", chatHandler.CreateConversation)
		r.Get("/api/conversations", chatHandler.ListConversations)
		r.Get("/api/conversations/{conversationID}/messages", chatHandler.ListMessages)
		r.Post("/api/messages", chatHandler.CreateMessage)
		r.Put("/api/conversations/{conversationID}/read", chatHandler.MarkRead)
	})

	// 9. Serve with graceful shutdown
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		log.Error("server stopped", "error", err)
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
		return err
	}
	return nil
}
