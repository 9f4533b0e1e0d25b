package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"vibes/internal/chat"
	"vibes/internal/config"
	"vibes/internal/db"
	"vibes/internal/middleware"
	"vibes/internal/post"
	"vibes/internal/presence"
	"vibes/internal/realtime"
	"vibes/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Platform layer
	database, err := db.NewDatabase(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	log.Info().Msg("connected to PostgreSQL")

	if err := database.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	log.Info().Msg("database schema initialized")

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	log.Info().Msg("connected to Redis")

	// Users
	userRepo := user.NewRepository(database.Conn)
	userService := user.NewService(userRepo, cfg.JWTSecret)
	userHandler := user.NewHandler(userService)

	// Realtime layer: one registry + broker per process, injected everywhere
	registry := realtime.NewRegistry()
	broker := realtime.NewBroker(registry)
	gate := realtime.NewAuthGate(userService)

	chatRepo := chat.NewRepository(database.Conn)
	chatHandler := chat.NewHandler(chatRepo, broker)

	tracker := presence.NewTracker(redisClient)
	presenceHandler := presence.NewHandler(tracker)

	rtHandler := realtime.NewHandler(registry, broker, gate, chatRepo, tracker)

	postRepo := post.NewRepository(database.Conn)
	postHandler := post.NewHandler(postRepo, broker)

	authMiddleware := middleware.NewAuthMiddleware(userService)

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// Public routes
	r.Post("/register", userHandler.Register)
	r.Post("/login", userHandler.Login)

	// WebSocket routes: the chat channel runs its own auth gate off the
	// token query param, the feed channel is open to everyone
	r.Get("/ws/chat/{conversationID}", rtHandler.ServeChatWS)
	r.Get("/ws/posts", rtHandler.ServeFeedWS)

	// Protected routes (require JWT)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)

		r.Get("/api/users/search", userHandler.SearchUsers)
		r.Get("/api/users/profile", userHandler.GetProfile)
		r.Put("/api/users/profile", userHandler.UpdateProfile)
		r.Get("/api/users/followers", userHandler.Followers)
		r.Get("/api/users/following", userHandler.Following)
		r.Get("/api/users/follow-status", userHandler.FollowStatus)
		r.Post("/api/users/follow", userHandler.Follow)
		r.Post("/api/users/unfollow", userHandler.Unfollow)
		r.Get("/api/users/{userID}", userHandler.GetProfile)
		r.Get("/api/users/{userID}/presence", presenceHandler.Get)

		r.Get("/api/chat/conversations", chatHandler.ListConversations)
		r.Post("/api/chat/conversations", chatHandler.CreateConversation)
		r.Get("/api/chat/conversations/{conversationID}", chatHandler.GetConversation)
		r.Get("/api/chat/conversations/{conversationID}/messages", chatHandler.ListMessages)
		r.Post("/api/chat/conversations/{conversationID}/messages", chatHandler.SendMessage)
		r.Post("/api/chat/conversations/{conversationID}/read", chatHandler.MarkRead)

		r.Get("/api/posts", postHandler.ListPosts)
		r.Post("/api/posts", postHandler.CreatePost)
		r.Post("/api/posts/{postID}/like", postHandler.LikePost)
		r.Post("/api/posts/{postID}/unlike", postHandler.UnlikePost)
		r.Get("/api/posts/{postID}/comments", postHandler.ListComments)
		r.Post("/api/posts/{postID}/comments", postHandler.CreateComment)
	})

	log.Info().Str("addr", cfg.Addr).Msg("server starting")
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
