package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"campus-orderboard/internal/board"
	"campus-orderboard/internal/boardapi"
	"campus-orderboard/internal/catalog"
	"campus-orderboard/internal/config"
	"campus-orderboard/internal/feed"
	kafkafeed "campus-orderboard/internal/kafka"
	"campus-orderboard/internal/logger"
	"campus-orderboard/internal/orderclient"
	"campus-orderboard/internal/sse"
	"campus-orderboard/internal/store"
	"campus-orderboard/internal/subscription"
	"campus-orderboard/internal/transition"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	log := logger.NewLogger("boardd")
	defer log.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Redis (shared catalog snapshot) ---
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Warn("REDIS", fmt.Sprintf("redis unavailable at %s, catalog snapshot sharing disabled: %v", cfg.Redis.Addr, err))
			redisClient = nil
		}
		pingCancel()
	}

	// --- Engine wiring ---
	client := orderclient.NewClient(cfg.OrderService.BaseURL, cfg.OrderService.Timeout)
	aggregate := store.NewAggregateStore(log)
	catalogCache := catalog.NewCache(client, redisClient, log)
	projector := board.NewProjector(aggregate, catalogCache)
	coordinator := transition.NewCoordinator(aggregate, projector, client, log)

	normalizer := feed.NewNormalizer(log)
	source := kafkafeed.NewSource(cfg.Kafka, log)
	manager := subscription.NewManager(aggregate, catalogCache, normalizer, client, source, log)

	viewKey := cfg.View.VendorID
	if viewKey == "" {
		viewKey = "default"
	}
	emitter := sse.NewBoardEventEmitter()
	notify := func() { emitter.Emit(viewKey) }
	manager.SetOnChange(notify)
	coordinator.SetOnChange(notify)
	coordinator.SetActiveGuard(manager.Active)

	scope := subscription.Scope{VendorID: cfg.View.VendorID, CounterID: cfg.View.CounterID}
	if err := manager.Start(ctx, scope); err != nil {
		log.Fatal("SUBSCRIPTION", fmt.Sprintf("failed to start view: %v", err))
	}
	defer manager.Stop()

	// --- HTTP surface ---
	handler := &boardapi.Handler{
		Projector:   projector,
		Coordinator: coordinator,
		Emitter:     emitter,
		ViewKey:     viewKey,
		Logger:      log,
	}

	r := chi.NewRouter()
	handler.Routes(r)

	server := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", fmt.Sprintf("board service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("SERVER", "shutting down")
	manager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("SERVER", fmt.Sprintf("shutdown error: %v", err))
	}
}
