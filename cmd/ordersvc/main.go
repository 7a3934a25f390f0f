package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"campus-orderboard/internal/config"
	"campus-orderboard/internal/kafka"
	"campus-orderboard/internal/logger"
	"campus-orderboard/internal/ordersvc"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	log := logger.NewLogger("ordersvc")
	defer log.Close()

	ctx := context.Background()

	// --- SQLite setup ---
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.Database.Path)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("failed to open sqlite: %v", err))
	}
	defer sqldb.Close()

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	db := &ordersvc.DB{Bun: bunDB}
	if err := db.Migrate(ctx); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("migration failed: %v", err))
	}

	// --- Kafka producers, one per feed topic ---
	notifier := &ordersvc.Notifier{
		Orders:    kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.Orders),
		LineItems: kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.LineItems),
		Catalog:   kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.Catalog),
		Logger:    log,
	}
	defer notifier.Orders.Close()
	defer notifier.LineItems.Close()
	defer notifier.Catalog.Close()

	vendorID := cfg.View.VendorID
	if vendorID == "" {
		vendorID = "vendor-demo"
	}
	if err := ordersvc.Seed(ctx, db, notifier, vendorID); err != nil {
		log.Warn("DATABASE", fmt.Sprintf("seeding failed: %v", err))
	}

	// --- HTTP surface ---
	handler := &ordersvc.Handler{DB: db, Notifier: notifier, Logger: log}

	r := chi.NewRouter()
	handler.Routes(r)

	port := os.Getenv("ORDERSVC_PORT")
	if port == "" {
		port = ":8090"
	}

	server := &http.Server{
		Addr:         port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", fmt.Sprintf("order service running on %s", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("SERVER", "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("SERVER", fmt.Sprintf("shutdown error: %v", err))
	}
}
