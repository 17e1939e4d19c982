package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.temporal.io/sdk/client"

	"github.com/thilaks-prosperr/train-booking-system/internal/bootstrap"
	"github.com/thilaks-prosperr/train-booking-system/internal/config"
	"github.com/thilaks-prosperr/train-booking-system/internal/fare"
	"github.com/thilaks-prosperr/train-booking-system/internal/handlers"
	"github.com/thilaks-prosperr/train-booking-system/internal/obs"
	"github.com/thilaks-prosperr/train-booking-system/internal/ratelimit"
	"github.com/thilaks-prosperr/train-booking-system/internal/router"
	"github.com/thilaks-prosperr/train-booking-system/internal/service"
	"github.com/thilaks-prosperr/train-booking-system/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, cfg.ServiceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracer: %v", err)
	}

	st, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	publisher, err := bootstrap.NewPublisher(cfg)
	if err != nil {
		log.Fatalf("Failed to connect event broker: %v", err)
	}
	defer publisher.Close()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	opts := []service.Option{
		service.WithPublisher(publisher),
		service.WithNotifier(hub),
	}

	// Composite bookings run on temporal when a frontend is configured
	if cfg.TemporalHost != "" {
		temporalClient, err := client.Dial(client.Options{
			HostPort: cfg.TemporalHost,
		})
		if err != nil {
			log.Fatalf("Failed to create Temporal client: %v", err)
		}
		defer temporalClient.Close()
		log.Printf("Connected to Temporal server at %s", cfg.TemporalHost)
		opts = append(opts, service.WithRunner(service.NewTemporalRunner(temporalClient, cfg.TaskQueue)))
	}

	var limiter ratelimit.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("Redis at %s unreachable, requests are let through until it is: %v", cfg.RedisAddr, err)
		}
		limiter = ratelimit.NewRedisLimiter(rdb, cfg.RateLimitWindow, cfg.RateLimitMax)
		log.Printf("Rate limiting bookings to %d per %s", cfg.RateLimitMax, cfg.RateLimitWindow)
	}

	bookingService := service.NewBookingService(st, fare.NewCalculator(cfg.PerKmRate), opts...)
	h := handlers.NewHandler(bookingService, hub)
	r := router.SetupRouter(h, limiter)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("API Server starting on port %s (store=%s)", cfg.Port, cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	stop()
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Printf("Failed to flush traces: %v", err)
	}

	log.Println("Server stopped")
}
