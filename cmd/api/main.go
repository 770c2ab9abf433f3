package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/lawlink/booking-platform/internal/api/router"
	"github.com/lawlink/booking-platform/internal/availability"
	"github.com/lawlink/booking-platform/internal/bookings"
	appconfig "github.com/lawlink/booking-platform/internal/config"
	"github.com/lawlink/booking-platform/internal/http/handlers"
	"github.com/lawlink/booking-platform/internal/observability/metrics"
	"github.com/lawlink/booking-platform/internal/reservation"
	"github.com/lawlink/booking-platform/internal/schedule"
	"github.com/lawlink/booking-platform/internal/timeoff"
	"github.com/lawlink/booking-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("redis unreachable", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Profile store and availability cache always live in redis; the ledgers
	// run against Postgres unless memory stores are requested.
	profiles := schedule.NewStore(rdb)
	cache := availability.NewCache(rdb, cfg.AvailabilityCacheTTL)

	var (
		timeOffStore  availability.TimeOffStore
		bookingStore  bookings.ConsultationStore
		bookingSource availability.BookingSource
		ledger        reservation.Ledger
	)
	if cfg.UseMemoryStores {
		logger.Warn("running with in-memory stores; reservations will not survive a restart")
		memBookings := bookings.NewMemoryStore()
		timeOffStore = timeoff.NewMemoryStore()
		bookingStore = memBookings
		bookingSource = memBookings
		ledger = reservation.NewMemoryStore(memBookings)
	} else {
		if cfg.DatabaseURL == "" {
			logger.Error("DATABASE_URL is required unless USE_MEMORY_STORES is set")
			os.Exit(1)
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Error("database unreachable", "error", err)
			os.Exit(1)
		}
		pgBookings := bookings.NewStore(pool)
		timeOffStore = timeoff.NewStore(pool)
		bookingStore = pgBookings
		bookingSource = pgBookings
		ledger = reservation.NewStore(pool)
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewBookingMetrics(reg)

	availSvc := availability.NewService(profiles, timeOffStore, bookingSource, ledger, cache, m, logger, cfg.MaxQueryRangeDays)
	mgr := reservation.NewManager(ledger, cfg.ReservationTTL, cfg.ReservationTTLMax, logger, m)
	bookingSvc := bookings.NewService(bookingStore, mgr, logger)

	sweeper := reservation.NewSweeper(mgr, cfg.SweepInterval, logger)
	go sweeper.Start(ctx)

	r := router.New(&router.Config{
		Logger:              logger,
		AvailabilityHandler: handlers.NewAvailabilityHandler(availSvc, logger),
		ReservationHandler:  handlers.NewReservationHandler(mgr, logger),
		ConsultationHandler: handlers.NewConsultationHandler(bookingSvc, logger),
		MetricsHandler:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:  splitOrigins(cfg.CORSAllowedOrigins),
		ReserveRateLimit:    cfg.ReserveRateLimit,
		ReserveBurst:        cfg.ReserveBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func splitOrigins(raw string) []string {
	var out []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}
