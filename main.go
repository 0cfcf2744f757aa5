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
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/analytics"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/auth"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/config"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/database/migrations"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/kafka"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/logger"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/models"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/notification"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/reservation"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/reservation/db"
	rediswrap "github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/reservation/redis"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/reservation/reservation_api"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/scheduler"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/tables"
)

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	log.Info("DATABASE", "✅ PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

// noopPublisher satisfies the event publisher when Kafka is disabled.
type noopPublisher struct{}

func (noopPublisher) PublishReservationCreated(models.Reservation) error    { return nil }
func (noopPublisher) PublishReservationUpdated(models.Reservation) error    { return nil }
func (noopPublisher) PublishStatusChanged(models.Reservation, string) error { return nil }

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Reservation Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	log.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()
	defer redisClient.Close()

	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
	if err := runner.RunMigrations(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
	}
	defer runner.Close()

	var publisher reservation.KafkaPublisher = noopPublisher{}
	if cfg.Kafka.Enabled {
		log.Info("KAFKA", fmt.Sprintf("Using Kafka brokers: %v", cfg.Kafka.Brokers))
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics)
		defer producer.Close()

		requiredTopics := []string{
			cfg.Kafka.Topics.ReservationCreated,
			cfg.Kafka.Topics.ReservationUpdated,
			cfg.Kafka.Topics.ReservationStatusChanged,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}
		publisher = producer
	} else {
		log.Warn("KAFKA", "Kafka disabled, lifecycle events will not be published")
	}

	dbLayer := &db.DB{Bun: bunDB, MaxSpan: time.Duration(cfg.Reservation.MaxDurationMin) * time.Minute}
	tableGateway := tables.NewGateway(bunDB)
	slotLock := rediswrap.NewSlotLock(redisClient, cfg.Redis.LockTTL)
	transport := notification.NewSMTPTransport(cfg.Email)
	notificationService := notification.NewService(dbLayer, transport, log,
		cfg.Reservation.ReminderWindow, cfg.Reservation.BatchSendPause)
	reservationService := reservation.NewService(dbLayer, tableGateway, notificationService,
		slotLock, publisher, log, cfg.Reservation, cfg.Scheduler)
	analyticsService := analytics.NewService(bunDB)

	jobs := scheduler.New(reservationService, notificationService, analyticsService, log)
	if cfg.Scheduler.Enabled {
		jobs.Start(ctx)
		defer jobs.Stop()
	} else {
		log.Warn("SCHEDULER", "Scheduler disabled, background jobs will only run on demand")
	}

	handler := reservation_api.NewHandler(reservationService, notificationService, analyticsService, jobs)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", handler.Health)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware())

		r.Route("/api", func(r chi.Router) {
			r.Route("/reservations", func(r chi.Router) {
				r.Post("/", handler.CreateReservation)
				r.Get("/", handler.ListReservations)
				r.Get("/date/{date}", handler.ListReservationsByDate)
				r.Get("/{reservationId}", handler.GetReservation)
				r.Patch("/{reservationId}", handler.UpdateReservation)
				r.Post("/{reservationId}/status", handler.ChangeStatus)
				r.Post("/{reservationId}/table", handler.AssignTable)
				r.Post("/{reservationId}/notifications/retry", handler.RetryNotification)
				r.Post("/{reservationId}/notifications/{type}", handler.SendNotification)
			})
			log.Info("ROUTER", "Reservation routes registered under /api/reservations")

			r.Post("/notifications/reminders/batch", handler.BatchReminders)
			r.Post("/jobs/{name}/run", handler.RunJob)
			r.Get("/restaurants/{restaurantId}/stats", handler.RestaurantStats)
			log.Info("ROUTER", "Notification, job and stats routes registered under /api")
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Reservation Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Reservation Service shutdown complete")
	}
}
