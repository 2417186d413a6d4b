package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"givers/internal/disclosure"
	"givers/internal/donation/checkout"
	donationhandler "givers/internal/donation/handler"
	donationmetrics "givers/internal/donation/metrics"
	donationservice "givers/internal/donation/service"
	donationstore "givers/internal/donation/store/donation"
	recurringstore "givers/internal/donation/store/recurring"
	"givers/internal/platform/config"
	"givers/internal/platform/events"
	"givers/internal/platform/httpserver"
	"givers/internal/platform/logger"
	"givers/internal/platform/middleware"
	platformredis "givers/internal/platform/redis"
	"givers/internal/platformhealth"
	healthstore "givers/internal/platformhealth/store/health"
	projecthandler "givers/internal/project/handler"
	projectservice "givers/internal/project/service"
	projectstore "givers/internal/project/store/project"
	userhandler "givers/internal/user/handler"
	userservice "givers/internal/user/service"
	userstore "givers/internal/user/store/user"
	"givers/pkg/platform/tx"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	// Stores: PostgreSQL when configured, in-memory otherwise (local dev).
	var (
		projects  projectservice.ProjectStore
		donations donationservice.DonationStore
		recurring donationservice.RecurringStore
		users     userservice.UserStore
		health    platformhealth.Store
		runner    tx.Runner
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database", "error", err)
			os.Exit(1)
		}
		if err := db.PingContext(context.Background()); err != nil {
			log.Error("ping database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		projects = projectstore.NewPostgres(db)
		donations = donationstore.NewPostgres(db)
		recurring = recurringstore.NewPostgres(db)
		users = userstore.NewPostgres(db)
		health = healthstore.NewPostgres(db)
		runner = &tx.SQLRunner{DB: db}
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		projects = projectstore.NewInMemory()
		donations = donationstore.NewInMemory()
		recurring = recurringstore.NewInMemory()
		users = userstore.NewInMemory()
		health = healthstore.NewInMemory()
		runner = &tx.MemoryRunner{}
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	userSvc := userservice.New(users, userservice.WithLogger(log))

	totals := &totalsProxy{}
	projectSvc := projectservice.New(projects, userSvc, totals,
		projectservice.WithLogger(log))

	donationOpts := []donationservice.Option{
		donationservice.WithLogger(log),
		donationservice.WithMetrics(donationmetrics.New()),
		donationservice.WithPublisher(publisher),
		donationservice.WithYearlyNormalization(cfg.NormalizeYearly),
	}
	if redisClient != nil {
		donationOpts = append(donationOpts,
			donationservice.WithCache(platformredis.NewCache(redisClient, cfg.Redis)))
	}
	if cfg.CheckoutBaseURL != "" {
		donationOpts = append(donationOpts,
			donationservice.WithCheckout(checkout.NewClient(cfg.CheckoutBaseURL)))
	}
	donationSvc := donationservice.New(recurring, donations, userSvc, projectSvc, runner, donationOpts...)
	totals.svc = donationSvc

	disclosureSvc := disclosure.New(userSvc, projectSvc, donations, recurring, log)
	healthSvc := platformhealth.New(health, donationSvc, platformhealth.WithLogger(log))

	validator := middleware.NewValidator(cfg.JWTSigningKey)
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.Recovery(log),
		middleware.Logger(log),
		middleware.Attach(validator, log),
	)

	projecthandler.New(projectSvc, log).Register(router)
	donationhandler.New(donationSvc, log).Register(router)
	userhandler.New(userSvc, donationSvc, log).Register(router)
	disclosure.NewHandler(disclosureSvc, log).Register(router)
	platformhealth.NewHandler(healthSvc, log).Register(router)

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting givers", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
