package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/crm-backend/internal/api"
	"github.com/ignite/crm-backend/internal/config"
	"github.com/ignite/crm-backend/internal/contentgen"
	"github.com/ignite/crm-backend/internal/enrichment"
	"github.com/ignite/crm-backend/internal/mailer"
	"github.com/ignite/crm-backend/internal/pkg/distlock"
	"github.com/ignite/crm-backend/internal/pkg/httpretry"
	"github.com/ignite/crm-backend/internal/pkg/logger"
	"github.com/ignite/crm-backend/internal/repository/postgres"
	"github.com/ignite/crm-backend/internal/segmentation"
	"github.com/ignite/crm-backend/internal/service/campaign"
	"github.com/ignite/crm-backend/internal/service/segment"
	"github.com/ignite/crm-backend/internal/templating"
	"github.com/ignite/crm-backend/internal/worker"
)

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	if cfg.Log.RedactPII != nil {
		logger.SetRedactPII(*cfg.Log.RedactPII)
	}

	if cfg.Database.URL == "" {
		log.Fatal("database url is required (config database.url or DATABASE_URL)")
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		log.Fatalf("ping database: %v", err)
	}
	logger.Info("connected to database")

	// Redis is optional: without it estimate caching is skipped and
	// dispatch locking falls back to Postgres advisory locks.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn("redis unreachable, continuing without it", "addr", cfg.Redis.Addr, "error", err)
			redisClient = nil
		} else {
			logger.Info("connected to redis", "addr", cfg.Redis.Addr)
		}
	}

	// Repositories.
	customerRepo := postgres.NewCustomerRepo(db)
	segmentRepo := postgres.NewSegmentRepo(db)
	campaignRepo := postgres.NewCampaignRepo(db)
	logRepo := postgres.NewCommLogRepo(db)

	// Services.
	resolver := segmentation.NewResolver(db, redisClient)
	segmentSvc := segment.NewService(segmentRepo, resolver)
	campaignSvc := campaign.NewService(campaignRepo, segmentSvc)

	// Mail transport with retrying HTTP client.
	mailClient := httpretry.NewRetryClient(&http.Client{Timeout: cfg.Mailer.Timeout()}, cfg.Mailer.MaxRetries)
	transport := mailer.NewHTTPTransport(cfg.Mailer.BaseURL, cfg.Mailer.APIKey, mailClient)

	// Campaign dispatcher.
	dispatcher := worker.NewDispatcher(campaignRepo, segmentSvc, logRepo, transport,
		templating.NewEngine(),
		func(key string) distlock.DistLock {
			return distlock.NewLock(redisClient, db, key, 10*time.Minute)
		},
		worker.Options{
			BatchSize:   cfg.Dispatch.BatchSize,
			SendTimeout: cfg.Dispatch.SendTimeout(),
		})

	handlers := api.NewHandlers(segmentSvc, campaignSvc, customerRepo, logRepo)
	handlers.SetDispatcher(dispatcher)

	// Enrichment is optional: without a scoring service URL the enrich
	// endpoints answer 503.
	if cfg.Scoring.BaseURL != "" {
		scoringClient := enrichment.NewClient(cfg.Scoring.BaseURL,
			httpretry.NewRetryClient(&http.Client{Timeout: cfg.Scoring.Timeout()}, cfg.Scoring.MaxRetries))
		handlers.SetEnricher(enrichment.NewEnricher(scoringClient, customerRepo))
	}

	// Content generation is optional: without an API key the
	// generate-content endpoint answers 503.
	if cfg.Content.APIKey != "" {
		handlers.SetContentGenerator(contentgen.NewGenerator(cfg.Content.BaseURL, cfg.Content.APIKey, cfg.Content.Model,
			httpretry.NewRetryClient(&http.Client{Timeout: cfg.Content.Timeout()}, cfg.Content.MaxRetries)))
	}

	server := api.NewServer(handlers, api.NewHealthChecker(db, redisClient))

	go func() {
		addr := cfg.Server.Addr()
		logger.Info("server listening", "addr", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-done

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
