/**
 * @description
 * This is the main entry point for the campaign-service. It is responsible
 * for initializing all components of the service: configuration, the
 * Postgres event archive, the RabbitMQ producer, the treasury client, the
 * campaign ledger and its application service, and the HTTP server. It wires
 * everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/rabbitmq, pkg/treasuryclient: Clients for external systems.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/openfund/campaign-service/internal/api"
	"github.com/openfund/campaign-service/internal/app"
	"github.com/openfund/campaign-service/internal/config"
	"github.com/openfund/campaign-service/internal/domain"
	"github.com/openfund/campaign-service/internal/store"
	rmrabbit "github.com/openfund/campaign-service/pkg/rabbitmq"
	"github.com/openfund/campaign-service/pkg/treasuryclient"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if cfg.PlatformOwnerID == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"platform owner must be configured\" env=PLATFORM_OWNER_ID")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"jwt secret must be configured\" env=JWT_SECRET")
	}

	log.Printf("level=info component=bootstrap msg=\"starting campaign-service\" port=%s fee_bps=%d", cfg.ServerPort, cfg.PlatformFeeBps)

	// The event archive is optional: without DATABASE_URL the service runs
	// with an in-memory-only event log.
	var repository store.Repository = store.NoopRepository{}
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
		}
		poolConfig.MaxConns = 20
		poolConfig.MinConns = 2
		poolConfig.MaxConnLifetime = 30 * time.Minute
		poolConfig.MaxConnIdleTime = 5 * time.Minute

		dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
		if err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
		}
		defer dbpool.Close()
		repository = store.NewPostgresRepository(dbpool)
		log.Println("level=info component=bootstrap msg=\"database connected\"")
	} else {
		log.Println("level=warn component=bootstrap msg=\"no database configured; event archive disabled\" env=DATABASE_URL")
	}

	// Initialize the RabbitMQ producer to publish committed ledger events.
	var producer rmrabbit.Publisher
	rabbitProducer, err := rmrabbit.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		producer = &rmrabbit.EventProducerFallback{}
	} else {
		defer rabbitProducer.Close()
		producer = rabbitProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Initialize the treasury client. Without a configured treasury the
	// service cannot pay out withdrawals or verify escrow, so it is required.
	if strings.TrimSpace(cfg.TreasuryAPIBaseURL) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"treasury api must be configured\" env=TREASURY_API_BASE_URL")
	}
	treasury := treasuryclient.NewClient(cfg.TreasuryAPIBaseURL, cfg.TreasuryAPIKey)

	// Initialize the core application service with its dependencies.
	campaignService := app.NewService(
		domain.Identity(cfg.PlatformOwnerID),
		cfg.PlatformFeeBps,
		treasury,
		treasury,
		repository,
		producer,
		cfg.CampaignEventExchange,
	)
	defer campaignService.Shutdown()

	// Optional Redis-backed donation rate limiting.
	if cfg.DonationRateLimitPerMinute > 0 {
		if cfg.RedisURL == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; donation rate limiting disabled\" env=REDIS_URL")
		} else if redisOptions, parseErr := redis.ParseURL(cfg.RedisURL); parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; donation rate limiting disabled\" err=%v", parseErr)
		} else {
			redisClient := redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPing()
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; donation rate limiting disabled\" err=%v", pingErr)
				redisClient.Close()
			} else {
				defer redisClient.Close()
				campaignService.ConfigureDonationRateLimit(
					app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix),
					cfg.DonationRateLimitPerMinute,
				)
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
			}
		}
	}

	// Initialize the API handlers.
	campaignHandlers := api.NewCampaignHandlers(campaignService)

	// Set up the HTTP router and define the API routes.
	router := chi.NewRouter()
	router.Mount("/campaigns", api.CampaignRoutes(campaignHandlers, cfg.JWTSecret))

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
