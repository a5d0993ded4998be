/**
 * @description
 * This is the main entry point for the shoe-vendo kiosk service. It initializes
 * configuration, the database pool, Redis, RabbitMQ, the application services, the
 * machine event consumer, the stale-cycle scheduler and the HTTP server, then waits
 * for a termination signal and shuts everything down in order.
 *
 * @dependencies
 * - github.com/joho/godotenv: For loading .env files during local development.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/redis/go-redis/v9: Rate limiting backend for the recovery endpoints.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/api"
	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/app"
	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/config"
	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/store"
	rmrabbit "github.com/JosePanoy/Web-App-Shoe-Vendo/pkg/rabbitmq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file for local development.
	if err := godotenv.Load(); err != nil {
		log.Println("level=info component=bootstrap msg=\"no .env file found; using environment variables\"")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url must be configured\" env=DATABASE_URL")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"jwt secret must be configured\" env=JWT_SECRET")
	}
	if strings.TrimSpace(cfg.InternalAPIKey) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"internal api key must be configured\" env=INTERNAL_API_KEY")
	}
	log.Printf("level=info component=bootstrap msg=\"starting kiosk service\" port=%s", cfg.ServerPort)

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}
	poolConfig.MaxConns = 20
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 30*time.Second)
	if err := store.EnsureSchema(schemaCtx, dbpool); err != nil {
		cancelSchema()
		log.Fatalf("level=fatal component=bootstrap msg=\"schema bootstrap failed\" err=%v", err)
	}
	cancelSchema()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	var publisher rmrabbit.Publisher
	if strings.TrimSpace(cfg.RabbitMQURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"rabbitmq url missing; events will be dropped\" env=RABBITMQ_URL")
	} else if producer, prodErr := rmrabbit.NewEventProducer(cfg.RabbitMQURL); prodErr != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", prodErr)
	} else {
		defer producer.Close()
		publisher = producer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	var limiter app.RateLimiter
	if strings.TrimSpace(cfg.RedisURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"redis url missing; recovery rate limiting disabled\" env=REDIS_URL")
	} else if redisOptions, parseErr := redis.ParseURL(cfg.RedisURL); parseErr != nil {
		log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; recovery rate limiting disabled\" err=%v", parseErr)
	} else {
		redisClient := redis.NewClient(redisOptions)
		pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
		pingErr := redisClient.Ping(pingCtx).Err()
		cancelPing()
		if pingErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis ping failed; recovery rate limiting disabled\" err=%v", pingErr)
			redisClient.Close()
		} else {
			defer redisClient.Close()
			limiter = app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix)
			log.Println("level=info component=bootstrap msg=\"redis connected\"")
		}
	}

	repository := store.NewPostgresRepository(dbpool)
	events := app.NewEventPublisher(publisher, cfg.EventExchange)
	auditor := app.NewAuditor(repository)
	hasher := app.NewBcryptHasher(cfg.BcryptCost)
	tokens := app.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.JWTTTLMinutes)*time.Minute)

	recovery := app.NewRecoveryFlow(repository, hasher, events, auditor)
	accounts := app.NewAccounts(repository, repository, hasher, tokens, auditor)
	if cfg.AdminBootstrapEnabled() {
		bootstrapCtx, cancelBootstrap := context.WithTimeout(context.Background(), 10*time.Second)
		created, err := accounts.BootstrapAdmin(bootstrapCtx, cfg.AdminBootstrapPin, cfg.AdminBootstrapEmail, cfg.AdminBootstrapPass)
		cancelBootstrap()
		if err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"admin bootstrap failed\" err=%v", err)
		}
		if !created {
			log.Println("level=info component=bootstrap msg=\"bootstrap admin already present\"")
		}
	} else {
		log.Println("level=warn component=bootstrap msg=\"no bootstrap admin configured\" env=ADMIN_BOOTSTRAP_PINCODE")
	}
	cycle := app.NewServiceCycle(repository, repository, app.CycleDurations{
		Standard: time.Duration(cfg.StandardDurationSec) * time.Second,
		Deep:     time.Duration(cfg.DeepDurationSec) * time.Second,
	}, events, auditor)
	feed := app.NewStatusFeed(cycle, time.Duration(cfg.StatusPushIntervalSec)*time.Second)
	cycle.SetStatusNotifier(feed)

	// The machine controller can always fall back to POST /internal/machine/state, so a
	// missing broker is not fatal here.
	if strings.TrimSpace(cfg.RabbitMQURL) != "" {
		rabbitConsumer, consErr := rmrabbit.NewConsumer(cfg.RabbitMQURL)
		if consErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"rabbitmq consumer unavailable; machine events disabled\" err=%v", consErr)
		} else {
			defer rabbitConsumer.Close()
			machineConsumer := app.NewMachineEventConsumer(cycle)
			if err := rabbitConsumer.ConsumeWithBindings(cfg.EventExchange, cfg.MachineEventQueue, machineConsumer.Bindings()); err != nil {
				log.Printf("level=warn component=bootstrap msg=\"machine consumer start failed\" err=%v", err)
			} else {
				log.Printf("level=info component=bootstrap msg=\"machine consumer started\" queue=%s", cfg.MachineEventQueue)
			}
		}
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	jobs := app.NewJobs(repository, events, feed, time.Duration(cfg.StaleCycleGraceSec)*time.Second, logger)
	scheduler := app.NewScheduler(jobs, logger, cfg)
	scheduler.Start()

	handlers := api.NewHandlers(recovery, accounts, cycle, feed, time.Duration(cfg.StatusHeartbeatSec)*time.Second)
	router := api.NewRouter(handlers, tokens, limiter, cfg)

	// Request contexts derive from baseCtx so open status streams end on shutdown.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	server.RegisterOnShutdown(cancelBase)

	go func() {
		log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)
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
	<-scheduler.Stop().Done()

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
