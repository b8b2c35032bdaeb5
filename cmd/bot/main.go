package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-bot/internal/api/http"
	"github.com/spec-kit/ticket-bot/internal/api/http/handlers"
	"github.com/spec-kit/ticket-bot/internal/allocator"
	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/bot"
	"github.com/spec-kit/ticket-bot/internal/cache"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/persistence"
	"github.com/spec-kit/ticket-bot/internal/platform/discord"
	"github.com/spec-kit/ticket-bot/internal/repository"
	"github.com/spec-kit/ticket-bot/internal/service"
	"github.com/spec-kit/ticket-bot/internal/worker"
)

func main() {
	envFile := pflag.String("env", "", "dotenv file loaded before the environment is read")
	guildsFile := pflag.String("guilds", "", "per-guild settings file (overrides GUILDS_FILE)")
	noHTTP := pflag.Bool("no-http", false, "do not start the health, metrics and transcript server")
	pflag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("failed to load %s: %v", *envFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *guildsFile != "" {
		cfg.GuildsFile = *guildsFile
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Discord.Token == "" {
		logger.Fatal("DISCORD_TOKEN is required")
	}

	guilds, err := config.LoadGuilds(cfg.GuildsFile)
	if err != nil {
		logger.Fatal("failed to load guild settings", zap.String("path", cfg.GuildsFile), zap.Error(err))
	}
	logger.Info("guild settings loaded", zap.Int("guilds", len(guilds)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var ticketRepo repository.TicketRepository
	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		ticketRepo = repository.NewTicketRepository(pool)
	} else {
		ticketRepo = repository.NewMemoryTicketRepository()
	}

	rdb := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer rdb.Close()

	categoryCache := cache.NewMemoryCategoryCache()
	if rdb.Client != nil {
		categoryCache = cache.NewCategoryCache(rdb.Client, cfg.Tickets.CategoryCacheTTL, logger)
	}

	session, err := discord.NewSession(cfg.Discord.Token)
	if err != nil {
		logger.Fatal("failed to create discord session", zap.Error(err))
	}
	client := discord.NewClient(session)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TranscriptTokenTTL)

	categories := allocator.New(client, categoryCache, logger, allocator.Options{
		Capacity: cfg.Tickets.CategoryCapacity,
		Naming: allocator.Naming{
			Canonical:   cfg.Tickets.CategoryName,
			Keyword:     cfg.Tickets.CategoryKeyword,
			MaxOverflow: cfg.Tickets.MaxOverflow,
		},
	})

	transcripts := service.NewTranscriptService(service.TranscriptDependencies{
		Platform:   client,
		TicketRepo: ticketRepo,
		Guilds:     guilds,
		Tokens:     tokens,
		Config:     cfg.Transcripts,
		Metrics:    metrics,
		Logger:     logger,
	})

	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		Allocator:   categories,
		Platform:    client,
		Archiver:    transcripts,
		Guilds:      guilds,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
		DeleteDelay: cfg.Tickets.DeleteDelay,
	})

	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, metrics))

	router := bot.NewRouter(bot.RouterDependencies{
		Tickets:       tickets,
		Platform:      client,
		Guilds:        guilds,
		CommandPrefix: cfg.Discord.CommandPrefix,
		Metrics:       metrics,
		Logger:        logger,
	})
	removeHandlers := discord.NewHandler(router, logger, time.Minute).Register(session)
	defer removeHandlers()

	if err := session.Open(); err != nil {
		logger.Fatal("failed to open discord gateway", zap.Error(err))
	}
	defer session.Close() //nolint:errcheck
	logger.Info("discord gateway connected")

	var app *fiber.App
	if !*noHTTP {
		app = fiber.New(fiber.Config{DisableStartupMessage: true})
		httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
		httptransport.RegisterRoutes(app, httptransport.RouteConfig{
			Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
				"postgres": pg,
				"redis":    rdb,
			}, func() bool { return session.DataReady }),
			Transcripts: handlers.NewTranscriptsHandler(ticketRepo, cfg.Transcripts.Dir),
			LinkAuth:    auth.NewLinkMiddleware(tokens),
			Metrics:     metrics,
		})

		go func() {
			if err := app.Listen(cfg.App.Addr()); err != nil {
				logger.Fatal("fiber listen", zap.Error(err))
			}
		}()
	}

	waitForShutdown(logger)

	if app != nil {
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
