package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/narvarokollen/narvaro/internal/access"
	"github.com/narvarokollen/narvaro/internal/api"
	"github.com/narvarokollen/narvaro/internal/cache"
	"github.com/narvarokollen/narvaro/internal/config"
	"github.com/narvarokollen/narvaro/internal/handlers"
	"github.com/narvarokollen/narvaro/internal/live"
	"github.com/narvarokollen/narvaro/internal/metrics"
	"github.com/narvarokollen/narvaro/internal/models"
	"github.com/narvarokollen/narvaro/internal/repository/memory"
	"github.com/narvarokollen/narvaro/internal/repository/postgres"
	"github.com/narvarokollen/narvaro/internal/service"
	"github.com/narvarokollen/narvaro/internal/telegram"
	"github.com/narvarokollen/narvaro/pkg/logger"
)

const (
	hostCacheTTL    = 10 * time.Minute
	shutdownTimeout = 10 * time.Second
	devTokenTTL     = 30 * 24 * time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel)

	// narvaro token <user-id> [name] prints an access token for local use.
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := printToken(cfg, os.Args[2:]); err != nil {
			l.Fatal(err)
		}
		return
	}

	l.Info("Starting Närvarokollen...")

	// closers run in reverse order on shutdown
	var closers []func() error

	// Storage
	var repos service.Repositories
	if cfg.DatabaseURL == config.MemoryDatabase {
		l.Warn("Using in-memory storage, data is lost on restart")
		store := memory.New()
		repos = service.Repositories{
			Users:        store.Users(),
			Bands:        store.Bands(),
			Members:      store.Members(),
			Events:       store.Events(),
			Participants: store.Participants(),
			JoinRequests: store.JoinRequests(),
			Hosts:        store.Hosts(),
		}
	} else {
		db, err := config.NewDatabase(cfg.DatabaseURL, cfg.Pool, l)
		if err != nil {
			l.Fatalf("Failed to connect to database: %v", err)
		}
		closers = append(closers, db.Close)

		if err := db.Migrate(cfg.MigrationsPath); err != nil {
			l.Fatalf("Failed to run migrations: %v", err)
		}

		repos = service.Repositories{
			Users:        postgres.NewUserRepository(db.DB),
			Bands:        postgres.NewBandRepository(db.DB),
			Members:      postgres.NewMemberRepository(db.DB),
			Events:       postgres.NewEventRepository(db.DB),
			Participants: postgres.NewParticipantRepository(db.DB),
			JoinRequests: postgres.NewJoinRequestRepository(db.DB),
			Hosts:        postgres.NewHostRepository(db.DB),
		}
	}

	opts := []service.Option{service.WithLocation(cfg.Timezone)}
	if cfg.RedisURL != "" {
		hostCache, err := cache.NewRedis(cfg.RedisURL, hostCacheTTL)
		if err != nil {
			l.Fatalf("Failed to connect to redis: %v", err)
		}
		closers = append(closers, hostCache.Close)
		opts = append(opts, service.WithHostCache(hostCache))
		l.Info("Host cache enabled")
	}

	// Service layer
	svc := service.New(l, repos, live.NewHub(), opts...)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	// Telegram bot
	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, l)
		if err != nil {
			l.Fatalf("Failed to create Telegram bot: %v", err)
		}
		registerCommands(bot, svc, l)
		svc.SetNotifier(bot)

		go func() {
			if err := bot.Start(ctx); err != nil {
				l.Errorf("Bot error: %v", err)
			}
		}()

		// Start reminder scheduler
		go svc.StartReminderScheduler(ctx, cfg.ReminderInterval, cfg.ReminderLead)
	} else {
		l.Warn("TELEGRAM_TOKEN not set, notifications and reminders are disabled")
	}

	// HTTP API
	apiServer := api.NewServer(svc, l, api.Options{
		AuthSecret:  cfg.AuthSecret,
		CORSOrigins: cfg.CORSOrigins,
	})
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serve(l, "HTTP server", httpServer)

	// Prometheus metrics
	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", metrics.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.PrometheusPort,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serve(l, "Metrics server", metricsServer)

	l.Info("Närvarokollen started successfully")

	<-ctx.Done()

	l.Info("Shutting down...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()

	var result *multierror.Error
	for _, srv := range []*http.Server{httpServer, metricsServer} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		l.Errorf("Unclean shutdown: %v", err)
	}

	l.Info("Närvarokollen stopped")
}

func registerCommands(bot *telegram.Bot, svc *service.Service, l *logrus.Logger) {
	bot.RegisterCommand("start", handlers.NewStartHandler(l))
	bot.RegisterCommand("help", handlers.NewHelpHandler(l))
	bot.RegisterCommand("events", handlers.NewEventsHandler(svc, l))

	// Response handlers
	bot.RegisterCommand("yes", handlers.NewResponseHandler(svc, l, models.ResponseYes))
	bot.RegisterCommand("no", handlers.NewResponseHandler(svc, l, models.ResponseNo))
	bot.RegisterCommand("maybe", handlers.NewResponseHandler(svc, l, models.ResponseMaybe))
	bot.RegisterCommand("sub", handlers.NewResponseHandler(svc, l, models.ResponseSub))
	bot.RegisterCallback(handlers.ResponseCallbackPrefix, handlers.NewResponseHandler(svc, l, models.ResponseUnset))
}

func serve(l *logrus.Logger, name string, srv *http.Server) {
	go func() {
		l.Infof("%s listening on %s", name, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Errorf("%s error: %v", name, err)
		}
	}()
}

func printToken(cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: narvaro token <user-id> [name]")
	}
	p := access.Principal{UserID: args[0]}
	if len(args) > 1 {
		p.Name = args[1]
	}
	token, err := api.NewAuthenticator(cfg.AuthSecret).IssueToken(p, devTokenTTL)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}
	fmt.Println(token)
	return nil
}
