package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rabota-krsk/rabota-bot/internal/bot"
	"github.com/rabota-krsk/rabota-bot/internal/database"
	apperrors "github.com/rabota-krsk/rabota-bot/internal/errors"
	"github.com/rabota-krsk/rabota-bot/internal/filter"
	"github.com/rabota-krsk/rabota-bot/internal/flow"
	"github.com/rabota-krsk/rabota-bot/internal/ledger"
	"github.com/rabota-krsk/rabota-bot/internal/ratelimit"
	"github.com/rabota-krsk/rabota-bot/internal/repository"
	"github.com/rabota-krsk/rabota-bot/internal/scheduler"
	"github.com/rabota-krsk/rabota-bot/internal/slots"
	"github.com/rabota-krsk/rabota-bot/internal/state"
	"github.com/rabota-krsk/rabota-bot/pkg/config"
	"github.com/rabota-krsk/rabota-bot/pkg/graceful"
	"github.com/rabota-krsk/rabota-bot/pkg/logger"
	"github.com/rabota-krsk/rabota-bot/pkg/metrics"
	pkgredis "github.com/rabota-krsk/rabota-bot/pkg/redis"

	_ "github.com/lib/pq"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("bot terminated", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Sentry.Enabled() {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			SampleRate:  cfg.Sentry.SampleRate,
		})
		if err != nil {
			return err
		}
		defer sentry.Flush(2 * time.Second)
	}

	log := logger.New(logger.Options{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		FilePath:   cfg.Logger.FilePath,
		MaxSizeMB:  cfg.Logger.MaxSizeMB,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAgeDays: cfg.Logger.MaxAgeDays,
		Sentry:     cfg.Sentry.Enabled(),
	})
	slog.SetDefault(log)

	log.Info("starting classifieds bot",
		slog.String("app", cfg.App.Name), slog.String("env", cfg.AppEnv))

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return err
	}

	db, err := sql.Open("postgres", cfg.Database.GetDBConnectionString())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Error("error closing database", slog.Any("error", cerr))
		}
	}()

	if err := db.PingContext(ctx); err != nil {
		return err
	}

	migrator := database.NewMigrator(db, log)
	if err := migrator.ApplyDir(ctx, "migrations"); err != nil {
		return err
	}

	rdb, err := pkgredis.New(ctx, pkgredis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rdb.Close(); cerr != nil {
			log.Error("error closing redis", slog.Any("error", cerr))
		}
	}()

	// Sessions and per-user dialog locks.
	storage := state.NewRedisStorage(rdb.Client, log)
	fsm := state.NewMachine(storage, log, rdb.Client)

	sessionTTL := time.Duration(cfg.Scheduler.SessionTTLMin) * time.Minute
	cleanupEvery := time.Duration(cfg.Scheduler.CleanupSeconds) * time.Second
	cleaner := state.NewCleaner(rdb.Client, storage, log, sessionTTL, cleanupEvery)
	go cleaner.Run(ctx)

	// Repositories and the money ledger.
	users := repository.NewUserRepository(db, log)
	pubs := repository.NewPublicationRepository(db, log)
	payments := repository.NewPaymentRepository(db, log)
	stopWords := repository.NewStopWordRepository(db, log)
	jobs := repository.NewJobRepository(db, log)
	accounts := ledger.NewPostgresLedger(db, log)

	contentFilter := filter.New(stopWords, log)
	if err := contentFilter.Reload(ctx); err != nil {
		return err
	}

	errHandler := apperrors.NewHandler(log, cfg.Sentry.Enabled())

	tb, err := bot.NewTelebot(cfg)
	if err != nil {
		return err
	}

	messenger := bot.NewMessenger(tb, log)
	feed := bot.NewFeedPublisher(tb, cfg.Bot.FeedChatID, log)
	gateway := bot.NewPaymentGateway(tb, cfg.Payments.ProviderToken, cfg.Payments.Currency, log)

	// The scheduler fires through the flow's publisher so fired jobs leave
	// a publication record and notify the owner like every other post.
	sched := scheduler.New(
		jobs,
		flow.NewScheduledPublisher(pubs, feed, messenger, log),
		flow.NewJobNotifier(messenger, log),
		loc,
		log,
	)
	if err := sched.Restore(ctx); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	slotManager := slots.NewManager(accounts, sched, loc, log)

	dialog := flow.New(flow.Deps{
		FSM:          fsm,
		Ledger:       accounts,
		Filter:       contentFilter,
		Slots:        slotManager,
		Scheduler:    sched,
		Users:        users,
		Publications: pubs,
		Payments:     payments,
		Feed:         feed,
		Messenger:    messenger,
		Gateway:      gateway,
		Location:     loc,
		Log:          log,
	})

	limiter := ratelimit.NewAdaptiveLimiter(
		ratelimit.NewRedisLimiter(rdb.Client, log),
		ratelimit.NewMemoryLimiter(log),
		log,
	)

	b := bot.New(cfg, tb, bot.Deps{
		Flow:       dialog,
		Users:      users,
		Limiter:    limiter,
		ErrHandler: errHandler,
		Log:        log,
	})

	go metrics.NewSessionCollector(fsm).Run(ctx)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- serveMetrics(ctx, cfg, log)
	}()

	go func() {
		<-ctx.Done()
		b.Stop()
	}()

	b.Start()

	if err := <-srvErr; err != nil {
		return err
	}

	log.Info("classifieds bot shut down")
	return nil
}

// serveMetrics runs the auxiliary HTTP server with Prometheus metrics and
// a liveness endpoint.
func serveMetrics(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: logger.Middleware(mux),
	}

	return graceful.NewServer(log, srv, shutdownTimeout).ListenAndServe(ctx)
}
