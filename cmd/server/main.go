package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/config"
	"github.com/iliyamo/ticket-marketplace/internal/database"
	"github.com/iliyamo/ticket-marketplace/internal/funds"
	"github.com/iliyamo/ticket-marketplace/internal/handler"
	"github.com/iliyamo/ticket-marketplace/internal/metrics"
	"github.com/iliyamo/ticket-marketplace/internal/middleware"
	"github.com/iliyamo/ticket-marketplace/internal/ownership"
	"github.com/iliyamo/ticket-marketplace/internal/platform"
	"github.com/iliyamo/ticket-marketplace/internal/queue"
	"github.com/iliyamo/ticket-marketplace/internal/registry"
	"github.com/iliyamo/ticket-marketplace/internal/repository"
	"github.com/iliyamo/ticket-marketplace/internal/router"
	"github.com/iliyamo/ticket-marketplace/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := newLogger(cfg)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.New()
	bank := funds.NewBank()

	// Prometheus
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(reg)
	notifiers := platform.Notifiers{recorder}

	// Redis: response cache and rate limit.  Optional.
	cacheCfg := config.LoadCacheConfig()
	rlCfg := config.LoadRateLimitConfig()
	rdb, err := config.NewRedisClient(ctx)
	if err != nil {
		log.Warn("redis unavailable; cache and rate limit disabled", zap.Error(err))
		rdb = nil
	} else {
		defer func() { _ = rdb.Close() }()
		if cacheCfg.Enabled && cacheCfg.InvalidateOnActivity {
			notifiers = append(notifiers, middleware.NewCacheInvalidator(cacheCfg, rdb, log))
		}
	}

	// MySQL: user profiles and the activity journal.  Without it profiles
	// live in memory and the journal endpoint is disabled.
	var users platform.UserRegistry = platform.NewMemoryUsers()
	var journal *repository.JournalRepo
	if cfg.DB.Enabled() {
		db, err := database.Open(ctx, cfg.DB)
		if err != nil {
			log.Fatal("db open", zap.Error(err))
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatal("db migrate", zap.Error(err))
		}
		users = repository.NewProfileRepo(db)
		journal = repository.NewJournalRepo(db)
	}

	// RabbitMQ: activity stream out, journal in.
	if cfg.RabbitMQ != "" {
		pub := service.NewQueuePublisher(cfg.RabbitMQ, 1024, log)
		notifiers = append(notifiers, pub)
		go pub.Run(ctx)
		if journal != nil {
			go func() {
				if err := queue.StartActivityConsumer(ctx, cfg.RabbitMQ, journal, log); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("activity consumer stopped", zap.Error(err))
				}
			}()
		}
	}

	p, err := platform.New(platform.Options{
		Address:  cfg.PlatformAddress,
		Owner:    cfg.PlatformOwner,
		Wallet:   cfg.PlatformWallet,
		FeeBps:   cfg.PlatformFeeBps,
		Payments: bank,
		Notifier: notifiers,
		Clock:    clk,
		Logger:   log.Named("platform"),
	})
	if err != nil {
		log.Fatal("platform", zap.Error(err))
	}
	events := registry.New(registry.Options{
		Address:   cfg.EventsAddress,
		Platform:  cfg.PlatformAddress,
		Ownership: ownership.NewBook(),
		Payments:  bank,
		Clock:     clk,
		Logger:    log.Named("registry"),
	})
	if err := p.SetEventsContract(events, cfg.PlatformOwner); err != nil {
		log.Fatal("configure events", zap.Error(err))
	}
	if err := p.SetUsersContract(users, cfg.PlatformOwner); err != nil {
		log.Fatal("configure users", zap.Error(err))
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(recorder.Middleware())
	e.Use(middleware.NewTokenBucket(rlCfg, rdb, log))

	public := &handler.PublicHandler{Platform: p, Log: log}
	if journal != nil {
		public.Journal = journal
	}
	router.RegisterRoutes(e, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	router.RegisterAuth(e, &handler.AuthHandler{Cfg: cfg, Platform: p, Clock: clk, Log: log})
	router.RegisterPublic(e, public, middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterMarket(e,
		&handler.AccountHandler{Platform: p, Bank: bank, Log: log},
		&handler.EventHandler{Platform: p, Log: log},
		cfg.JWTSecret, clk)
	router.RegisterAdmin(e, &handler.AdminHandler{Platform: p, Bank: bank, AllowMint: cfg.Env != "prod", Log: log}, cfg.JWTSecret, clk)

	addr := ":" + cfg.Port
	log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}

func newLogger(cfg config.Config) *zap.Logger {
	var (
		log *zap.Logger
		err error
	)
	if cfg.IsDev() {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return log
}
