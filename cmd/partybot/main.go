// Command partybot runs the pull party bot: it receives platform updates by
// long polling or webhook, dispatches them to the command router, purges
// expired callback receipts on a schedule and serves health, metrics and
// the optional read API over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/pull-party-bot/internal/bot"
	"github.com/tbourn/pull-party-bot/internal/config"
	httpapi "github.com/tbourn/pull-party-bot/internal/http"
	"github.com/tbourn/pull-party-bot/internal/observability"
	"github.com/tbourn/pull-party-bot/internal/parse"
	"github.com/tbourn/pull-party-bot/internal/platform"
	"github.com/tbourn/pull-party-bot/internal/platform/telegram"
	"github.com/tbourn/pull-party-bot/internal/ratelimit"
	"github.com/tbourn/pull-party-bot/internal/repo"
	"github.com/tbourn/pull-party-bot/internal/services"
	"github.com/tbourn/pull-party-bot/internal/suggest"
	"github.com/tbourn/pull-party-bot/internal/sysutil"
	"github.com/tbourn/pull-party-bot/internal/templates"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is normal in production.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	sysutil.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("partybot exited")
		os.Exit(1)
	}
	log.Info().Msg("partybot stopped")
}

func run(ctx context.Context, cfg config.Config) error {
	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.Open(repo.Options{
		Driver:      cfg.Storage.Driver,
		SQLitePath:  cfg.Storage.DBPath,
		PostgresDSN: cfg.Storage.DatabaseURL,
		Tracing:     cfg.OTEL.Enabled,
	})
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	client, err := telegram.New(cfg.Bot.Token, cfg.Bot.CallTimeout)
	if err != nil {
		return err
	}
	username := sysutil.FirstNonEmpty(cfg.Bot.Username, client.Username())

	parties := services.NewPartyService(db, services.Store{}, client)
	parties.Parser = parse.New(cfg.Engine.Prohibited)
	parties.Suggest = suggest.New(
		suggest.WithThreshold(cfg.Engine.SimilarityThreshold),
		suggest.WithMax(cfg.Engine.MaxSuggestions),
	)
	parties.AdminTimeout = cfg.Engine.AdminFetchTimeout
	parties.ReceiptTTL = cfg.Storage.ReceiptTTL
	log.Info().
		Str("prohibited", parties.Parser.Prohibited()).
		Float64("similarity_threshold", parties.Suggest.Threshold()).
		Str("db_driver", cfg.Storage.Driver).
		Msg("engine configured")

	feedback := &services.FeedbackService{
		DevelopChatID: cfg.Bot.DevelopChatID,
		Limiter:       ratelimit.New(cfg.Engine.FeedbackRPS, cfg.Engine.FeedbackBurst),
	}

	router := bot.NewRouter(client, parties, services.NewChatService(db), templates.Default(),
		bot.WithUsername(username),
		bot.WithMessageLimit(cfg.Engine.MessageLimit),
		bot.WithFeedback(feedback),
	)
	if err := client.SetCommands(ctx, router.Commands()); err != nil {
		log.Warn().Err(err).Msg("set commands failed")
	}

	janitor, err := bot.NewJanitor(parties, cfg.Storage.ReceiptPurgeCron)
	if err != nil {
		return err
	}

	updates := make(chan platform.Update, cfg.Engine.Workers)
	deps := httpapi.Deps{Config: cfg, Parties: parties, Updates: updates}
	if !cfg.Bot.LongPoll {
		deps.Decoder = client
	}
	srv := newServer(cfg, deps)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if cfg.Bot.LongPoll {
		g.Go(func() error {
			log.Info().Str("bot", username).Msg("long polling")
			if err := client.Poll(gctx, updates); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("poll: %w", err)
			}
			return nil
		})
	} else {
		if err := client.SetWebhook(ctx, cfg.WebhookURL()); err != nil {
			return err
		}
		log.Info().Str("bot", username).Str("path", "/webhook/:secret").Msg("webhook registered")
	}

	g.Go(func() error {
		return bot.NewDispatcher(router, cfg.Engine.Workers, cfg.Engine.UpdateTimeout).Run(gctx, updates)
	})
	g.Go(func() error {
		janitor.Run(gctx)
		return nil
	})

	return g.Wait()
}

func newServer(cfg config.Config, deps httpapi.Deps) *http.Server {
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, deps)

	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
}
