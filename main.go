package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"go.uber.org/multierr"

	dialoguex "github.com/tanpawarit/autocredit-bot/agent/agents/dialogue"
	bankx "github.com/tanpawarit/autocredit-bot/agent/bank"
	dispatchx "github.com/tanpawarit/autocredit-bot/agent/dispatch"
	gatewayx "github.com/tanpawarit/autocredit-bot/agent/gateway"
	journalx "github.com/tanpawarit/autocredit-bot/agent/journal"
	promptx "github.com/tanpawarit/autocredit-bot/agent/prompt"
	statex "github.com/tanpawarit/autocredit-bot/agent/state"
	configx "github.com/tanpawarit/autocredit-bot/pkg/config"
	_ "github.com/tanpawarit/autocredit-bot/pkg/logger/autoload"
	postgresx "github.com/tanpawarit/autocredit-bot/pkg/postgres"
	telegramx "github.com/tanpawarit/autocredit-bot/pkg/telegram"
)

const (
	transportTelegram = "telegram"
	transportWebhook  = "webhook"
)

type AppConfig struct {
	Language        string        `default:"uk"`
	Transport       string        `default:"telegram"`
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	SessionTTL      time.Duration `split_words:"true" default:"24h"`
	SweepInterval   time.Duration `split_words:"true" default:"10m"`
	DispatchShards  int           `split_words:"true" default:"8"`
	DispatchQueue   int           `split_words:"true" default:"64"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
}

func (c *AppConfig) Validate() error {
	var err error
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	if c.Transport != transportTelegram && c.Transport != transportWebhook {
		err = multierr.Append(err, fmt.Errorf("transport must be %q or %q, got %q", transportTelegram, transportWebhook, c.Transport))
	}
	if c.SessionTTL < 0 {
		err = multierr.Append(err, errors.New("session ttl must not be negative"))
	}
	if c.SessionTTL > 0 && c.SweepInterval <= 0 {
		err = multierr.Append(err, errors.New("sweep interval must be positive when sessions expire"))
	}
	if c.DispatchShards <= 0 {
		err = multierr.Append(err, errors.New("dispatch shards must be positive"))
	}
	if c.DispatchQueue < 0 {
		err = multierr.Append(err, errors.New("dispatch queue must not be negative"))
	}
	return err
}

func main() {
	appCfg := configx.MustNew[AppConfig]("APP")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, appCfg); err != nil {
		log.Fatal().Err(err).Msg("autocredit bot stopped")
	}
	log.Info().Msg("autocredit bot stopped")
}

func run(ctx context.Context, appCfg *AppConfig) (err error) {
	prompts, err := promptx.Load(appCfg.Language)
	if err != nil {
		return err
	}

	store := statex.NewMemoryStore(statex.WithTTL(appCfg.SessionTTL))
	controller, err := dialoguex.New(store, bankx.NewRegistry(prompts.FormatQuote), prompts)
	if err != nil {
		return err
	}

	dispatcher, err := dispatchx.New(controller,
		dispatchx.WithShards(appCfg.DispatchShards),
		dispatchx.WithQueueSize(appCfg.DispatchQueue),
	)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dispatcher.Close()) }()

	quotes, closeJournal, err := openJournal(ctx)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeJournal()) }()

	ctx, cancel := context.WithCancel(ctx)
	var workers conc.WaitGroup
	defer workers.Wait()
	defer cancel()
	workers.Go(func() { store.RunJanitor(ctx, appCfg.SweepInterval) })

	log.Info().
		Str("language", prompts.Lang).
		Str("transport", appCfg.Transport).
		Dur("session_ttl", appCfg.SessionTTL).
		Msg("autocredit bot starting")

	switch appCfg.Transport {
	case transportWebhook:
		return serveWebhook(ctx, appCfg, dispatcher, quotes)
	default:
		return pollTelegram(ctx, dispatcher, quotes)
	}
}

// openJournal connects the quote journal when JOURNAL_DSN is set.
func openJournal(ctx context.Context) (journalx.Journal, func() error, error) {
	pgCfg := configx.MustNew[postgresx.Config]("JOURNAL")
	if !pgCfg.Enabled() {
		log.Info().Msg("quote journal disabled")
		return journalx.Noop{}, func() error { return nil }, nil
	}

	db, err := postgresx.New(*pgCfg)
	if err != nil {
		return nil, nil, err
	}
	j, err := journalx.NewBunJournal(db)
	if err != nil {
		return nil, nil, multierr.Append(err, db.Close())
	}

	initCtx, cancel := context.WithTimeout(ctx, pgCfg.Timeout)
	defer cancel()
	if err := j.InitSchema(initCtx); err != nil {
		return nil, nil, multierr.Append(err, db.Close())
	}
	log.Info().Msg("quote journal ready")
	return j, db.Close, nil
}

func pollTelegram(ctx context.Context, dispatcher *dispatchx.Dispatcher, quotes journalx.Journal) error {
	tgCfg := configx.MustNew[telegramx.Config]("TELEGRAM")
	client, err := telegramx.NewClient(*tgCfg)
	if err != nil {
		return err
	}

	gw, err := gatewayx.NewTelegramGateway(client, dispatcher, gatewayx.WithRecorder(quotes))
	if err != nil {
		return err
	}
	return gw.Run(ctx)
}

func serveWebhook(ctx context.Context, appCfg *AppConfig, dispatcher *dispatchx.Dispatcher, quotes journalx.Journal) error {
	handler, err := gatewayx.NewWebhookHandler(dispatcher, quotes, quotes)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              appCfg.HTTPAddr,
		Handler:           gatewayx.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("webhook listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
