package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"net/smtp"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/dev-tracker/internal/event"
	"github.com/nhle/dev-tracker/internal/mail"
	"github.com/nhle/dev-tracker/internal/model"
	"github.com/nhle/dev-tracker/internal/server"
	"github.com/nhle/dev-tracker/internal/store"
	"github.com/nhle/dev-tracker/internal/workflow"
)

func main() {
	configFlag := flag.String("config", model.DefaultConfigPath(), "Path to YAML config file")
	addrFlag := flag.String("addr", "", "HTTP listen address (overrides config)")
	dbFlag := flag.String("db", "", "Path to sqlite database file (overrides config)")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := model.LoadConfig(*configFlag)
	if err != nil {
		logger.Fatal().Err(err).Msg("loading config")
	}
	if *addrFlag != "" {
		cfg.Server.Addr = *addrFlag
	}
	if *dbFlag != "" {
		cfg.Database.Path = *dbFlag
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("opening database")
	}
	defer st.Close()

	var sink event.Sink
	if cfg.NATS.URL != "" {
		natsSink, err := event.NewNATSSink(cfg.NATS.URL, cfg.NATS.SubjectPrefix, logger)
		if err != nil {
			logger.Fatal().Err(err).Str("url", cfg.NATS.URL).Msg("connecting to NATS")
		}
		defer natsSink.Close()
		sink = natsSink
	}
	notifier := event.NewNotifier(sink, logger)
	defer notifier.Close()

	var mailer workflow.OfferMailer
	if cfg.Mail.Enabled {
		var sender mail.Sender
		if relay := cfg.Mail.Relay; relay != "" {
			sender = func(_ context.Context, from string, to []string, msg []byte) error {
				return smtp.SendMail(relay, nil, from, to, msg)
			}
		}
		mailer = mail.NewMailer(cfg.Mail.From, sender, logger)
	}

	wf := workflow.New(st, notifier, mailer, workflow.Config{
		NotifyAdmins: cfg.Dispatch.NotifyAdmins,
		Role:         cfg.Dispatch.Role,
	}, logger)

	srv := server.New(wf, notifier, logger)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Engine(),
	}

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("starting server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}

	logger.Info().Msg("server stopped")
}
