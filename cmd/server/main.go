package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grvc/ambassadors/internal/bot"
	"github.com/grvc/ambassadors/internal/broker"
	"github.com/grvc/ambassadors/internal/config"
	"github.com/grvc/ambassadors/internal/events"
	"github.com/grvc/ambassadors/internal/logging"
	"github.com/grvc/ambassadors/internal/services"
	"github.com/grvc/ambassadors/internal/session"
	"github.com/grvc/ambassadors/internal/store"
	"github.com/grvc/ambassadors/internal/web"
	"github.com/grvc/ambassadors/internal/wizard"
)

func main() {
	boot := logging.New("info", "json", os.Stderr)
	if err := config.LoadDotEnv(".env"); err != nil {
		boot.Fatal().Err(err).Msg("load .env")
	}
	settings, err := config.Load()
	if err != nil {
		boot.Fatal().Err(err).Msg("load settings")
	}
	log := logging.New(settings.LogLevel, settings.LogFormat, os.Stderr)

	event, err := config.LoadEvent(settings.EventConfig)
	if err != nil {
		log.Fatal().Err(err).Str("path", settings.EventConfig).Msg("load event config")
	}
	log.Info().
		Str("event", event.EventName).
		Time("deadline", event.Deadline).
		Bool("open", event.IsRegistrationOpen).
		Msg("event loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, settings)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}

	var fanout events.Fanout
	var pub *broker.Publisher
	if settings.AMQPURL != "" {
		pub, err = broker.Dial(settings.AMQPURL, settings.AMQPExchange, log.With().Str("component", "broker").Logger())
		if err != nil {
			log.Fatal().Err(err).Msg("connect broker")
		}
		fanout = append(fanout, pub)
	}
	if settings.TelegramEnabled() {
		tg, err := bot.NewClient(settings.TGBotToken, settings.TGChatID, settings.PublicBaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("telegram")
		}
		fanout = append(fanout, tg)
	}

	recorder := services.NewRecorder(st, fanout, event, log.With().Str("component", "recorder").Logger())

	wizOpts := []wizard.Option{
		wizard.WithSink(recorder),
		wizard.WithLogger(log.With().Str("component", "wizard").Logger()),
	}
	if settings.StrictFields {
		wizOpts = append(wizOpts, wizard.WithAttendeeChecker(services.StrictAttendee{}))
	}
	sessions := session.NewManager(func() *wizard.Wizard {
		return wizard.New(event, wizOpts...)
	}, settings.SessionIdle, session.WithLogger(log.With().Str("component", "session").Logger()))
	go sessions.Run(ctx, time.Minute)

	srv := &http.Server{
		Addr: settings.Addr,
		Handler: web.Router(web.Deps{
			Log:           log,
			Sessions:      sessions,
			Store:         st,
			Event:         event,
			PublicBaseURL: settings.PublicBaseURL,
			StaticDir:     settings.StaticDir,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", settings.Addr).Msg("GRVC Ambassadors registration listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-serverErr:
		log.Error().Err(err).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	sessions.Close()
	if pub != nil {
		if err := pub.Close(); err != nil {
			log.Error().Err(err).Msg("close broker")
		}
	}
	if err := st.Close(); err != nil {
		log.Error().Err(err).Msg("close store")
	}
	log.Info().Msg("shutdown complete")
}

func openStore(ctx context.Context, s config.Settings) (store.Store, error) {
	if s.DatabaseURL != "" {
		return store.OpenPostgres(ctx, s.DatabaseURL)
	}
	return store.OpenSQLite(s.DBPath)
}
