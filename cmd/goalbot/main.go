package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"goalbot/internal/bootstrap"
	"goalbot/internal/bot"
	"goalbot/internal/config"
	"goalbot/internal/conversation"
	"goalbot/internal/httpapi"
	"goalbot/internal/linking"
	"goalbot/internal/logger"
	"goalbot/internal/storage/postgres"
	"goalbot/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("goalbot: %v", err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	boot, err := bootstrap.Run(bootstrap.Options{Config: cfg})
	if err != nil {
		return err
	}
	defer boot.DB.Close()

	pollTimeout := time.Duration(cfg.Telegram.LongPollTimeoutSeconds) * time.Second
	clientOpts := []telegram.Option{
		telegram.WithHTTPClient(telegram.BuildHTTPClient(pollTimeout + 10*time.Second)),
	}
	if cfg.Telegram.APIBaseURL != "" {
		clientOpts = append(clientOpts, telegram.WithBaseURL(cfg.Telegram.APIBaseURL))
	}
	client := telegram.NewClient(cfg.Telegram.Token, clientOpts...)

	links := linking.NewService(postgres.NewLinkStore(boot.DB))
	goalStore := postgres.NewGoalStore(boot.DB)
	engine := conversation.NewEngine(links, goalStore, cfg.App.SiteBaseURL)
	states := conversation.NewMemoryManager()

	poller := bot.NewPoller(client, client, links, states, engine, bot.Options{
		PollTimeout: pollTimeout,
	})

	handler := httpapi.NewHandler(links, client, cfg.HTTP.InternalKey)
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Listen, cfg.HTTP.Port),
		Handler:           httpapi.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	httpErr := make(chan error, 1)
	go func() {
		logger.WEB.Info("http api listening",
			slog.String("event", "listen"),
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
			return
		}
		httpErr <- nil
	}()

	pollErr := make(chan error, 1)
	go func() {
		pollErr <- poller.Run(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-httpErr:
		runErr = err
		cancel()
	case err := <-pollErr:
		if !errors.Is(err, context.Canceled) {
			runErr = err
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WEB.Warn("http shutdown failed",
			slog.String("event", "shutdown"),
			slog.String("err", err.Error()),
		)
	}

	logger.L.Info("shutting down", slog.String("component", "app"), slog.String("event", "shutdown"))
	return runErr
}
