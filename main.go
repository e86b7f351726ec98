package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"mucajeyadmin/auth"
	"mucajeyadmin/config"
	"mucajeyadmin/handlers"
	"mucajeyadmin/registration"
	"mucajeyadmin/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func initLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.GeneratedSecret {
		logger.Warn("SESSION_SECRET is not set, using a random secret; sessions end on restart")
	}

	st, closeStore, err := store.Open(store.Options{
		Driver:       cfg.UserStore,
		File:         cfg.UserFile,
		DB:           cfg.UserDB,
		APIKeySecret: cfg.APIKeySecret,
	})
	if err != nil {
		return err
	}
	defer closeStore()
	logger.Info("user store ready", "driver", cfg.UserStore, "sealed", cfg.APIKeySecret != "")

	registrar := registration.New(registration.Config{
		BaseURL:       cfg.MucajeyBaseURL(),
		RegisterPath:  cfg.RegisterPath,
		AppName:       cfg.AppName,
		AppVersion:    cfg.AppVersion,
		Platform:      cfg.Platform,
		DevicePrefix:  cfg.DeviceIDPrefix,
		ServiceAPIKey: cfg.MucajeyServiceKey,
		Timeout:       cfg.MucajeyTimeout,
	}, logger)

	gateway, err := auth.NewGateway(st, registrar, cfg.BcryptCost, logger)
	if err != nil {
		return err
	}
	if _, err := gateway.EnsureBootstrapAdmin(ctx, cfg.BootstrapUser, cfg.BootstrapPassword); err != nil {
		return err
	}

	h := handlers.New(handlers.Options{
		Gateway: gateway,
		Sessions: auth.NewSessions(auth.SessionOptions{
			Secret: cfg.SessionSecret,
			MaxAge: cfg.SessionMaxAge,
			Secure: cfg.SessionSecure,
		}),
		Store:            st,
		Logger:           logger,
		MaxLoginAttempts: cfg.LoginMaxAttempts,
		CaptchaAfter:     cfg.LoginCaptchaAfter,
		CSRFEnabled:      cfg.CSRFEnabled,
		CSRFSecret:       cfg.SessionSecret,
		SecureCookies:    cfg.SessionSecure,
		AllowedOrigins:   cfg.AllowedOrigins(),
		TrustedProxies:   cfg.TrustedProxyPrefixes(),
		MaxBodySize:      cfg.MaxRequestBodySize,
		IsDevelopment:    cfg.IsDevelopment(),
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      h.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"addr", srv.Addr,
			"env", cfg.AppEnv,
			"register_endpoint", registrar.Endpoint(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	srv.SetKeepAlivesEnabled(false)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
