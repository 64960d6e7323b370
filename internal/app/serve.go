package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/specialistvlad/pipewright/internal/ctxlog"
	"github.com/specialistvlad/pipewright/internal/trigger"
)

// Serve runs the push webhook server until the process receives an
// interrupt. Each accepted push starts an independent pipeline run; runs in
// flight are allowed to finish before Serve returns.
func (a *App) Serve(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := a.buildServices(ctx, appConfig)
	if err != nil {
		return err
	}

	ts := trigger.NewServer(a.config.Trigger.Branch, func(runCtx context.Context, event trigger.PushEvent) {
		result := a.runPipeline(runCtx, appConfig, svc)
		a.logger.Info("Triggered run finished.",
			"branch", a.config.Trigger.Branch, "after", event.After, "succeeded", result.Succeeded)
	})

	srv := &http.Server{
		Addr:              appConfig.ServeAddr,
		Handler:           ts.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Webhook server listening.", "addr", appConfig.ServeAddr, "branch", a.config.Trigger.Branch)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("webhook server: %w", err)
		}
	case <-ctx.Done():
		a.logger.Info("Shutdown signal received, draining runs.")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("Webhook server shutdown error.", "error", err)
	}
	ts.Wait()
	return nil
}
