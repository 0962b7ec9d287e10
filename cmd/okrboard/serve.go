package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"okrboard/internal/httpapi"
	"okrboard/internal/session"
)

func runServe(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	common := addCommonFlags(fs)
	addr := fs.String("addr", "", "Listen address (default: server.addr from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	overrides := common.overrides()
	if *addr != "" {
		overrides["server.addr"] = *addr
	}

	a, err := openApp(workspacePath, appOptions{overrides: overrides, console: os.Stderr})
	if err != nil {
		return err
	}
	defer a.close()

	provider, err := a.identity()
	if err != nil {
		return err
	}
	registry := session.NewRegistry(a.deps())
	api := httpapi.New(httpapi.Options{
		Sessions:       registry,
		Identity:       provider,
		Metrics:        a.metrics,
		Logger:         a.logger,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      api.Handler(),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("serving", zap.String("addr", ln.Addr().String()), zap.String("backend", a.cfg.Storage.Backend))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case sig := <-sigCh:
		a.logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	registry.CloseAll(shutdownCtx)
	return nil
}
