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

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukaji3/sheetquery-go/pkg/api"
	"github.com/ukaji3/sheetquery-go/pkg/config"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var addr string
	var noWarm bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			return serve(cmd.Context(), cfg, !noWarm)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides http.addr)")
	cmd.Flags().BoolVar(&noWarm, "no-warm", false, "Do not load the workbook before accepting requests")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, warm bool) error {
	svc, err := openService(ctx, cfg)
	if err != nil {
		return err
	}

	logger := log.WithFields(log.Fields{"component": "server", "source": svc.Source()})
	if warm {
		// a failed warm-up is retried by the first request
		if err := svc.Warm(ctx); err != nil {
			logger.WithError(err).Warn("initial workbook load failed")
		}
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.GetRouter(svc, api.Options{Secret: cfg.Auth.Secret}),
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeout),
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadHeaderTimeout),
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeout),
		IdleTimeout:       time.Duration(cfg.HTTP.IdleTimeout),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", server.Addr).Info("listening for HTTP")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("signalled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
