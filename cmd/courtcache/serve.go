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

	"github.com/spf13/cobra"

	"github.com/kimhsiao/courtcache/cmd/courtcache/handlers"
	"github.com/kimhsiao/courtcache/internal/config"
	"github.com/kimhsiao/courtcache/internal/fetcher"
	"github.com/kimhsiao/courtcache/internal/logging"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(opts *options) *cobra.Command {
	var (
		bind string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if cmd.Flags().Changed("bind") {
				a.cfg.Server.Bind = bind
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}

			h := handlers.NewCaseHandler(a.svc, probeFunc(a.cfg.Fetcher))
			srv := &http.Server{
				Addr:              a.cfg.Address(),
				Handler:           handlers.NewRouter(h),
				ReadHeaderTimeout: 10 * time.Second,
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(stop)

			return serve(srv, stop)
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "address to listen on (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (overrides config)")
	return cmd
}

// serve runs srv until it fails or a value arrives on stop, then shuts it
// down gracefully.
func serve(srv *http.Server, stop <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info("Starting server", map[string]interface{}{"address": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("could not listen on %s: %w", srv.Addr, err)
		}
		return nil
	case <-stop:
	}

	logging.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logging.Info("Server exited gracefully")
	return nil
}

// probeFunc binds the site probe to the configured candidates.
func probeFunc(cfg config.FetcherConfig) handlers.ProbeFunc {
	client := &http.Client{Timeout: cfg.Timeout}
	return func(ctx context.Context) *fetcher.ProbeReport {
		return fetcher.Probe(ctx, client, cfg.UserAgent, cfg.ProbeURLs)
	}
}
