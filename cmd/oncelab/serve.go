// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"code.hybscloud.com/once/internal/history"
	"code.hybscloud.com/once/internal/log"
)

var (
	serveListen string
	serveQueue  int
	serveLimit  int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the benchmark dashboard and ingest API",
	Long: `Serves trend charts over the run history, accepts runs over HTTP,
and exposes Prometheus metrics and profiling endpoints. Ingested runs
pass through a bounded queue; whatever is queued when shutdown begins
is still written out.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default :8080)")
	serveCmd.Flags().IntVar(&serveQueue, "queue", 0, "ingest queue capacity")
	serveCmd.Flags().IntVar(&serveLimit, "limit", 0, "runs charted per page")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveListen == "" {
		serveListen = viper.GetString("listen")
	}
	if serveQueue <= 0 {
		serveQueue = viper.GetInt("ingest_queue")
	}
	if serveLimit <= 0 {
		serveLimit = viper.GetInt("history_limit")
	}

	logger := log.WithComponent("serve")

	store, err := history.Open(viper.GetString("db"))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ingest := history.NewIngestor(store, serveQueue)
	ingest.Start(ctx)

	d := &dashboard{
		store:  store,
		ingest: ingest,
		limit:  serveLimit,
		logger: logger,
	}

	server := &http.Server{
		Addr:              serveListen,
		Handler:           d.router(),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", serveListen).Msg("dashboard listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown signal received")

	// Bounded but detached so shutdown can finish after the signal context
	// is already canceled.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)

	// The writer drains queued runs before the store closes.
	ingest.Wait()
	return err
}
