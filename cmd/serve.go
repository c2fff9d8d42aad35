package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwbudde/letterfit/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveAddr     string
	serveDefaults = envConfig
	shutdownWait  time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP job server",
	Long: `Starts an HTTP server that runs optimization jobs in the background and
streams their progress. Job requests are applied on top of the defaults
given by flags and LETTERFIT_* environment variables.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().DurationVar(&shutdownWait, "shutdown-timeout", 10*time.Second, "Time allowed for running jobs to stop")
	addConfigFlags(serveCmd, &serveDefaults)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if envConfigErr != nil {
		return envConfigErr
	}
	if err := serveDefaults.Validate(); err != nil {
		return err
	}

	srv := server.NewServer(serveAddr, serveDefaults)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Signal received, shutting down", "timeout", shutdownWait)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
