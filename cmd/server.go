package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brk3/habitboard/internal/config"
	"github.com/brk3/habitboard/internal/logger"
	"github.com/brk3/habitboard/internal/server"
	"github.com/brk3/habitboard/internal/storage"
	"github.com/brk3/habitboard/internal/storage/bolt"
	"github.com/brk3/habitboard/internal/storage/sqlite"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServer(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func openStore(c *config.Config) (storage.Store, error) {
	switch c.Storage.Driver {
	case "sqlite":
		return sqlite.Open(c.Storage.Path)
	case "bolt":
		return bolt.Open(c.Storage.Path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
}

func runServer(ctx context.Context, c *config.Config) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close store", "error", err)
		}
	}()

	srv, err := server.New(c, store)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "addr", c.ListenAddr, "storage", c.Storage.Driver, "path", c.Storage.Path, "auth_enabled", c.AuthEnabled)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
