package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/wordpeek/internal/ai"
	"github.com/arin/wordpeek/internal/config"
	"github.com/arin/wordpeek/internal/logging"
	"github.com/arin/wordpeek/internal/transport"
)

const defaultListen = "127.0.0.1:7878"

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the background lookup daemon",
	Long: `Run the background process that UI surfaces connect to.

Each websocket connection to /lookup is one lookup session. Settings are
re-read for every session, so config changes apply without a restart.

Examples:
  wordpeek serve
  wordpeek serve --listen 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := config.Store{}
		cfg, err := store.Get()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		log := logging.New(level, os.Stderr)

		client := ai.NewClient(store, ai.WithLogger(log))
		server := transport.NewServer(client.Lookup, log)

		ln, err := net.Listen("tcp", listenAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", listenAddr, err)
		}

		httpServer := &http.Server{
			Handler:           server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		green := color.New(color.FgGreen)
		green.Fprintf(os.Stderr, "\n  ✓ wordpeek daemon listening on ws://%s%s\n\n", ln.Addr(), transport.LookupPath)
		log.WithField("addr", ln.Addr().String()).Info("daemon started")

		errCh := make(chan error, 1)
		go func() {
			errCh <- httpServer.Serve(ln)
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("daemon stopped: %w", err)
			}
			return nil
		case <-cmd.Context().Done():
		}

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", defaultListen, "Address to listen on")
}
