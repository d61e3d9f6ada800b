package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"igfetch/internal/api"
)

var serveAddr string

// serveCmd runs the HTTP service
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the resolver as an HTTP service",
	Long: `Run igfetch as an HTTP service.

Endpoints:
  POST /api/resolve   body {"url": "..."} or {"postId": "..."} or {"username": "...", "storyId": "..."}
  GET  /stream?t=...  relay a signed thumbnail or media reference
  GET  /health        liveness probe

Set stream.public_url to the address clients reach this service on, so
carousel thumbnails point back here.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default :9000)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(map[string]interface{}{"addr": serveAddr})
	if err != nil {
		return err
	}

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	handlers := api.NewHandlers(a.service, a.signer, &http.Client{Timeout: 2 * time.Minute}, cfg.Instagram.UserAgent, log)
	router := api.NewRouter(handlers, log)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("Starting igfetch server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	log.Info("Server exited")
	return nil
}
