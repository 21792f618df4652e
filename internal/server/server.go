// Package server holds the process plumbing shared by the service binaries.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/careroute/careroute/internal/config"
	"github.com/careroute/careroute/internal/llm"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// SetGinMode keeps gin's debug route dump for debug logging only.
func SetGinMode(logLevel string) {
	if logLevel == "debug" {
		gin.SetMode(gin.DebugMode)
		return
	}
	gin.SetMode(gin.ReleaseMode)
}

// New builds an http.Server with the timeouts every service uses.
func New(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// Run serves until ctx is done, then shuts the server down gracefully.
func Run(ctx context.Context, srv *http.Server, logger *logrus.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// NewGenerator builds the configured model client, or nil when the service
// should run without one.
func NewGenerator(ctx context.Context, cfg *config.Config, logger *logrus.Logger) llm.Generator {
	if err := cfg.ValidateLLM(); err != nil {
		logger.WithError(err).Warn("LLM disabled, running in fallback mode")
		return nil
	}

	gen, err := llm.New(ctx, llm.Config{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		Region:      cfg.LLM.Region,
		Temperature: float32(cfg.LLM.Temperature),
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if err != nil {
		if !errors.Is(err, llm.ErrNoProvider) {
			logger.WithError(err).Error("Failed to initialize LLM, running in fallback mode")
		} else {
			logger.Info("No LLM provider configured, running in fallback mode")
		}
		return nil
	}

	logger.WithFields(logrus.Fields{
		"provider": cfg.LLM.Provider,
		"model":    gen.Model(),
	}).Info("LLM initialized")
	return gen
}
