package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shoplocal/shopfinder/internal/api"
	"github.com/shoplocal/shopfinder/internal/config"
	"github.com/shoplocal/shopfinder/internal/logging"
	"github.com/shoplocal/shopfinder/internal/metrics"
	"github.com/shoplocal/shopfinder/internal/shop"
	"github.com/shoplocal/shopfinder/internal/storage/postgres"
)

const shutdownGrace = 10 * time.Second

// newServeCmd creates the 'serve' subcommand, which runs the HTTP service.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Starts the shop directory HTTP service",
		Long: `Runs the HTTP (and, when certificates are present, HTTPS) listeners for
the shop directory API and the front-end bundle.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	metrics.Init()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewShopStore(ctx, postgres.ShopStoreConfig{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return fmt.Errorf("open shop store: %w", err)
	}
	defer store.Close()

	validator := shop.NewValidator(nil, logger.Named("validator"))
	server := api.NewServer(store, validator, logger.Named("api"), cfg)

	certFile := filepath.Join(cfg.Server.CertDir, "cert.pem")
	keyFile := filepath.Join(cfg.Server.CertDir, "key.pem")
	hasTLS := cfg.Server.CertDir != "" && fileExists(certFile) && fileExists(keyFile)

	srv := &http.Server{
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	if hasTLS {
		logger.Info("tls config provided",
			zap.Int("https_port", cfg.Server.HTTPSPort),
			zap.Int("redirect_port", cfg.Server.HTTPPort),
		)
		srv.Addr = ":" + strconv.Itoa(cfg.Server.HTTPSPort)

		redirect := &http.Server{
			Addr:              ":" + strconv.Itoa(cfg.Server.HTTPPort),
			Handler:           redirectHTTPS(cfg.Server.HTTPSPort),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := redirect.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http redirect listener: %w", err)
			}
		}()
		defer shutdownServer(redirect, logger)

		go func() {
			if err := srv.ListenAndServeTLS(certFile, keyFile); !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("https listener: %w", err)
			}
		}()
	} else {
		logger.Info("no tls config found", zap.Int("http_port", cfg.Server.HTTPPort))
		srv.Addr = ":" + strconv.Itoa(cfg.Server.HTTPPort)
		go func() {
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http listener: %w", err)
			}
		}()
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownServer(srv, logger)
	return nil
}

func shutdownServer(srv *http.Server, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
}

// redirectHTTPS answers every plaintext request with a permanent redirect to
// the HTTPS listener on the same host.
func redirectHTTPS(httpsPort int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if h, _, err := net.SplitHostPort(r.Host); err == nil {
			host = h
		}
		target := "https://" + net.JoinHostPort(host, strconv.Itoa(httpsPort)) + r.URL.RequestURI()
		http.Redirect(w, r, target, http.StatusMovedPermanently)
	})
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
