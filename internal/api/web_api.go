package api

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jackadi-io/configmanager/internal/config"
)

type Config struct {
	APIAddress    string
	APIPort       string
	APITLSEnabled bool
	APITLSCert    string
	APITLSKey     string
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"account", r.URL.Query().Get("account"),
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// StartHTTPServer serves the handler until the context is canceled.
func StartHTTPServer(ctx context.Context, cfg Config, handler http.Handler) error {
	apiAddr := net.JoinHostPort(cfg.APIAddress, cfg.APIPort)
	httpServer := http.Server{
		Addr:              apiAddr,
		Handler:           accessLogMiddleware(handler),
		ReadHeaderTimeout: config.HTTPReadHeaderTimeout,
	}

	if cfg.APITLSEnabled {
		if cfg.APITLSCert == "" || cfg.APITLSKey == "" {
			return errors.New("API TLS enabled but certificate or key file not specified")
		}

		certs, err := config.GetAPITLSCertificate(cfg.APITLSCert, cfg.APITLSKey)
		if err != nil {
			return fmt.Errorf("failed to load API TLS configuration: %w", err)
		}

		httpServer.TLSConfig = &tls.Config{Certificates: certs, MinVersion: tls.VersionTLS12}
	}
	slog.Info("starting HTTP API", "address", apiAddr, "tls", cfg.APITLSEnabled)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GracefulShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http api failed to stop properly", "error", err)
		}
	}()

	var err error
	if cfg.APITLSEnabled {
		err = httpServer.ListenAndServeTLS("", "") // no cert file as already configured TLS earlier
	} else {
		err = httpServer.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
