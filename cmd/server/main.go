// Command server runs the HTTP surface over a PGStore-backed core:
// listen in a goroutine, shut down gracefully on SIGINT/SIGTERM.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/orionop/cargox/config"
	"github.com/orionop/cargox/httpapi"
	"github.com/orionop/cargox/logging"
	"github.com/orionop/cargox/store"
)

func main() {
	cfg := config.Load()

	zlog, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	st, err := store.Open(zlog)
	if err != nil {
		zlog.Fatal("failed to open store", zap.Error(err))
	}
	defer st.Close()

	handler := httpapi.NewRouter(st, zlog, cfg.CORSOrigins, cfg.JWTSigningKey, cfg.PlacementCapacityOverride)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	go func() {
		zlog.Info("starting cargox server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zlog.Info("shutting down cargox server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}
