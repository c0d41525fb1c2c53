package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Cheertaboi/hotel-discount-service/internal/api"
	"github.com/Cheertaboi/hotel-discount-service/internal/config"
	"github.com/Cheertaboi/hotel-discount-service/internal/repository"
	"github.com/Cheertaboi/hotel-discount-service/internal/service"
	"github.com/Cheertaboi/hotel-discount-service/pkg/db"
	"github.com/Cheertaboi/hotel-discount-service/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	conn, err := db.NewPostgresConnection(cfg.Postgres)
	if err != nil {
		zl.Fatal("db connect", zap.Error(err))
	}
	defer conn.Close()

	if cfg.MigrateOnStart {
		if err := db.RunMigrations(conn); err != nil {
			zl.Fatal("run migrations", zap.Error(err))
		}
	}

	// create repos & service
	svc := service.NewDiscountService(
		repository.NewDiscountRepo(conn),
		repository.NewRedemptionRepo(conn),
		zl.Named("discounts"),
		service.WithTimeout(cfg.RequestTimeout),
	)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api.NewRouter(svc, cfg.JWTSecret, zl.Named("http")),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			zl.Error("http server shutdown", zap.Error(err))
		}
		close(idleConnsClosed)
	}()

	zl.Info("starting discount-service", zap.String("addr", cfg.HTTPAddr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zl.Fatal("listen", zap.Error(err))
	}

	<-idleConnsClosed
	zl.Info("server stopped")
}
