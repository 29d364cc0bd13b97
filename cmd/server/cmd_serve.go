package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/harvest-market/internal/adapter/handler"
	"github.com/rl1809/harvest-market/internal/adapter/storage"
	"github.com/rl1809/harvest-market/internal/auth"
	"github.com/rl1809/harvest-market/internal/config"
	"github.com/rl1809/harvest-market/internal/core/service"
	"github.com/rl1809/harvest-market/internal/logger"
	"github.com/rl1809/harvest-market/internal/port"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg config.Config) error {
	db, err := storage.Open(ctx, cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("connected to database", "driver", db.Dialect())

	var cache port.CacheRepository
	if cfg.RedisAddr != "" {
		redisAdapter, err := storage.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer redisAdapter.Close()
		cache = redisAdapter
		logger.Info("connected to redis", "addr", cfg.RedisAddr)
	} else {
		logger.Warn("REDIS_ADDR not set, idempotency keys are ignored")
	}

	tokens := auth.NewTokens(cfg.JWTSecret)
	orders := service.NewOrderService(db, cache)
	views := service.NewOrderViewService(db)
	catalog := service.NewCatalogService(db)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewRouter(handler.NewHTTPHandler(orders, views, catalog), tokens),
		ReadHeaderTimeout: 5 * time.Second,
	}
	grpcServer := handler.NewGRPCServer(handler.NewGRPCHandler(orders, views, tokens))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("grpc listen on %s: %w", cfg.GRPCAddr, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
