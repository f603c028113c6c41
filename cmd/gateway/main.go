package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"

	cartgrpc "github.com/dwikikusuma/tenant-cart/internal/cart/grpc"
	"github.com/dwikikusuma/tenant-cart/internal/gateway"
	"github.com/dwikikusuma/tenant-cart/pkg/config"
	"github.com/dwikikusuma/tenant-cart/pkg/logger"
	"github.com/dwikikusuma/tenant-cart/pkg/shutdown"
)

func main() {
	configDir := flag.String("config", "configs", "directory holding base.yaml and <env>.yaml")
	flag.Parse()

	cfg, err := config.Load(*configDir, os.Getenv("APP_ENV"))
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log, logCloser := logger.New(logger.Options{
		Service:   "gateway",
		Env:       cfg.App.Env,
		Level:     cfg.App.LogLevel,
		AddSource: true,
		File:      cfg.App.LogFile,
	})
	defer logCloser.Close()

	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	root := context.Background()
	ctx, cancel := shutdown.WithSignals(root, log)
	defer cancel()

	conn, err := grpc.NewClient(cfg.CartService.Target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Error("cart service client failed", slog.Any("err", err), slog.String("target", cfg.CartService.Target))
		os.Exit(1)
	}
	defer conn.Close()

	router := gateway.NewRouter(cartgrpc.NewClient(conn), gateway.Options{
		Log:         log,
		Timeout:     cfg.CartService.Timeout,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Done:        ctx.Done(),
		Ready: func() error {
			switch st := conn.GetState(); st {
			case connectivity.TransientFailure, connectivity.Shutdown:
				return fmt.Errorf("cart service %s", st)
			case connectivity.Idle:
				conn.Connect()
			}
			return nil
		},
	})

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		// zero keeps SSE streams open
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("http server starting", slog.String("addr", cfg.HTTP.Addr), slog.String("cart_service", cfg.CartService.Target))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", slog.Any("err", err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", slog.Any("err", err))
	}

	wg.Wait()
	log.Info("bye")
}
