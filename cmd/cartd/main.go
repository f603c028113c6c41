package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"google.golang.org/grpc"

	"github.com/dwikikusuma/tenant-cart/internal/cart/app"
	cartgrpc "github.com/dwikikusuma/tenant-cart/internal/cart/grpc"
	"github.com/dwikikusuma/tenant-cart/internal/cart/infra/relay"
	"github.com/dwikikusuma/tenant-cart/internal/cart/infra/storage"
	"github.com/dwikikusuma/tenant-cart/internal/cart/session"
	checkoutapp "github.com/dwikikusuma/tenant-cart/internal/checkout/app"
	checkoutadapter "github.com/dwikikusuma/tenant-cart/internal/checkout/infra/adapter"
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
		Service:   "cartd",
		Env:       cfg.App.Env,
		Level:     cfg.App.LogLevel,
		AddSource: true,
		File:      cfg.App.LogFile,
	})
	defer logCloser.Close()

	ctx, cancel := shutdown.WithSignals(context.Background(), log)
	defer cancel()

	be, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Error("storage open failed", slog.Any("err", err), slog.String("backend", cfg.Storage.Backend))
		os.Exit(1)
	}
	defer be.Close()

	// Sessions
	regOpts := []session.Option{
		session.WithLogger(log),
		session.WithFlushConcurrency(cfg.Session.FlushConcurrency),
	}
	if cfg.Relay.Enabled {
		pub := relay.NewRedisPublisher(be.redis, cfg.Relay.Channel, log)
		regOpts = append(regOpts, session.WithListener(pub.Listener))
	}
	sessions := session.NewRegistry(func(sessionID string) app.CollectionStore {
		return storage.NewSlot(be.kv, storage.SessionKey(cfg.Storage.Key, sessionID))
	}, regOpts...)

	// Checkout (optional)
	var checkout cartgrpc.Checkouter
	if cfg.Checkout.OrderURL != "" {
		orders := checkoutadapter.NewOrderClient(cfg.Checkout.OrderURL, cfg.Checkout.Timeout)
		checkout = checkoutapp.NewService(checkoutadapter.NewSessionCarts(sessions), orders, log)
	} else {
		log.Warn("checkout.order_url not set, Checkout is disabled")
	}

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		log.Error("listen failed", slog.Any("err", err), slog.String("addr", cfg.GRPC.Addr))
		os.Exit(1)
	}

	grpcServer := grpc.NewServer()
	cartgrpc.RegisterCartServiceServer(grpcServer, cartgrpc.NewServer(sessions, checkout, log))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		log.Info("grpc starting", slog.String("addr", cfg.GRPC.Addr))
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("grpc serve error", slog.Any("err", err))
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		sessions.Run(ctx, cfg.Session.SweepInterval, cfg.Session.IdleTimeout)
	}()

	<-ctx.Done()
	log.Info("shutdown requested")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopCtx.Done():
		log.Warn("graceful stop timeout, forcing stop")
		grpcServer.Stop()
	case <-stopped:
	}

	wg.Wait()

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer flushCancel()
	if err := sessions.Close(flushCtx); err != nil {
		log.Error("flushing carts on exit failed", slog.Any("err", err))
	}
	log.Info("bye")
}
